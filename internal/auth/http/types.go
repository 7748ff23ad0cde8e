package http

import (
	"log/slog"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/identity"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/service"
)

type Handler struct {
	authService *service.AuthService
	resetter    identity.PasswordResetter
	log         *slog.Logger
}

func New(authService *service.AuthService, resetter identity.PasswordResetter, log *slog.Logger) *Handler {
	return &Handler{
		authService: authService,
		resetter:    resetter,
		log:         log,
	}
}

type signupBody struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Role        string `json:"role,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PlanID      string `json:"planId,omitempty"`
}

type passwordResetBody struct {
	Email string `json:"email" binding:"required"`
}

type roleBody struct {
	Role string `json:"role" binding:"required"`
}

type accessBody struct {
	HasPaid            *bool   `json:"hasPaid,omitempty"`
	AccessGranted      *bool   `json:"accessGranted,omitempty"`
	AccessLevel        *string `json:"accessLevel,omitempty"`
	VerificationStatus *string `json:"verificationStatus,omitempty"`
	PlanID             *string `json:"planId,omitempty"`
}

func (b accessBody) update() domain.AccessUpdate {
	return domain.AccessUpdate{
		HasPaid:            b.HasPaid,
		AccessGranted:      b.AccessGranted,
		AccessLevel:        b.AccessLevel,
		VerificationStatus: b.VerificationStatus,
		PlanID:             b.PlanID,
	}
}
