package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
)

// Signup creates the credential and the profile in one request.
func (h *Handler) Signup(c *gin.Context) {
	var body signupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	role, err := domain.ParseRole(body.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.Signup(c.Request.Context(), domain.SignupRequest{
		Email:    body.Email,
		Password: body.Password,
		Extra: domain.SignupExtra{
			Role:        role,
			DisplayName: body.DisplayName,
			PlanID:      body.PlanID,
		},
	})
	if err != nil {
		h.signupFailed(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *Handler) signupFailed(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmailInUse):
		c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
	default:
		var se *domain.SignupError
		if errors.As(err, &se) && se.Stage == domain.StageProfile {
			// The account exists; its profile is created on first role lookup.
			c.JSON(http.StatusAccepted, gin.H{"error": "account created but profile was not saved", "stage": se.Stage})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "signup failed"})
	}
}

// PasswordReset relays the request to the identity provider. The response does
// not reveal whether the address is registered.
func (h *Handler) PasswordReset(c *gin.Context) {
	var body passwordResetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.resetter.SendPasswordReset(c.Request.Context(), body.Email); err != nil {
		logging.FromContext(c.Request.Context(), h.log).Warn("password reset failed", logging.Err(err))
		if !errors.Is(err, domain.ErrInvalidLogin) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "password reset unavailable"})
			return
		}
	}

	c.Status(http.StatusAccepted)
}

// GetRole resolves the caller's role. An unresolved role is returned as "".
func (h *Handler) GetRole(c *gin.Context) {
	p := auth.PrincipalFrom(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	role, err := h.authService.ResolveRole(c.Request.Context(), p)
	if err != nil {
		logging.FromContext(c.Request.Context(), h.log).Warn("role unresolved",
			slog.String("user_id", p.ID), logging.Err(err))
	}

	c.JSON(http.StatusOK, gin.H{"role": role})
}

// GetProfile returns the current user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	user, err := h.authService.GetProfile(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// CourseAccess answers for any role admitted by the guard in front of it.
func (h *Handler) CourseAccess(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "role": auth.RoleFrom(c)})
}
