package domain

import "time"

// Principal is an authenticated identity issued by the identity provider.
type Principal struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Verification states recorded on a profile by payment flows.
const (
	VerificationNone     = ""
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// UserProfile is the application's record about a Principal.
// There is exactly one profile per principal ID.
type UserProfile struct {
	ID                 string    `json:"id" firestore:"id" db:"id"`
	Email              string    `json:"email" firestore:"email" db:"email"`
	Role               Role      `json:"role" firestore:"role" db:"role"`
	DisplayName        string    `json:"displayName,omitempty" firestore:"displayName" db:"display_name"`
	CreatedAt          time.Time `json:"createdAt" firestore:"createdAt" db:"created_at"`
	HasPaid            bool      `json:"hasPaid" firestore:"hasPaid" db:"has_paid"`
	AccessGranted      bool      `json:"accessGranted" firestore:"accessGranted" db:"access_granted"`
	AccessLevel        string    `json:"accessLevel,omitempty" firestore:"accessLevel" db:"access_level"`
	VerificationStatus string    `json:"verificationStatus,omitempty" firestore:"verificationStatus" db:"verification_status"`
	PlanID             string    `json:"planId,omitempty" firestore:"planId" db:"plan_id"`
}

// SignupExtra carries optional profile data supplied at signup.
type SignupExtra struct {
	Role        Role
	DisplayName string
	PlanID      string
}

// SignupRequest represents data needed to register a new principal and its profile.
type SignupRequest struct {
	Email    string
	Password string
	Extra    SignupExtra
}

// AccessUpdate is the administrative mutation of payment and access flags.
// Nil fields are left untouched.
type AccessUpdate struct {
	HasPaid            *bool
	AccessGranted      *bool
	AccessLevel        *string
	VerificationStatus *string
	PlanID             *string
}

// Apply copies the non-nil fields onto p.
func (u AccessUpdate) Apply(p *UserProfile) {
	if u.HasPaid != nil {
		p.HasPaid = *u.HasPaid
	}
	if u.AccessGranted != nil {
		p.AccessGranted = *u.AccessGranted
	}
	if u.AccessLevel != nil {
		p.AccessLevel = *u.AccessLevel
	}
	if u.VerificationStatus != nil {
		p.VerificationStatus = *u.VerificationStatus
	}
	if u.PlanID != nil {
		p.PlanID = *u.PlanID
	}
}
