package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidRole      = errors.New("invalid role")
	ErrEmailInUse       = errors.New("email already in use")
	ErrInvalidLogin     = errors.New("invalid email or password")
	ErrMissingPrincipal = errors.New("no signed-in principal")
	ErrInvalidInput     = errors.New("invalid input")
)

// Signup stages.
const (
	StageCredential = "credential"
	StageProfile    = "profile"
)

// SignupError reports a failed signup. Stage tells whether the credential was created.
type SignupError struct {
	Stage string
	Email string
	Err   error
}

func (e *SignupError) Error() string {
	return fmt.Sprintf("signup %s (%s): %v", e.Email, e.Stage, e.Err)
}

func (e *SignupError) Unwrap() error { return e.Err }

// RoleResolutionError reports a directory failure during role lookup.
type RoleResolutionError struct {
	PrincipalID string
	Op          string
	Err         error
}

func (e *RoleResolutionError) Error() string {
	return fmt.Sprintf("resolve role for %s: %s: %v", e.PrincipalID, e.Op, e.Err)
}

func (e *RoleResolutionError) Unwrap() error { return e.Err }

// ProfileFetchError is non-fatal; the session keeps the bare principal.
type ProfileFetchError struct {
	PrincipalID string
	Err         error
}

func (e *ProfileFetchError) Error() string {
	return fmt.Sprintf("fetch profile for %s: %v", e.PrincipalID, e.Err)
}

func (e *ProfileFetchError) Unwrap() error { return e.Err }
