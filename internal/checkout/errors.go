package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrCheckoutInProgress = errors.New("a checkout is already in progress")
	ErrMissingCourse      = errors.New("course id is required")
)

// APIError is a non-2xx answer from the payment API. Message is the body's
// "error" field when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("payment api: status %d", e.Status)
	}
	return fmt.Sprintf("payment api: status %d: %s", e.Status, e.Message)
}

// OrderCreationError means no order was created; the orchestrator is back in IDLE.
type OrderCreationError struct {
	CourseID string
	Err      error
}

func (e *OrderCreationError) Error() string {
	return fmt.Sprintf("create order for course %s: %v", e.CourseID, e.Err)
}

func (e *OrderCreationError) Unwrap() error { return e.Err }

// VerificationError means the payment was not confirmed. The user must start a
// new checkout.
type VerificationError struct {
	OrderID string
	Err     error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verify payment for order %s: %v", e.OrderID, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// errNotConfirmed is wrapped by VerificationError when the API answered ok=false.
var errNotConfirmed = errors.New("payment was not confirmed")
