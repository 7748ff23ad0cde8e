// Package checkout drives the payment round-trip: order creation, the vendor
// payment widget, and server-side verification.
package checkout

import "time"

type State string

const (
	StateIdle           State = "IDLE"
	StateOrderRequested State = "ORDER_REQUESTED"
	StateWidgetOpen     State = "WIDGET_OPEN"
	StateVerifying      State = "VERIFYING"
	StateSucceeded      State = "SUCCEEDED"
	StateFailed         State = "FAILED"
	StateCancelled      State = "CANCELLED"
)

// inFlight reports whether a checkout is running in state s.
func (s State) inFlight() bool {
	switch s {
	case StateOrderRequested, StateWidgetOpen, StateVerifying:
		return true
	}
	return false
}

// Transition is one observed state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// CheckoutIntent describes a pending payment. It lives from order creation until
// verification finishes or the widget is dismissed.
type CheckoutIntent struct {
	CourseID   string
	CouponCode string
	OrderID    string
	Amount     int64
	Currency   string
	KeyID      string
}

// Confirmation is handed to the caller after a verified payment. URL points at
// the confirmation route.
type Confirmation struct {
	CourseID     string `json:"courseId"`
	EnrollmentID string `json:"enrollmentId"`
	URL          string `json:"url"`
}
