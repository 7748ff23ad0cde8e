package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/session"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/metrics"
)

// ConfirmationPath is the route that shows a completed enrollment.
const ConfirmationPath = "/payment/success"

// Session is the part of the session store checkout needs.
type Session interface {
	Current() session.Session
	Token(ctx context.Context) (string, error)
}

type Options struct {
	// SiteURL prefixes the confirmation URL.
	SiteURL      string
	ThemeColor   string
	MerchantName string
	// OnTransition observes every state change, in order.
	OnTransition func(Transition)
}

// Orchestrator runs one checkout at a time.
type Orchestrator struct {
	session  Session
	payments PaymentBackend
	widget   Widget
	opts     Options
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu      sync.Mutex
	state   State
	history []Transition
	intent  *CheckoutIntent
}

func NewOrchestrator(sess Session, payments PaymentBackend, widget Widget, opts Options, log *slog.Logger, m *metrics.Metrics) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		session:  sess,
		payments: payments,
		widget:   widget,
		opts:     opts,
		log:      log,
		metrics:  m,
		now:      time.Now,
		state:    StateIdle,
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// History returns the transitions of the most recent checkout.
func (o *Orchestrator) History() []Transition {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Transition(nil), o.history...)
}

// Pending returns the intent of the checkout in progress.
func (o *Orchestrator) Pending() (CheckoutIntent, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.intent == nil {
		return CheckoutIntent{}, false
	}
	return *o.intent, true
}

// Checkout pays for courseID. A dismissed widget returns (nil, nil) and leaves
// the orchestrator in IDLE. Nothing is retried.
func (o *Orchestrator) Checkout(ctx context.Context, courseID, couponCode string) (*Confirmation, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, ErrMissingCourse
	}
	if err := o.begin(); err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx, o.log).With(slog.String("course_id", courseID))

	order, err := o.createOrder(ctx, courseID, couponCode)
	if err != nil {
		log.Warn("order creation failed", logging.Err(err))
		o.transition(StateIdle)
		return nil, &OrderCreationError{CourseID: courseID, Err: err}
	}

	intent := &CheckoutIntent{
		CourseID:   courseID,
		CouponCode: couponCode,
		OrderID:    order.OrderID,
		Amount:     order.Amount,
		Currency:   order.Currency,
		KeyID:      order.KeyID,
	}
	o.setIntent(intent)
	defer o.setIntent(nil)

	results, err := o.widget.Open(ctx, o.widgetConfig(intent))
	if err != nil {
		log.Error("payment widget did not open", slog.String("order_id", intent.OrderID), logging.Err(err))
		o.transition(StateIdle)
		return nil, fmt.Errorf("open payment widget: %w", err)
	}
	o.transition(StateWidgetOpen)

	var res WidgetResult
	select {
	case r, ok := <-results:
		// A channel closed without a result is a dismissal.
		res = WidgetResult{Dismissed: true}
		if ok {
			res = r
		}
	case <-ctx.Done():
		res = WidgetResult{Dismissed: true}
	}

	if res.Dismissed {
		log.Info("payment widget dismissed", slog.String("order_id", intent.OrderID))
		o.transition(StateCancelled)
		o.transition(StateIdle)
		return nil, ctx.Err()
	}

	o.transition(StateVerifying)
	conf, err := o.verify(ctx, intent, res)
	if err != nil {
		log.Warn("payment verification failed", slog.String("order_id", intent.OrderID), logging.Err(err))
		o.transition(StateFailed)
		return nil, &VerificationError{OrderID: intent.OrderID, Err: err}
	}

	log.Info("payment verified", slog.String("order_id", intent.OrderID), slog.String("enrollment_id", conf.EnrollmentID))
	o.transition(StateSucceeded)
	return conf, nil
}

// begin claims the orchestrator by moving it to ORDER_REQUESTED and clears the
// previous run's history.
func (o *Orchestrator) begin() error {
	o.mu.Lock()
	if o.state.inFlight() {
		o.mu.Unlock()
		return ErrCheckoutInProgress
	}
	o.state = StateIdle
	o.history = nil
	t, hook := o.record(StateOrderRequested)
	o.mu.Unlock()

	o.emit(t, hook)
	return nil
}

func (o *Orchestrator) createOrder(ctx context.Context, courseID, couponCode string) (*Order, error) {
	token, err := o.session.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity token: %w", err)
	}
	return o.payments.CreateOrder(ctx, token, OrderRequest{CourseID: courseID, CouponCode: couponCode})
}

func (o *Orchestrator) verify(ctx context.Context, intent *CheckoutIntent, res WidgetResult) (*Confirmation, error) {
	token, err := o.session.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity token: %w", err)
	}

	v, err := o.payments.VerifyPayment(ctx, token, res.Payload)
	if err != nil {
		return nil, err
	}
	if !v.OK {
		return nil, errNotConfirmed
	}

	return &Confirmation{
		CourseID:     intent.CourseID,
		EnrollmentID: v.EnrollmentID,
		URL:          o.confirmationURL(intent.CourseID, v.EnrollmentID),
	}, nil
}

func (o *Orchestrator) widgetConfig(intent *CheckoutIntent) WidgetConfig {
	cfg := WidgetConfig{
		Key:         intent.KeyID,
		Amount:      intent.Amount,
		Currency:    intent.Currency,
		OrderID:     intent.OrderID,
		Name:        o.opts.MerchantName,
		Description: "Course " + intent.CourseID,
		Theme:       Theme{Color: o.opts.ThemeColor},
	}

	cur := o.session.Current()
	if cur.Principal != nil {
		cfg.Prefill.Email = cur.Principal.Email
	}
	if cur.Profile != nil {
		cfg.Prefill.Name = cur.Profile.DisplayName
	}
	return cfg
}

func (o *Orchestrator) confirmationURL(courseID, enrollmentID string) string {
	q := url.Values{}
	q.Set("courseId", courseID)
	q.Set("enrollmentId", enrollmentID)
	return strings.TrimRight(o.opts.SiteURL, "/") + ConfirmationPath + "?" + q.Encode()
}

func (o *Orchestrator) setIntent(intent *CheckoutIntent) {
	o.mu.Lock()
	o.intent = intent
	o.mu.Unlock()
}

func (o *Orchestrator) transition(to State) {
	o.mu.Lock()
	t, hook := o.record(to)
	o.mu.Unlock()

	o.emit(t, hook)
}

// record must be called with o.mu held.
func (o *Orchestrator) record(to State) (Transition, func(Transition)) {
	t := Transition{From: o.state, To: to, At: o.now()}
	o.state = to
	o.history = append(o.history, t)
	return t, o.opts.OnTransition
}

func (o *Orchestrator) emit(t Transition, hook func(Transition)) {
	o.metrics.CheckoutTransition(string(t.To))
	if hook != nil {
		hook(t)
	}
}
