// Package metrics holds the Prometheus collectors for access and checkout flows.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	roleResolutions     *prometheus.CounterVec
	guardDecisions      *prometheus.CounterVec
	signups             *prometheus.CounterVec
	checkoutTransitions *prometheus.CounterVec
	orphanPrincipals    prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		roleResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lms",
			Name:      "role_resolutions_total",
			Help:      "Role lookups by outcome (found, bootstrap_admin, created_admin, error).",
		}, []string{"outcome"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lms",
			Name:      "guard_decisions_total",
			Help:      "Access guard terminal states.",
		}, []string{"state"}),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lms",
			Name:      "signups_total",
			Help:      "Signups by outcome and assigned role.",
		}, []string{"outcome", "role"}),
		checkoutTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lms",
			Name:      "checkout_transitions_total",
			Help:      "Checkout state machine transitions by target state.",
		}, []string{"state"}),
		orphanPrincipals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lms",
			Name:      "orphan_principals",
			Help:      "Principals without a profile at the last audit.",
		}),
	}
	reg.MustRegister(m.roleResolutions, m.guardDecisions, m.signups, m.checkoutTransitions, m.orphanPrincipals)
	return m
}

func (m *Metrics) RoleResolved(outcome string) {
	if m == nil {
		return
	}
	m.roleResolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GuardDecided(state string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(state).Inc()
}

func (m *Metrics) Signup(outcome, role string) {
	if m == nil {
		return
	}
	m.signups.WithLabelValues(outcome, role).Inc()
}

func (m *Metrics) CheckoutTransition(state string) {
	if m == nil {
		return
	}
	m.checkoutTransitions.WithLabelValues(state).Inc()
}

func (m *Metrics) OrphanPrincipals(n int) {
	if m == nil {
		return
	}
	m.orphanPrincipals.Set(float64(n))
}
