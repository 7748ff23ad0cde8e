// Package guard gates routes on authentication and role.
package guard

import (
	"context"
	"log/slog"
	"slices"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/metrics"
)

type State string

const (
	StateLoading         State = "LOADING"
	StateUnauthenticated State = "UNAUTHENTICATED"
	StateAuthenticated   State = "AUTHENTICATED"
	StateAuthorized      State = "AUTHORIZED"
	StateUnauthorized    State = "UNAUTHORIZED"
)

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// RoleResolver answers which role a principal holds.
type RoleResolver interface {
	ResolveRole(ctx context.Context, p *domain.Principal) (domain.Role, error)
}

// Decision is the outcome of one route evaluation. Trace lists every state
// visited, starting with LOADING.
type Decision struct {
	State    State
	Role     domain.Role
	Redirect string
	Trace    []State
}

func (d Decision) Allowed() bool { return d.State == StateAuthorized }

type Guard struct {
	resolver RoleResolver
	log      *slog.Logger
	metrics  *metrics.Metrics
}

func New(resolver RoleResolver, log *slog.Logger, m *metrics.Metrics) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{resolver: resolver, log: log, metrics: m}
}

// Evaluate runs one role resolution for p and decides access.
//
// A principal whose role cannot be resolved is let through: first-time users
// with no role yet are treated as admin candidates. Resolution errors end up on
// the same path. Only an empty role takes it; a stored value outside the enum is
// checked against the allow-list and denied by any non-empty one.
func (g *Guard) Evaluate(ctx context.Context, p *domain.Principal, allowed ...domain.Role) Decision {
	d := Decision{State: StateLoading, Trace: []State{StateLoading}}

	if p == nil {
		return g.finish(d.to(StateUnauthenticated), LoginPath)
	}
	d = d.to(StateAuthenticated)

	role, err := g.resolver.ResolveRole(ctx, p)
	if err != nil {
		logging.FromContext(ctx, g.log).Error("guard role resolution failed",
			slog.String("user_id", p.ID), logging.Err(err))
		role = domain.RoleUnknown
	}
	d.Role = role

	switch role {
	case domain.RoleUnknown:
		logging.FromContext(ctx, g.log).Warn("granting access to principal without a role",
			slog.String("user_id", p.ID))
		return g.finish(d.to(StateAuthorized), "")
	case domain.RoleAdmin, domain.RoleStudent, domain.RoleMentor, domain.RoleCreator, domain.RoleDataAnalyst:
		return g.checkAllowList(d, allowed)
	default:
		// Out-of-enum stored values, e.g. a legacy "teacher" role.
		return g.checkAllowList(d, allowed)
	}
}

func (g *Guard) checkAllowList(d Decision, allowed []domain.Role) Decision {
	if len(allowed) > 0 && !slices.Contains(allowed, d.Role) {
		return g.finish(d.to(StateUnauthorized), UnauthorizedPath)
	}
	return g.finish(d.to(StateAuthorized), "")
}

func (g *Guard) finish(d Decision, redirect string) Decision {
	d.Redirect = redirect
	g.metrics.GuardDecided(string(d.State))
	return d
}

func (d Decision) to(s State) Decision {
	d.State = s
	d.Trace = append(append([]State(nil), d.Trace...), s)
	return d
}
