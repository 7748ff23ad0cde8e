// Package audit finds principals that have a credential but no profile.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/repository"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/metrics"
)

// maxReported caps the orphan IDs kept in a Report.
const maxReported = 100

// PrincipalSource enumerates every principal known to the identity provider.
type PrincipalSource interface {
	EachPrincipal(ctx context.Context, fn func(domain.Principal) error) error
}

type Report struct {
	Scanned int
	Orphans int
	// OrphanIDs holds at most maxReported IDs.
	OrphanIDs []string
}

// OrphanAuditor reports orphans. It does not repair them: a missing profile is
// created on the principal's next role lookup.
type OrphanAuditor struct {
	principals PrincipalSource
	users      repository.UserDirectory
	log        *slog.Logger
	metrics    *metrics.Metrics
}

func NewOrphanAuditor(principals PrincipalSource, users repository.UserDirectory, log *slog.Logger, m *metrics.Metrics) *OrphanAuditor {
	return &OrphanAuditor{principals: principals, users: users, log: log, metrics: m}
}

func (a *OrphanAuditor) Run(ctx context.Context) (*Report, error) {
	rep := &Report{}

	err := a.principals.EachPrincipal(ctx, func(p domain.Principal) error {
		rep.Scanned++
		_, err := a.users.Get(ctx, p.ID)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, domain.ErrUserNotFound):
			rep.Orphans++
			if len(rep.OrphanIDs) < maxReported {
				rep.OrphanIDs = append(rep.OrphanIDs, p.ID)
			}
			a.log.Warn("principal has no profile", slog.String("user_id", p.ID), slog.String("email", p.Email))
			return nil
		default:
			return fmt.Errorf("get profile %s: %w", p.ID, err)
		}
	})
	if err != nil {
		a.log.Error("orphan audit aborted", slog.Int("scanned", rep.Scanned), logging.Err(err))
		return rep, err
	}

	a.metrics.OrphanPrincipals(rep.Orphans)
	a.log.Info("orphan audit finished", slog.Int("scanned", rep.Scanned), slog.Int("orphans", rep.Orphans))
	return rep, nil
}
