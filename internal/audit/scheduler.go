package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// runTimeout bounds a single scheduled audit.
const runTimeout = 10 * time.Minute

type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// NewScheduler runs auditor on a six-field cron spec (seconds first).
// Overlapping runs are skipped.
func NewScheduler(spec string, auditor *OrphanAuditor, log *slog.Logger) (*Scheduler, error) {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		_, _ = auditor.Run(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule orphan audit %q: %w", spec, err)
	}

	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.Info("orphan audit scheduled", slog.Time("next", e.Next))
	}
}

// Stop waits for a running audit to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
