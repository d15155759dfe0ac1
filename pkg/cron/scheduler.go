// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes exports created before a cutoff and reports how many went.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	pruner    Pruner
	retention time.Duration
	schedule  string
	now       func() time.Time
	logger    *slog.Logger
}

// NewScheduler creates a scheduler that prunes exports older than retention on
// schedule (standard 5-field cron format).
func NewScheduler(pruner Pruner, schedule string, retention time.Duration, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		pruner:    pruner,
		retention: retention,
		schedule:  schedule,
		now:       time.Now,
		logger:    logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.pruneExports)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("prune_schedule", s.schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow runs the export prune synchronously.
func (s *Scheduler) RunNow() {
	s.pruneExports()
}

func (s *Scheduler) pruneExports() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cutoff := s.now().Add(-s.retention)
	pruned, err := s.pruner.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to prune exports",
			slog.Time("cutoff", cutoff),
			slog.Int("statements_pruned", pruned),
			slog.Any("error", err),
		)
		return
	}

	s.logger.Info("export prune completed",
		slog.Time("cutoff", cutoff),
		slog.Int("statements_pruned", pruned),
	)
}
