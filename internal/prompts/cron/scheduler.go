package cronjob

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPurgeSchedule runs the draft purge every ten minutes.
const DefaultPurgeSchedule = "0 */10 * * * *"

// Purger applies draft retention across all users.
type Purger interface {
	PurgeAll(ctx context.Context) (int, error)
}

// Scheduler runs the draft purge on a cron schedule with seconds precision.
type Scheduler struct {
	cron    *cron.Cron
	purger  Purger
	timeout time.Duration
	logger  *slog.Logger
}

func NewScheduler(purger Purger, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		purger:  purger,
		timeout: time.Minute,
		logger:  logger.With("component", "purge_cron"),
	}
}

// Start registers the purge job and starts the cron loop. An empty spec
// falls back to DefaultPurgeSchedule.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		spec = DefaultPurgeSchedule
	}

	if _, err := s.cron.AddFunc(spec, s.runPurge); err != nil {
		return fmt.Errorf("failed to create cron job: %w", err)
	}

	s.logger.Info("cron scheduler started", "schedule", spec)
	s.cron.Start()
	return nil
}

// Stop stops scheduling new runs and waits for a running purge, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.purger.PurgeAll(ctx)
	if err != nil {
		s.logger.Error("draft purge failed", "error", err)
		return
	}
	s.logger.Debug("draft purge completed", "deleted", n, "took", time.Since(start))
}
