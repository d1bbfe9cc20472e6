// Package janitor clears OTP challenges that expired without being used.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/metrics"
	"github.com/robfig/cron/v3"
)

type challengePurger interface {
	PurgeExpiredChallenges(ctx context.Context, now time.Time) (int, error)
}

type Janitor struct {
	repo     challengePurger
	schedule cron.Schedule
	logger   *slog.Logger
	now      func() time.Time
}

// New parses schedule as a standard cron expression or descriptor ("@every 5m").
func New(repo challengePurger, schedule string, logger *slog.Logger) (*Janitor, error) {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("parse purge schedule %q: %w", schedule, err)
	}
	// cron returns the zero time for expressions that never match, e.g. Feb 30.
	if sched.Next(time.Now()).IsZero() {
		return nil, fmt.Errorf("purge schedule %q never fires", schedule)
	}
	return &Janitor{
		repo:     repo,
		schedule: sched,
		logger:   logger.With("component", "janitor"),
		now:      time.Now,
	}, nil
}

func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("janitor started", "next_run", j.schedule.Next(j.now()))

	for {
		next := j.schedule.Next(j.now())
		if next.IsZero() {
			j.logger.Error("purge schedule has no next run, janitor stopping")
			return
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info("janitor shut down")
			return
		case <-timer.C:
			_, _ = j.Purge(ctx)
		}
	}
}

// Purge runs one cycle and returns how many challenges were cleared.
func (j *Janitor) Purge(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.PurgeCycleDuration.Observe(time.Since(start).Seconds())
	}()

	n, err := j.repo.PurgeExpiredChallenges(ctx, j.now())
	if err != nil {
		j.logger.ErrorContext(ctx, "purge expired challenges", "error", err)
		return 0, err
	}
	if n > 0 {
		metrics.ChallengesPurgedTotal.Add(float64(n))
		j.logger.InfoContext(ctx, "purged expired challenges", "count", n)
	}
	return n, nil
}
