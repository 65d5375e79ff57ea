// Package cleanup runs the expired-state sweep: a scheduled task that
// deletes expired sessions and expired or consumed one-time codes.
// The sweep is idempotent and safe to run concurrently with live
// traffic; deleting an already-deleted row is a no-op.
package cleanup

import (
	"context"
	"log/slog"

	"github.com/medira/clinic-server/pkg/repository"
	"github.com/robfig/cron/v3"
)

// Cleaner owns the sweep schedule. It runs independently of request
// handling so cleanup cost never lands on a user-facing request.
type Cleaner struct {
	sessions *repository.SessionsRepository
	codes    *repository.CodesRepository
	logger   *slog.Logger
	cron     *cron.Cron
}

// New creates a cleaner sweeping on the given cron schedule
// (defaults to every 10 minutes).
func New(sessions *repository.SessionsRepository, codes *repository.CodesRepository, logger *slog.Logger, schedule string) *Cleaner {
	if schedule == "" {
		schedule = "@every 10m"
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cleaner{
		sessions: sessions,
		codes:    codes,
		logger:   logger,
		cron:     cron.New(),
	}
	_, _ = c.cron.AddFunc(schedule, func() {
		c.Sweep(context.Background())
	})
	return c
}

// Start launches the schedule.
func (c *Cleaner) Start() {
	c.cron.Start()
}

// Stop cancels the schedule and waits for a running sweep to finish.
func (c *Cleaner) Stop() {
	<-c.cron.Stop().Done()
}

// Sweep deletes expired sessions and expired or consumed one-time
// codes.
func (c *Cleaner) Sweep(ctx context.Context) {
	if n, err := c.sessions.DeleteExpired(ctx); err != nil {
		c.logger.Error("expired session sweep failed", "error", err)
	} else if n > 0 {
		c.logger.Info("deleted expired sessions", "count", n)
	}

	if n, err := c.codes.DeleteExpiredOrConsumed(ctx); err != nil {
		c.logger.Error("one-time code sweep failed", "error", err)
	} else if n > 0 {
		c.logger.Info("deleted spent one-time codes", "count", n)
	}
}
