// Package scheduler runs the periodic reminder sweep.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/raido/internal/directiveservice"
)

// Scheduler fires the reminder sweep once per day at the configured hour.
// It polls on a short interval rather than sleeping until the target time
// so that clock adjustments and restarts are handled naturally.
type Scheduler struct {
	svc      *directiveservice.Service
	interval time.Duration
	sendHour int
	logger   *slog.Logger

	now     func() time.Time
	lastRun time.Time
}

// New creates a scheduler that checks every interval and sweeps at sendHour
// (local time, 0-23).
func New(svc *directiveservice.Service, interval time.Duration, sendHour int, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		svc:      svc,
		interval: interval,
		sendHour: sendHour,
		logger:   logger,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled, sweeping once per day when the send
// hour has been reached.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("reminder scheduler started",
		slog.Int("send_hour", s.sendHour),
		slog.Duration("check_interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped")
			return nil
		case <-ticker.C:
			now := s.now()
			if !s.shouldRun(now) {
				continue
			}
			s.lastRun = now
			if _, err := s.svc.Sweep(ctx); err != nil {
				// The sweep isolates per-item failures; an error here is
				// settings/storage level and worth retrying next cycle.
				s.logger.Error("scheduled sweep failed", slog.String("error", err.Error()))
				s.lastRun = time.Time{}
			}
		}
	}
}

// shouldRun reports whether the daily sweep is owed: the send hour has
// passed and no sweep has run yet today.
func (s *Scheduler) shouldRun(now time.Time) bool {
	if now.Hour() < s.sendHour {
		return false
	}
	return !sameDay(s.lastRun, now)
}

func sameDay(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
