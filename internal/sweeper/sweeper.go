// Package sweeper periodically deactivates expired matching intents.
// Queries already treat an expired intent as inactive; the sweep makes the
// state and the intent_expired events catch up.
package sweeper

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron"
)

// DefaultSchedule runs the sweep once a minute.
const DefaultSchedule = "@every 1m"

// Expirer deactivates intents whose expiry is at or before now and
// returns how many it deactivated.
type Expirer interface {
	ExpireIntents(now time.Time) int
}

// Sweeper runs an Expirer on a cron schedule.
type Sweeper struct {
	expirer  Expirer
	schedule string
	now      func() time.Time
	logger   *slog.Logger
	cron     *cron.Cron
}

// New creates a Sweeper. An empty schedule selects DefaultSchedule.
func New(expirer Expirer, schedule string, logger *slog.Logger) *Sweeper {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		expirer:  expirer,
		schedule: schedule,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start registers the sweep and starts the scheduler.
func (s *Sweeper) Start() error {
	if err := s.cron.AddFunc(s.schedule, func() { s.RunOnce() }); err != nil {
		return fmt.Errorf("sweeper: schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("intent sweeper started", "schedule", s.schedule)
	return nil
}

// RunOnce performs a single sweep and returns the number of intents expired.
func (s *Sweeper) RunOnce() int {
	n := s.expirer.ExpireIntents(s.now())
	if n > 0 {
		s.logger.Info("expired matching intents", "count", n)
	}
	return n
}

// Stop halts the scheduler. A sweep already running completes.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}
