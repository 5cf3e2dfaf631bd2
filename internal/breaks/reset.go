package breaks

import (
	"fmt"
	"sync"
	"time"

	"github.com/goodtune/breakbot/internal/clock"
	"github.com/rs/zerolog"
)

// Resetter clears daily state
type Resetter interface {
	Reset()
}

// ResetScheduler triggers a full state reset at a fixed time of day and
// re-arms itself for the next day after every reset.
type ResetScheduler struct {
	target    Resetter
	resetTime time.Time // Time of day to reset (only hour and minute are used)
	clock     clock.Clock
	logger    zerolog.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewResetScheduler creates a new reset scheduler
func NewResetScheduler(target Resetter, resetTime string, clk clock.Clock, logger zerolog.Logger) (*ResetScheduler, error) {
	// Parse reset time (HH:MM format)
	parsedTime, err := time.Parse("15:04", resetTime)
	if err != nil {
		return nil, fmt.Errorf("invalid reset time %q: %w", resetTime, err)
	}
	if clk == nil {
		clk = clock.Real{}
	}

	rs := &ResetScheduler{
		target:    target,
		resetTime: parsedTime,
		clock:     clk,
		logger:    logger.With().Str("component", "reset-scheduler").Logger(),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}

	return rs, nil
}

// Start begins the reset scheduler
func (rs *ResetScheduler) Start() {
	go rs.run()
	rs.logger.Info().
		Str("reset_time", rs.resetTime.Format("15:04")).
		Msg("Daily break reset scheduler started")
}

// Stop stops the reset scheduler and waits for its loop to exit
func (rs *ResetScheduler) Stop() {
	rs.stopOnce.Do(func() {
		close(rs.stopChan)
	})
	<-rs.done
	rs.logger.Info().Msg("Daily break reset scheduler stopped")
}

// run is the main scheduler loop
func (rs *ResetScheduler) run() {
	defer close(rs.done)

	for {
		nextReset := rs.NextReset(rs.clock.Now())
		waitDuration := nextReset.Sub(rs.clock.Now())

		rs.logger.Info().
			Time("next_reset", nextReset).
			Dur("wait_duration", waitDuration).
			Msg("Scheduled next daily reset")

		select {
		case <-rs.clock.After(waitDuration):
			rs.performReset()
		case <-rs.stopChan:
			return
		}
	}
}

// NextReset returns the first reset boundary strictly after now
func (rs *ResetScheduler) NextReset(now time.Time) time.Time {
	todayReset := time.Date(
		now.Year(), now.Month(), now.Day(),
		rs.resetTime.Hour(), rs.resetTime.Minute(), 0, 0,
		now.Location(),
	)

	// If we've already reached today's reset time, schedule for tomorrow
	if !now.Before(todayReset) {
		return todayReset.AddDate(0, 0, 1)
	}

	return todayReset
}

// performReset performs the daily reset
func (rs *ResetScheduler) performReset() {
	rs.logger.Info().Msg("Performing daily break reset")
	rs.target.Reset()
}
