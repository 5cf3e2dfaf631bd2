package breaks

import (
	"time"

	"github.com/goodtune/breakbot/internal/clock"
)

type scheduled struct {
	handle SessionHandle
	timer  clock.Timer
}

// Timers schedules the auto-end callback for each admitted session.
// Cancellation is only an optimisation: the callback must still check
// that the session is live when it fires. Not safe for concurrent use;
// Service serialises every call.
type Timers struct {
	clock   clock.Clock
	pending map[int64]scheduled
}

// NewTimers creates a timer service on clk
func NewTimers(clk clock.Clock) *Timers {
	return &Timers{
		clock:   clk,
		pending: make(map[int64]scheduled),
	}
}

// Schedule arranges for onFire(h) to run after delay. A previous timer
// for the same user is stopped.
func (t *Timers) Schedule(h SessionHandle, delay time.Duration, onFire func(SessionHandle)) {
	t.Cancel(h.UserID)

	timer := t.clock.AfterFunc(delay, func() {
		onFire(h)
	})
	t.pending[h.UserID] = scheduled{handle: h, timer: timer}
}

// Cancel stops the user's pending timer, if any
func (t *Timers) Cancel(userID int64) {
	if s, ok := t.pending[userID]; ok {
		s.timer.Stop()
		delete(t.pending, userID)
	}
}

// Forget drops the bookkeeping for a timer that has fired
func (t *Timers) Forget(h SessionHandle) {
	if s, ok := t.pending[h.UserID]; ok && s.handle.Type == h.Type && s.handle.StartedAt.Equal(h.StartedAt) {
		delete(t.pending, h.UserID)
	}
}

// CancelAll stops every pending timer
func (t *Timers) CancelAll() {
	for userID, s := range t.pending {
		s.timer.Stop()
		delete(t.pending, userID)
	}
}

// Len returns the number of pending timers
func (t *Timers) Len() int {
	return len(t.pending)
}
