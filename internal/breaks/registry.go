package breaks

import (
	"fmt"
	"time"
)

// DefaultAllowedDuration is how long a break may last before it counts as late
const DefaultAllowedDuration = 15 * time.Minute

type usageKey struct {
	userID int64
	typ    BreakType
}

// Registry enforces per-type capacity and per-user daily quotas and owns
// the Sessions tracker. It is not safe for concurrent use; Service
// serialises every call.
type Registry struct {
	limits    map[BreakType]Limits
	allowed   time.Duration
	occupants map[BreakType]int
	daily     map[usageKey]int
	sessions  *Sessions
}

// NewRegistry creates a registry with the given limits
func NewRegistry(limits map[BreakType]Limits, allowed time.Duration) *Registry {
	if allowed <= 0 {
		allowed = DefaultAllowedDuration
	}

	copied := make(map[BreakType]Limits, len(limits))
	for t, l := range limits {
		copied[t] = l
	}

	return &Registry{
		limits:    copied,
		allowed:   allowed,
		occupants: make(map[BreakType]int),
		daily:     make(map[usageKey]int),
		sessions:  NewSessions(),
	}
}

// Sessions exposes the read side of the session tracker
func (r *Registry) Sessions() *Sessions {
	return r.sessions
}

// AllowedMinutes is the on-time window in whole minutes
func (r *Registry) AllowedMinutes() int {
	return int(r.allowed / time.Minute)
}

// Admit grants a break slot. Checks run in a fixed order so the most
// specific error is reported first: existing session, type, daily quota,
// capacity.
func (r *Registry) Admit(userID int64, displayName string, t BreakType, now time.Time) (SessionHandle, error) {
	if current, ok := r.sessions.Current(userID); ok {
		return SessionHandle{}, fmt.Errorf("user %d on %s break: %w", userID, current.Type, ErrAlreadyOnBreak)
	}

	limits, ok := r.limits[t]
	if !ok || !t.Valid() {
		return SessionHandle{}, fmt.Errorf("%q: %w", string(t), ErrUnknownBreakType)
	}

	key := usageKey{userID: userID, typ: t}
	if r.daily[key] >= limits.Daily {
		return SessionHandle{}, fmt.Errorf("user %d %s breaks %d/%d: %w", userID, t, r.daily[key], limits.Daily, ErrDailyLimitExceeded)
	}

	if r.occupants[t] >= limits.Concurrency {
		return SessionHandle{}, fmt.Errorf("%s occupancy %d/%d: %w", t, r.occupants[t], limits.Concurrency, ErrCapacityExceeded)
	}

	r.occupants[t]++
	r.daily[key]++

	sess := Session{
		UserID:      userID,
		DisplayName: displayName,
		Type:        t,
		StartedAt:   now,
	}
	r.sessions.put(sess)

	return sess.Handle(), nil
}

// Release ends the user's break. A second call returns ErrNotOnBreak and
// leaves occupancy untouched.
func (r *Registry) Release(userID int64, now time.Time) (Outcome, error) {
	return r.release(userID, now, false)
}

// Expire ends the session identified by h if it is still the user's
// active session. It reports false when the break was already released
// or replaced by a newer one.
func (r *Registry) Expire(h SessionHandle, now time.Time) (Outcome, bool) {
	current, ok := r.sessions.Current(h.UserID)
	if !ok || !h.Matches(current) {
		return Outcome{}, false
	}

	outcome, err := r.release(h.UserID, now, true)
	if err != nil {
		panic(fmt.Sprintf("breaks: expire of tracked session %s failed: %v", h, err))
	}
	return outcome, true
}

func (r *Registry) release(userID int64, now time.Time, expired bool) (Outcome, error) {
	sess, ok := r.sessions.remove(userID)
	if !ok {
		return Outcome{}, fmt.Errorf("user %d: %w", userID, ErrNotOnBreak)
	}

	if r.occupants[sess.Type] <= 0 {
		panic(fmt.Sprintf("breaks: %s occupancy underflow releasing user %d", sess.Type, userID))
	}
	r.occupants[sess.Type]--

	// Lateness uses the exact elapsed time; the reported minutes are floored.
	return Outcome{
		Session:         sess,
		EndedAt:         now,
		DurationMinutes: DurationMinutes(sess.StartedAt, now),
		OnTime:          !expired && now.Sub(sess.StartedAt) <= r.allowed,
		Expired:         expired,
	}, nil
}

// Availability reports occupancy for every configured type in display order
func (r *Registry) Availability() []Availability {
	out := make([]Availability, 0, len(r.limits))
	for _, t := range Types {
		limits, ok := r.limits[t]
		if !ok {
			continue
		}
		out = append(out, Availability{
			Type:   t,
			Active: r.occupants[t],
			Limit:  limits.Concurrency,
		})
	}
	return out
}

// DailyCount returns how many breaks of type t the user took since the last reset
func (r *Registry) DailyCount(userID int64, t BreakType) int {
	return r.daily[usageKey{userID: userID, typ: t}]
}

// Limits returns the limits for t
func (r *Registry) Limits(t BreakType) (Limits, bool) {
	l, ok := r.limits[t]
	return l, ok
}

// Reset clears occupancy, daily counters and sessions
func (r *Registry) Reset() {
	r.occupants = make(map[BreakType]int)
	r.daily = make(map[usageKey]int)
	r.sessions.clear()
}

// DurationMinutes returns the whole minutes elapsed between start and end
func DurationMinutes(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}
