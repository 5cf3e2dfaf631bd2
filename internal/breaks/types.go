package breaks

import (
	"fmt"
	"strings"
	"time"
)

// BreakType is one of the fixed break categories
type BreakType string

const (
	Toilet   BreakType = "toilet"
	Drinking BreakType = "drinking"
	Outside  BreakType = "outside"
)

// Types lists every break type in display order
var Types = []BreakType{Toilet, Drinking, Outside}

// Valid reports whether t is a known break type
func (t BreakType) Valid() bool {
	switch t {
	case Toilet, Drinking, Outside:
		return true
	}
	return false
}

// Title returns the capitalised name, e.g. "Toilet"
func (t BreakType) Title() string {
	s := string(t)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseBreakType normalises user input such as "Toilet Break" or "/toilet".
// Unknown names are returned as-is so that admission can report them.
func ParseBreakType(s string) BreakType {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimSuffix(s, " break")
	return BreakType(strings.TrimSpace(s))
}

// Limits is the immutable per-type configuration
type Limits struct {
	Concurrency int // max simultaneous occupants
	Daily       int // max breaks per user per day
}

// DefaultLimits mirrors the shop-floor defaults
func DefaultLimits() map[BreakType]Limits {
	return map[BreakType]Limits{
		Toilet:   {Concurrency: 2, Daily: 5},
		Drinking: {Concurrency: 2, Daily: 5},
		Outside:  {Concurrency: 4, Daily: 5},
	}
}

// Session represents one user's active break
type Session struct {
	UserID      int64
	DisplayName string
	Type        BreakType
	StartedAt   time.Time
}

// Handle returns the handle that keys this session's timer
func (s Session) Handle() SessionHandle {
	return SessionHandle{UserID: s.UserID, Type: s.Type, StartedAt: s.StartedAt}
}

// SessionHandle identifies a single admission. A timer holding a stale
// handle never ends a newer session of the same user.
type SessionHandle struct {
	UserID    int64
	Type      BreakType
	StartedAt time.Time
}

// Matches reports whether s is the session this handle was issued for
func (h SessionHandle) Matches(s Session) bool {
	return h.UserID == s.UserID && h.Type == s.Type && h.StartedAt.Equal(s.StartedAt)
}

// String implements fmt.Stringer for logging
func (h SessionHandle) String() string {
	return fmt.Sprintf("%d:%s:%d", h.UserID, h.Type, h.StartedAt.UnixNano())
}

// Outcome is the result of releasing a break slot
type Outcome struct {
	Session         Session
	EndedAt         time.Time
	DurationMinutes int
	OnTime          bool
	// Expired is set when the timer ended the break rather than the user
	Expired bool
}

// LateReturn is a break that exceeded its allotted duration
type LateReturn struct {
	UserID          int64
	DisplayName     string
	Type            BreakType
	DurationMinutes int
	Reason          string
	RecordedAt      time.Time
}

// HasReason reports whether the user has explained the delay
func (l LateReturn) HasReason() bool {
	return l.Reason != ""
}

// Decision is the supervisor's answer to a fine request
type Decision int

const (
	Approved Decision = iota + 1
	Rejected
)

// String implements fmt.Stringer
func (d Decision) String() string {
	switch d {
	case Approved:
		return "approved"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ResolvedFine is one late return cleared by a supervisor decision
type ResolvedFine struct {
	LateReturn LateReturn
	Decision   Decision
	Amount     int
	Currency   string
	ResolvedAt time.Time
}

// Availability is the occupancy of one break type
type Availability struct {
	Type   BreakType
	Active int
	Limit  int
}
