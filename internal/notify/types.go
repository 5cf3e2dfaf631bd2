package notify

import (
	"context"
	"time"
)

// Kind identifies what happened.
type Kind string

const (
	KindBreakStarted       Kind = "break_started"
	KindBreakEnded         Kind = "break_ended"
	KindLateWarning        Kind = "late_warning"
	KindFineRequested      Kind = "fine_requested"
	KindFineImposed        Kind = "fine_imposed"
	KindFineWaived         Kind = "fine_waived"
	KindAvailabilityReport Kind = "availability_report"
	KindRejected           Kind = "rejected"
	KindDailyReset         Kind = "daily_reset"
	KindHelp               Kind = "help"
)

// Recipient is either the supervisor or a single user.
type Recipient struct {
	Supervisor bool
	UserID     int64
}

// Supervisor addresses the supervisor chat.
func Supervisor() Recipient {
	return Recipient{Supervisor: true}
}

// User addresses a user's private chat.
func User(userID int64) Recipient {
	return Recipient{UserID: userID}
}

// Slot describes occupancy of one break type.
type Slot struct {
	BreakType string
	Active    int
	Limit     int
}

// Event is a structured notification. Which fields are set depends on Kind.
type Event struct {
	Kind        Kind
	To          Recipient
	At          time.Time
	UserID      int64
	DisplayName string
	BreakType   string

	// StartedAt is set on BreakEnded.
	StartedAt time.Time
	// Break timing, in whole minutes.
	DurationMinutes int
	AllowedMinutes  int
	// Early is set on BreakEnded when the user returned explicitly and on time.
	Early bool
	// Expired is set on BreakEnded when the timer ended the break.
	Expired bool

	Reason       string
	FineAmount   int
	FineCurrency string

	Slots []Slot

	// Err and Limit explain a Rejected event; Limit is the daily or
	// concurrency limit that was hit.
	Err   error
	Limit int
}

// Sink delivers events to their recipients.
type Sink interface {
	Notify(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event) error

// Notify calls f.
func (f SinkFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Publisher accepts events without blocking the caller.
type Publisher interface {
	Publish(events ...Event)
}
