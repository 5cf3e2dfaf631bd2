package breaks

import "errors"

// Admission and workflow errors. All of them are user errors: the caller
// reports them to the requesting user and carries on.
var (
	ErrAlreadyOnBreak      = errors.New("breaks: already on break")
	ErrUnknownBreakType    = errors.New("breaks: unknown break type")
	ErrDailyLimitExceeded  = errors.New("breaks: daily limit exceeded")
	ErrCapacityExceeded    = errors.New("breaks: capacity exceeded")
	ErrNotOnBreak          = errors.New("breaks: not on break")
	ErrNoPendingLateReturn = errors.New("breaks: no pending late return")
)

// ErrorReason returns a short label for metrics and logs
func ErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyOnBreak):
		return "already_on_break"
	case errors.Is(err, ErrUnknownBreakType):
		return "unknown_break_type"
	case errors.Is(err, ErrDailyLimitExceeded):
		return "daily_limit_exceeded"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrNotOnBreak):
		return "not_on_break"
	case errors.Is(err, ErrNoPendingLateReturn):
		return "no_pending_late_return"
	default:
		return "internal"
	}
}
