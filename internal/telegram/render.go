package telegram

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goodtune/breakbot/internal/breaks"
	"github.com/goodtune/breakbot/internal/notify"
)

// Render turns an event into the chat text for its recipient
func Render(ev notify.Event) string {
	typ := ev.BreakType
	name := ev.DisplayName

	switch ev.Kind {
	case notify.KindBreakStarted:
		if ev.To.Supervisor {
			return fmt.Sprintf("%s has started a %s break at %s.", name, typ, ev.At.Format("15:04:05"))
		}
		return fmt.Sprintf("Your %s break has started. You have %d minutes. Please return on time!", typ, ev.AllowedMinutes)

	case notify.KindBreakEnded:
		if !ev.To.Supervisor {
			return fmt.Sprintf("%s took %s for %s.\nYou can go for another break after %d minutes.",
				name, minutes(ev.DurationMinutes), typ, ev.AllowedMinutes)
		}
		switch {
		case ev.Expired:
			return fmt.Sprintf("%s did not return: their %s break ended automatically after %s.",
				name, typ, minutes(ev.DurationMinutes))
		case ev.Early:
			return fmt.Sprintf("%s has returned early from their %s break after %s.",
				name, typ, minutes(ev.DurationMinutes))
		default:
			return fmt.Sprintf("%s has ended their %s break after %s (%s).",
				name, typ, minutes(ev.DurationMinutes), lateBy(ev))
		}

	case notify.KindLateWarning:
		if ev.Expired {
			return fmt.Sprintf("Your %s break time of %d minutes is over. You are late! Please provide a reason for your delay.",
				typ, ev.AllowedMinutes)
		}
		return "You are late! Please provide a reason for your delay."

	case notify.KindFineRequested:
		return fmt.Sprintf("%s was late for their %s break by %s.\nReason: %s\nApprove fine of %d %s? (Yes/No)",
			name, typ, lateMinutes(ev), ev.Reason, ev.FineAmount, ev.FineCurrency)

	case notify.KindFineImposed:
		if ev.To.Supervisor {
			return fmt.Sprintf("Fine of %d %s imposed on %s.", ev.FineAmount, ev.FineCurrency, name)
		}
		return fmt.Sprintf("A fine of %d %s has been imposed for being late on your %s break.",
			ev.FineAmount, ev.FineCurrency, typ)

	case notify.KindFineWaived:
		if ev.To.Supervisor {
			return fmt.Sprintf("No fine imposed on %s.", name)
		}
		return "Your reason for being late has been accepted. No fine imposed."

	case notify.KindAvailabilityReport:
		var b strings.Builder
		b.WriteString("Break Availability:\n")
		for _, slot := range ev.Slots {
			fmt.Fprintf(&b, "- %s: %d/%d people\n", breaks.BreakType(slot.BreakType).Title(), slot.Active, slot.Limit)
		}
		return strings.TrimRight(b.String(), "\n")

	case notify.KindDailyReset:
		return "Break data reset for the new day."

	case notify.KindHelp:
		return "Please choose a break type:"

	case notify.KindRejected:
		return renderRejection(ev)
	}

	return ""
}

func renderRejection(ev notify.Event) string {
	switch {
	case errors.Is(ev.Err, breaks.ErrAlreadyOnBreak):
		return "You must return from your current break before starting a new one."
	case errors.Is(ev.Err, breaks.ErrUnknownBreakType):
		return "Invalid break type. Please try again."
	case errors.Is(ev.Err, breaks.ErrDailyLimitExceeded):
		return fmt.Sprintf("You've reached your daily %s break limit (%d).", ev.BreakType, ev.Limit)
	case errors.Is(ev.Err, breaks.ErrCapacityExceeded):
		return fmt.Sprintf("Sorry, only %d people are allowed on a %s break at a time.", ev.Limit, ev.BreakType)
	case errors.Is(ev.Err, breaks.ErrNotOnBreak):
		return "You are not currently on a break."
	case errors.Is(ev.Err, breaks.ErrNoPendingLateReturn):
		return "You are not currently on a break, and no late return is waiting for a reason."
	default:
		return "Something went wrong. Please try again."
	}
}

func minutes(n int) string {
	if n == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", n)
}

func lateMinutes(ev notify.Event) string {
	late := ev.DurationMinutes - ev.AllowedMinutes
	if late < 1 {
		return "less than a minute"
	}
	return minutes(late)
}

func lateBy(ev notify.Event) string {
	return lateMinutes(ev) + " late"
}
