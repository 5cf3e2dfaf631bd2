package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goodtune/breakbot/internal/breaks"
	"github.com/goodtune/breakbot/internal/metrics"
	"github.com/goodtune/breakbot/internal/notify"
	"github.com/rs/zerolog"
)

// Service is the part of breaks.Service the handler drives
type Service interface {
	StartBreak(userID int64, displayName string, t breaks.BreakType) (breaks.SessionHandle, error)
	EndBreak(userID int64) (breaks.Outcome, error)
	SubmitReason(userID int64, reason string) (breaks.LateReturn, error)
	ResolveFines(decision breaks.Decision) []breaks.ResolvedFine
	Availability() []breaks.Availability
	Limits(t breaks.BreakType) (breaks.Limits, bool)
}

// Inbound is one message or button press from a chat
type Inbound struct {
	UserID         int64
	ChatID         int64
	DisplayName    string
	Text           string
	FromSupervisor bool
	At             time.Time
}

// Handler translates inbound chat messages into break operations. User
// errors come back to the user as Rejected notifications.
type Handler struct {
	service   Service
	publisher notify.Publisher
	logger    zerolog.Logger
}

// NewHandler creates a new inbound command handler
func NewHandler(service Service, publisher notify.Publisher, logger zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		publisher: publisher,
		logger:    logger.With().Str("component", "dispatch").Logger(),
	}
}

// OnUserCommand parses in and applies it. The returned command is what the
// message was understood as.
func (h *Handler) OnUserCommand(ctx context.Context, in Inbound) Command {
	cmd := Parse(in.Text, in.FromSupervisor)
	metrics.CommandsReceived.WithLabelValues(cmd.Kind.String()).Inc()

	if in.At.IsZero() {
		in.At = time.Now()
	}

	h.logger.Debug().
		Int64("user_id", in.UserID).
		Str("command", cmd.Kind.String()).
		Bool("supervisor", in.FromSupervisor).
		Msg("Inbound command")

	switch cmd.Kind {
	case StartBreak:
		if _, err := h.service.StartBreak(in.UserID, in.DisplayName, cmd.BreakType); err != nil {
			h.reject(in, cmd, err)
		}

	case ReturnFromBreak:
		_, err := h.service.EndBreak(in.UserID)
		if errors.Is(err, breaks.ErrNotOnBreak) && isPlainText(cmd.Text) {
			// "back" typed after an auto-ended break answers the reason prompt
			if _, rerr := h.service.SubmitReason(in.UserID, cmd.Text); rerr == nil {
				return Command{Kind: SupplyReason, Text: cmd.Text}
			}
		}
		if err != nil {
			h.reject(in, cmd, err)
		}

	case SupplyReason:
		if _, err := h.service.SubmitReason(in.UserID, cmd.Text); err != nil {
			// Supervisor chatter that is not a decision is not a reason
			if in.FromSupervisor && errors.Is(err, breaks.ErrNoPendingLateReturn) {
				return cmd
			}
			h.reject(in, cmd, err)
		}

	case SupervisorDecision:
		resolved := h.service.ResolveFines(cmd.Decision)
		if len(resolved) == 0 {
			h.logger.Debug().Str("decision", cmd.Decision.String()).Msg("No late returns awaiting a decision")
		}

	case CheckAvailability:
		h.publish(notify.Event{
			Kind:   notify.KindAvailabilityReport,
			To:     h.replyTo(in),
			At:     in.At,
			UserID: in.UserID,
			Slots:  slots(h.service.Availability()),
		})

	case Help:
		h.publish(notify.Event{
			Kind:   notify.KindHelp,
			To:     h.replyTo(in),
			At:     in.At,
			UserID: in.UserID,
		})
	}

	return cmd
}

func (h *Handler) reject(in Inbound, cmd Command, err error) {
	ev := notify.Event{
		Kind:        notify.KindRejected,
		To:          notify.User(in.UserID),
		At:          in.At,
		UserID:      in.UserID,
		DisplayName: in.DisplayName,
		BreakType:   string(cmd.BreakType),
		Err:         err,
	}

	if limits, ok := h.service.Limits(cmd.BreakType); ok {
		switch {
		case errors.Is(err, breaks.ErrDailyLimitExceeded):
			ev.Limit = limits.Daily
		case errors.Is(err, breaks.ErrCapacityExceeded):
			ev.Limit = limits.Concurrency
		}
	}

	h.logger.Info().
		Err(err).
		Int64("user_id", in.UserID).
		Str("command", cmd.Kind.String()).
		Str("reason", breaks.ErrorReason(err)).
		Msg("Command rejected")

	h.publish(ev)
}

func (h *Handler) replyTo(in Inbound) notify.Recipient {
	if in.FromSupervisor {
		return notify.Supervisor()
	}
	return notify.User(in.UserID)
}

func (h *Handler) publish(ev notify.Event) {
	if h.publisher != nil {
		h.publisher.Publish(ev)
	}
}

func isPlainText(text string) bool {
	return text != "" && text != ReturnCallbackData && !strings.HasPrefix(text, "/")
}

func slots(avail []breaks.Availability) []notify.Slot {
	out := make([]notify.Slot, 0, len(avail))
	for _, a := range avail {
		out = append(out, notify.Slot{
			BreakType: string(a.Type),
			Active:    a.Active,
			Limit:     a.Limit,
		})
	}
	return out
}
