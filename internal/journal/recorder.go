package journal

import (
	"context"
	"fmt"

	"github.com/goodtune/breakbot/internal/notify"
	"github.com/goodtune/breakbot/internal/storage"
	"github.com/rs/zerolog"
)

// Fine decisions as stored in the journal
const (
	DecisionImposed = "imposed"
	DecisionWaived  = "waived"
)

// Recorder is a notify.Sink that writes completed breaks and fine
// decisions to the journal. Every event goes to both the user and the
// supervisor; only the supervisor copy is recorded.
type Recorder struct {
	store  storage.JournalStore
	logger zerolog.Logger
}

// NewRecorder creates a journal sink
func NewRecorder(store storage.JournalStore, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.With().Str("component", "journal").Logger(),
	}
}

// Notify implements notify.Sink
func (r *Recorder) Notify(ctx context.Context, ev notify.Event) error {
	if !ev.To.Supervisor {
		return nil
	}

	switch ev.Kind {
	case notify.KindBreakEnded:
		record := storage.BreakRecord{
			UserID:          ev.UserID,
			DisplayName:     ev.DisplayName,
			BreakType:       ev.BreakType,
			StartedAt:       ev.StartedAt,
			EndedAt:         ev.At,
			DurationMinutes: ev.DurationMinutes,
			Outcome:         outcome(ev),
		}
		if err := r.store.AppendBreak(ctx, record); err != nil {
			return fmt.Errorf("journal break: %w", err)
		}
		r.logger.Debug().
			Int64("user_id", ev.UserID).
			Str("break_type", ev.BreakType).
			Str("outcome", string(record.Outcome)).
			Msg("Break journaled")

	case notify.KindFineImposed, notify.KindFineWaived:
		decision := DecisionWaived
		if ev.Kind == notify.KindFineImposed {
			decision = DecisionImposed
		}
		record := storage.FineRecord{
			UserID:          ev.UserID,
			DisplayName:     ev.DisplayName,
			BreakType:       ev.BreakType,
			DurationMinutes: ev.DurationMinutes,
			Reason:          ev.Reason,
			Decision:        decision,
			Amount:          ev.FineAmount,
			Currency:        ev.FineCurrency,
			DecidedAt:       ev.At,
		}
		if err := r.store.AppendFine(ctx, record); err != nil {
			return fmt.Errorf("journal fine: %w", err)
		}
		r.logger.Debug().
			Int64("user_id", ev.UserID).
			Str("decision", decision).
			Msg("Fine decision journaled")
	}

	return nil
}

func outcome(ev notify.Event) storage.Outcome {
	switch {
	case ev.Expired:
		return storage.OutcomeExpired
	case ev.Early:
		return storage.OutcomeOnTime
	default:
		return storage.OutcomeLate
	}
}
