package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
// Only the journal is stored; live break state is never persisted.
type Store interface {
	Close() error
	Journal() JournalStore
}

// JournalStore keeps an append-only audit trail of completed breaks and
// fine decisions, indexed by day.
type JournalStore interface {
	AppendBreak(ctx context.Context, record BreakRecord) error
	AppendFine(ctx context.Context, record FineRecord) error
	ListBreaks(ctx context.Context, date string) ([]BreakRecord, error)
	ListFines(ctx context.Context, date string) ([]FineRecord, error)
}

// DateLayout is the layout of journal day keys
const DateLayout = "2006-01-02"

// DateKey returns the journal day t belongs to, in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// Pruner is implemented by stores that delete old journal entries on
// request rather than expiring them on their own.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}
