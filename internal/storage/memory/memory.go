package memory

import (
	"context"
	"sync"
	"time"

	"github.com/goodtune/breakbot/internal/storage"
)

// Store implements storage.Store in process memory. Entries live until
// the process exits.
type Store struct {
	journal *journalStore
}

// Open creates an empty in-memory store
func Open() *Store {
	return &Store{
		journal: &journalStore{
			breaks: make(map[string][]storage.BreakRecord),
			fines:  make(map[string][]storage.FineRecord),
		},
	}
}

// Close releases nothing
func (s *Store) Close() error {
	return nil
}

// Journal returns the JournalStore implementation
func (s *Store) Journal() storage.JournalStore {
	return s.journal
}

type journalStore struct {
	mu     sync.RWMutex
	breaks map[string][]storage.BreakRecord
	fines  map[string][]storage.FineRecord
}

func (s *journalStore) AppendBreak(ctx context.Context, record storage.BreakRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record.Prepare()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.breaks[record.Date] = append(s.breaks[record.Date], record)
	return nil
}

func (s *journalStore) AppendFine(ctx context.Context, record storage.FineRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record.Prepare()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fines[record.Date] = append(s.fines[record.Date], record)
	return nil
}

func (s *journalStore) ListBreaks(ctx context.Context, date string) ([]storage.BreakRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]storage.BreakRecord, len(s.breaks[date]))
	copy(out, s.breaks[date])
	s.mu.RUnlock()

	storage.SortBreaks(out)
	return out, nil
}

func (s *journalStore) ListFines(ctx context.Context, date string) ([]storage.FineRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]storage.FineRecord, len(s.fines[date]))
	copy(out, s.fines[date])
	s.mu.RUnlock()

	storage.SortFines(out)
	return out, nil
}

// Prune deletes entries from days before the day of cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	limit := storage.DateKey(cutoff)

	j := s.journal
	j.mu.Lock()
	defer j.mu.Unlock()

	deleted := 0
	for date, records := range j.breaks {
		if date < limit {
			deleted += len(records)
			delete(j.breaks, date)
		}
	}
	for date, records := range j.fines {
		if date < limit {
			deleted += len(records)
			delete(j.fines, date)
		}
	}
	return deleted, nil
}
