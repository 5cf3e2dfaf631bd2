package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/goodtune/breakbot/internal/storage"
	"go.etcd.io/bbolt"
)

const (
	bucketBreaks = "journal_breaks"
	bucketFines  = "journal_fines"
)

// Store implements the storage.Store interface using bbolt.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store.
func Open(path string) (*Store, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return storage.EnsureDir(dir)
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketBreaks, bucketFines} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// Close closes the underlying store database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Journal returns the journal store.
func (s *Store) Journal() storage.JournalStore { return &journalStore{db: s.db} }

// Prune deletes journal entries from days before the day of cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	limit := storage.DateKey(cutoff)
	deleted := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketBreaks, bucketFines} {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			var stale [][]byte
			c := b.Cursor()
			for k, _ := c.First(); k != nil && string(k[:len(storage.DateLayout)]) < limit; k, _ = c.Next() {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				stale = append(stale, append([]byte(nil), k...))
			}
			for _, k := range stale {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
			deleted += len(stale)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}

func marshal(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return data, nil
}

func unmarshal(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal value: %w", err)
	}
	return nil
}

// journalKey orders entries by day, then time, then ID.
func journalKey(date string, ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s/%020d/%s", date, ts.UnixNano(), id))
}
