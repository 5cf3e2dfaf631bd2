package bolt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goodtune/breakbot/internal/storage"
	"go.etcd.io/bbolt"
)

type journalStore struct {
	db *bbolt.DB
}

func (s *journalStore) AppendBreak(ctx context.Context, record storage.BreakRecord) error {
	record.Prepare()
	return put(ctx, s.db, bucketBreaks, journalKey(record.Date, record.EndedAt, record.ID), record)
}

func (s *journalStore) AppendFine(ctx context.Context, record storage.FineRecord) error {
	record.Prepare()
	return put(ctx, s.db, bucketFines, journalKey(record.Date, record.DecidedAt, record.ID), record)
}

func (s *journalStore) ListBreaks(ctx context.Context, date string) ([]storage.BreakRecord, error) {
	records, err := listDay[storage.BreakRecord](ctx, s.db, bucketBreaks, date)
	if err != nil {
		return nil, err
	}
	storage.SortBreaks(records)
	return records, nil
}

func (s *journalStore) ListFines(ctx context.Context, date string) ([]storage.FineRecord, error) {
	records, err := listDay[storage.FineRecord](ctx, s.db, bucketFines, date)
	if err != nil {
		return nil, err
	}
	storage.SortFines(records)
	return records, nil
}

func put(ctx context.Context, db *bbolt.DB, bucket string, key []byte, value any) error {
	data, err := marshal(value)
	if err != nil {
		return err
	}
	return db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket missing: %s", bucket)
		}
		return b.Put(key, data)
	})
}

func listDay[T any](ctx context.Context, db *bbolt.DB, bucket string, date string) ([]T, error) {
	prefix := []byte(date + "/")
	items := make([]T, 0)

	err := db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var item T
			if err := unmarshal(v, &item); err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}
