package redis

import (
	"context"
	"time"

	"github.com/goodtune/breakbot/internal/storage"
	"github.com/redis/go-redis/v9"
)

var (
	appendBreak = redis.NewScript(appendBreakScript)
	appendFine  = redis.NewScript(appendFineScript)
)

type journalStore struct {
	client     *redis.Client
	ttlSeconds int64
}

// AppendBreak stores a completed break
func (s *journalStore) AppendBreak(ctx context.Context, record storage.BreakRecord) error {
	record.Prepare()

	keys := []string{breakKey(record.ID), breakIndexKey(record.Date)}
	args := []interface{}{
		record.ID,
		record.Date,
		record.UserID,
		record.DisplayName,
		record.BreakType,
		record.StartedAt.Format(time.RFC3339Nano),
		record.EndedAt.Format(time.RFC3339Nano),
		record.DurationMinutes,
		string(record.Outcome),
		s.ttlSeconds,
	}

	return appendBreak.Run(ctx, s.client, keys, args...).Err()
}

// AppendFine stores a fine decision
func (s *journalStore) AppendFine(ctx context.Context, record storage.FineRecord) error {
	record.Prepare()

	keys := []string{fineKey(record.ID), fineIndexKey(record.Date)}
	args := []interface{}{
		record.ID,
		record.Date,
		record.UserID,
		record.DisplayName,
		record.BreakType,
		record.DurationMinutes,
		record.Reason,
		record.Decision,
		record.Amount,
		record.Currency,
		record.DecidedAt.Format(time.RFC3339Nano),
		s.ttlSeconds,
	}

	return appendFine.Run(ctx, s.client, keys, args...).Err()
}

// ListBreaks returns the breaks that ended on date
func (s *journalStore) ListBreaks(ctx context.Context, date string) ([]storage.BreakRecord, error) {
	hashes, err := s.loadIndex(ctx, breakIndexKey(date), breakKey)
	if err != nil {
		return nil, err
	}

	records := make([]storage.BreakRecord, 0, len(hashes))
	for _, data := range hashes {
		record, err := parseBreakRecord(data)
		if err == nil {
			records = append(records, *record)
		}
	}
	storage.SortBreaks(records)

	return records, nil
}

// ListFines returns the fine decisions made on date
func (s *journalStore) ListFines(ctx context.Context, date string) ([]storage.FineRecord, error) {
	hashes, err := s.loadIndex(ctx, fineIndexKey(date), fineKey)
	if err != nil {
		return nil, err
	}

	records := make([]storage.FineRecord, 0, len(hashes))
	for _, data := range hashes {
		record, err := parseFineRecord(data)
		if err == nil {
			records = append(records, *record)
		}
	}
	storage.SortFines(records)

	return records, nil
}

// loadIndex fetches every hash named in a day index. Expired members are skipped.
func (s *journalStore) loadIndex(ctx context.Context, indexKey string, recordKey func(string) string) ([]map[string]string, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return nil, nil
	}

	// Use pipeline for batch retrieval
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, recordKey(id))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	hashes := make([]map[string]string, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		hashes = append(hashes, data)
	}

	return hashes, nil
}
