package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goodtune/breakbot/internal/config"
	"github.com/goodtune/breakbot/internal/storage"
)

const testRetention = 90 * 24 * time.Hour

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port", so Port stays 0
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg, testRetention)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestOpen_InvalidTimeout(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		DialTimeout:  "later",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	if _, err := Open(cfg, testRetention); err == nil {
		t.Error("Expected error for invalid dial_timeout")
	}
}

func TestJournal_AppendAndListBreaks(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()
	journal := store.Journal()

	ended := time.Date(2024, 5, 6, 10, 20, 0, 0, time.UTC)
	second := storage.BreakRecord{
		UserID:          7,
		DisplayName:     "@bob",
		BreakType:       "outside",
		StartedAt:       ended.Add(-5 * time.Minute),
		EndedAt:         ended,
		DurationMinutes: 5,
		Outcome:         storage.OutcomeOnTime,
	}
	first := storage.BreakRecord{
		ID:              "early",
		UserID:          42,
		DisplayName:     "@alice",
		BreakType:       "toilet",
		StartedAt:       ended.Add(-40 * time.Minute),
		EndedAt:         ended.Add(-20 * time.Minute),
		DurationMinutes: 20,
		Outcome:         storage.OutcomeLate,
	}

	for _, r := range []storage.BreakRecord{second, first} {
		if err := journal.AppendBreak(ctx, r); err != nil {
			t.Fatalf("AppendBreak failed: %v", err)
		}
	}

	records, err := journal.ListBreaks(ctx, "2024-05-06")
	if err != nil {
		t.Fatalf("ListBreaks failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	got := records[0]
	if got.ID != "early" || got.UserID != 42 || got.DisplayName != "@alice" {
		t.Errorf("Unexpected first record %+v", got)
	}
	if got.Outcome != storage.OutcomeLate || got.DurationMinutes != 20 {
		t.Errorf("Expected late 20 minute break, got %s %d", got.Outcome, got.DurationMinutes)
	}
	if !got.StartedAt.Equal(first.StartedAt) || !got.EndedAt.Equal(first.EndedAt) {
		t.Errorf("Timestamps did not round trip: %+v", got)
	}
	if records[1].ID == "" {
		t.Error("Expected generated ID on second record")
	}

	// Record and index both carry the retention TTL
	if ttl := mr.TTL("breakbot:break:early"); ttl != testRetention {
		t.Errorf("Expected record TTL %s, got %s", testRetention, ttl)
	}
	if ttl := mr.TTL("breakbot:breaks:index:2024-05-06"); ttl != testRetention {
		t.Errorf("Expected index TTL %s, got %s", testRetention, ttl)
	}
}

func TestJournal_ListOtherDay(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	err := store.Journal().AppendBreak(ctx, storage.BreakRecord{
		UserID:    1,
		BreakType: "toilet",
		EndedAt:   time.Date(2024, 5, 6, 23, 59, 0, 0, time.UTC),
		Outcome:   storage.OutcomeOnTime,
	})
	if err != nil {
		t.Fatalf("AppendBreak failed: %v", err)
	}

	records, err := store.Journal().ListBreaks(ctx, "2024-05-07")
	if err != nil {
		t.Fatalf("ListBreaks failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}

func TestJournal_ExpiredRecordsSkipped(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	err := store.Journal().AppendBreak(ctx, storage.BreakRecord{
		ID:        "gone",
		UserID:    1,
		BreakType: "drinking",
		EndedAt:   time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC),
		Outcome:   storage.OutcomeOnTime,
	})
	if err != nil {
		t.Fatalf("AppendBreak failed: %v", err)
	}

	// Drop the hash but leave a stale index entry behind
	mr.Del("breakbot:break:gone")

	records, err := store.Journal().ListBreaks(ctx, "2024-05-06")
	if err != nil {
		t.Fatalf("ListBreaks failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected stale entry to be skipped, got %d", len(records))
	}

	mr.FastForward(testRetention + time.Second)
	if mr.Exists("breakbot:breaks:index:2024-05-06") {
		t.Error("Expected index to expire")
	}
}

func TestJournal_AppendAndListFines(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()
	journal := store.Journal()

	decided := time.Date(2024, 5, 6, 11, 0, 0, 0, time.UTC)
	fine := storage.FineRecord{
		ID:              "fine-1",
		UserID:          42,
		DisplayName:     "@alice",
		BreakType:       "toilet",
		DurationMinutes: 20,
		Reason:          "queue at the canteen",
		Decision:        "imposed",
		Amount:          100,
		Currency:        "PKR",
		DecidedAt:       decided,
	}
	if err := journal.AppendFine(ctx, fine); err != nil {
		t.Fatalf("AppendFine failed: %v", err)
	}

	fines, err := journal.ListFines(ctx, "2024-05-06")
	if err != nil {
		t.Fatalf("ListFines failed: %v", err)
	}
	if len(fines) != 1 {
		t.Fatalf("Expected 1 fine, got %d", len(fines))
	}

	got := fines[0]
	if got.Reason != fine.Reason || got.Decision != "imposed" {
		t.Errorf("Unexpected fine %+v", got)
	}
	if got.Amount != 100 || got.Currency != "PKR" {
		t.Errorf("Expected 100 PKR, got %d %s", got.Amount, got.Currency)
	}
	if !got.DecidedAt.Equal(decided) {
		t.Errorf("Expected decided_at %s, got %s", decided, got.DecidedAt)
	}
	if got.Date != "2024-05-06" {
		t.Errorf("Expected date 2024-05-06, got %s", got.Date)
	}

	if ttl := mr.TTL("breakbot:fine:fine-1"); ttl != testRetention {
		t.Errorf("Expected fine TTL %s, got %s", testRetention, ttl)
	}
}
