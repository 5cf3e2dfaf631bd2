package redis

import (
	"errors"
	"testing"

	"github.com/goodtune/breakbot/internal/storage"
)

func TestParseBreakRecord(t *testing.T) {
	if _, err := parseBreakRecord(map[string]string{}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for empty hash, got %v", err)
	}

	data := map[string]string{
		"id":               "b1",
		"date":             "2024-05-06",
		"user_id":          "not-a-number",
		"started_at":       "2024-05-06T10:00:00Z",
		"ended_at":         "2024-05-06T10:05:00Z",
		"duration_minutes": "5",
		"outcome":          "on_time",
	}
	if _, err := parseBreakRecord(data); err == nil {
		t.Error("Expected error for invalid user_id")
	}

	data["user_id"] = "42"
	record, err := parseBreakRecord(data)
	if err != nil {
		t.Fatalf("parseBreakRecord failed: %v", err)
	}
	if record.UserID != 42 || record.DurationMinutes != 5 || record.Outcome != storage.OutcomeOnTime {
		t.Errorf("Unexpected record %+v", record)
	}
}

func TestParseFineRecord(t *testing.T) {
	data := map[string]string{
		"id":               "f1",
		"user_id":          "42",
		"duration_minutes": "20",
		"amount":           "100",
		"decided_at":       "yesterday",
	}
	if _, err := parseFineRecord(data); err == nil {
		t.Error("Expected error for invalid decided_at")
	}

	data["decided_at"] = "2024-05-06T11:00:00Z"
	record, err := parseFineRecord(data)
	if err != nil {
		t.Fatalf("parseFineRecord failed: %v", err)
	}
	if record.Amount != 100 || record.DurationMinutes != 20 {
		t.Errorf("Unexpected record %+v", record)
	}
}
