package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/breakbot/internal/storage"
)

func breakKey(id string) string {
	return fmt.Sprintf("breakbot:break:%s", id)
}

func breakIndexKey(date string) string {
	return fmt.Sprintf("breakbot:breaks:index:%s", date)
}

func fineKey(id string) string {
	return fmt.Sprintf("breakbot:fine:%s", id)
}

func fineIndexKey(date string) string {
	return fmt.Sprintf("breakbot:fines:index:%s", date)
}

// parseBreakRecord converts a Redis hash to BreakRecord
func parseBreakRecord(data map[string]string) (*storage.BreakRecord, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	userID, err := strconv.ParseInt(data["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user_id: %w", err)
	}

	startedAt, err := time.Parse(time.RFC3339Nano, data["started_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}

	endedAt, err := time.Parse(time.RFC3339Nano, data["ended_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse ended_at: %w", err)
	}

	minutes, err := strconv.Atoi(data["duration_minutes"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration_minutes: %w", err)
	}

	return &storage.BreakRecord{
		ID:              data["id"],
		Date:            data["date"],
		UserID:          userID,
		DisplayName:     data["display_name"],
		BreakType:       data["break_type"],
		StartedAt:       startedAt,
		EndedAt:         endedAt,
		DurationMinutes: minutes,
		Outcome:         storage.Outcome(data["outcome"]),
	}, nil
}

// parseFineRecord converts a Redis hash to FineRecord
func parseFineRecord(data map[string]string) (*storage.FineRecord, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	userID, err := strconv.ParseInt(data["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user_id: %w", err)
	}

	minutes, err := strconv.Atoi(data["duration_minutes"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration_minutes: %w", err)
	}

	amount, err := strconv.Atoi(data["amount"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}

	decidedAt, err := time.Parse(time.RFC3339Nano, data["decided_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse decided_at: %w", err)
	}

	return &storage.FineRecord{
		ID:              data["id"],
		Date:            data["date"],
		UserID:          userID,
		DisplayName:     data["display_name"],
		BreakType:       data["break_type"],
		DurationMinutes: minutes,
		Reason:          data["reason"],
		Decision:        data["decision"],
		Amount:          amount,
		Currency:        data["currency"],
		DecidedAt:       decidedAt,
	}, nil
}
