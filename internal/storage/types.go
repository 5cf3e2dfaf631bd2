package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outcome records how a break ended.
type Outcome string

const (
	OutcomeOnTime  Outcome = "on_time"
	OutcomeLate    Outcome = "late"
	OutcomeExpired Outcome = "expired"
)

// UnmarshalJSON implements json.Unmarshaler to normalize outcome to lowercase.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	normalized := Outcome(strings.ToLower(s))
	switch normalized {
	case OutcomeOnTime, OutcomeLate, OutcomeExpired:
		*o = normalized
		return nil
	default:
		return fmt.Errorf("invalid outcome: %s (must be on_time, late, or expired)", s)
	}
}

// BreakRecord is a completed break.
type BreakRecord struct {
	ID              string    `json:"id" yaml:"id"`
	Date            string    `json:"date" yaml:"date"`
	UserID          int64     `json:"user_id" yaml:"user_id"`
	DisplayName     string    `json:"display_name" yaml:"display_name"`
	BreakType       string    `json:"break_type" yaml:"break_type"`
	StartedAt       time.Time `json:"started_at" yaml:"started_at"`
	EndedAt         time.Time `json:"ended_at" yaml:"ended_at"`
	DurationMinutes int       `json:"duration_minutes" yaml:"duration_minutes"`
	Outcome         Outcome   `json:"outcome" yaml:"outcome"`
}

// FineRecord is a supervisor decision on a late return.
type FineRecord struct {
	ID              string    `json:"id" yaml:"id"`
	Date            string    `json:"date" yaml:"date"`
	UserID          int64     `json:"user_id" yaml:"user_id"`
	DisplayName     string    `json:"display_name" yaml:"display_name"`
	BreakType       string    `json:"break_type" yaml:"break_type"`
	DurationMinutes int       `json:"duration_minutes" yaml:"duration_minutes"`
	Reason          string    `json:"reason" yaml:"reason"`
	Decision        string    `json:"decision" yaml:"decision"`
	Amount          int       `json:"amount" yaml:"amount"`
	Currency        string    `json:"currency" yaml:"currency"`
	DecidedAt       time.Time `json:"decided_at" yaml:"decided_at"`
}

// Prepare fills in the ID and day of a record about to be appended.
func (r *BreakRecord) Prepare() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Date == "" {
		r.Date = DateKey(r.EndedAt)
	}
}

// Prepare fills in the ID and day of a record about to be appended.
func (r *FineRecord) Prepare() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Date == "" {
		r.Date = DateKey(r.DecidedAt)
	}
}

// SortBreaks orders records by end time, then ID.
func SortBreaks(records []BreakRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].EndedAt.Equal(records[j].EndedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].EndedAt.Before(records[j].EndedAt)
	})
}

// SortFines orders records by decision time, then ID.
func SortFines(records []FineRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].DecidedAt.Equal(records[j].DecidedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].DecidedAt.Before(records[j].DecidedAt)
	})
}
