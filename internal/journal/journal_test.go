package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goodtune/breakbot/internal/notify"
	"github.com/goodtune/breakbot/internal/storage"
	"github.com/goodtune/breakbot/internal/storage/memory"
	"github.com/rs/zerolog"
)

var day = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

func TestRecorder_Breaks(t *testing.T) {
	store := memory.Open()
	rec := NewRecorder(store.Journal(), zerolog.Nop())
	ctx := context.Background()

	events := []notify.Event{
		{Kind: notify.KindBreakEnded, To: notify.Supervisor(), At: day.Add(5 * time.Minute), StartedAt: day, UserID: 1, BreakType: "toilet", DurationMinutes: 5, Early: true},
		// User copies are skipped
		{Kind: notify.KindBreakEnded, To: notify.User(1), At: day.Add(5 * time.Minute), StartedAt: day, UserID: 1, BreakType: "toilet", DurationMinutes: 5, Early: true},
		{Kind: notify.KindBreakEnded, To: notify.Supervisor(), At: day.Add(20 * time.Minute), StartedAt: day, UserID: 2, BreakType: "outside", DurationMinutes: 20},
		{Kind: notify.KindBreakEnded, To: notify.Supervisor(), At: day.Add(30 * time.Minute), StartedAt: day.Add(15 * time.Minute), UserID: 3, BreakType: "outside", DurationMinutes: 15, Expired: true},
		{Kind: notify.KindBreakStarted, To: notify.Supervisor(), At: day, UserID: 4, BreakType: "drinking"},
	}
	for _, ev := range events {
		if err := rec.Notify(ctx, ev); err != nil {
			t.Fatalf("Notify failed: %v", err)
		}
	}

	records, err := store.Journal().ListBreaks(ctx, "2024-05-06")
	if err != nil {
		t.Fatalf("ListBreaks failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 journaled breaks, got %d", len(records))
	}

	want := []storage.Outcome{storage.OutcomeOnTime, storage.OutcomeLate, storage.OutcomeExpired}
	for i, r := range records {
		if r.Outcome != want[i] {
			t.Errorf("record %d: outcome = %s, want %s", i, r.Outcome, want[i])
		}
	}
	if !records[0].StartedAt.Equal(day) {
		t.Errorf("Expected start time to be kept, got %s", records[0].StartedAt)
	}
}

func TestRecorder_Fines(t *testing.T) {
	store := memory.Open()
	rec := NewRecorder(store.Journal(), zerolog.Nop())
	ctx := context.Background()

	_ = rec.Notify(ctx, notify.Event{Kind: notify.KindFineImposed, To: notify.Supervisor(), At: day, UserID: 1, Reason: "traffic", FineAmount: 100, FineCurrency: "PKR"})
	_ = rec.Notify(ctx, notify.Event{Kind: notify.KindFineWaived, To: notify.Supervisor(), At: day.Add(time.Minute), UserID: 2, Reason: "doctor", FineCurrency: "PKR"})
	_ = rec.Notify(ctx, notify.Event{Kind: notify.KindFineImposed, To: notify.User(1), At: day, UserID: 1})

	fines, err := store.Journal().ListFines(ctx, "2024-05-06")
	if err != nil {
		t.Fatalf("ListFines failed: %v", err)
	}
	if len(fines) != 2 {
		t.Fatalf("Expected 2 fines, got %d", len(fines))
	}
	if fines[0].Decision != DecisionImposed || fines[0].Amount != 100 {
		t.Errorf("Unexpected imposed fine %+v", fines[0])
	}
	if fines[1].Decision != DecisionWaived || fines[1].Reason != "doctor" {
		t.Errorf("Unexpected waived fine %+v", fines[1])
	}
}

type failingJournal struct {
	storage.JournalStore
}

func (failingJournal) AppendBreak(context.Context, storage.BreakRecord) error {
	return errors.New("disk full")
}

func TestRecorder_StoreError(t *testing.T) {
	rec := NewRecorder(failingJournal{}, zerolog.Nop())
	err := rec.Notify(context.Background(), notify.Event{Kind: notify.KindBreakEnded, To: notify.Supervisor(), At: day})
	if err == nil {
		t.Error("Expected store error to be returned")
	}
}

func TestBuildReport(t *testing.T) {
	store := memory.Open()
	ctx := context.Background()
	j := store.Journal()

	_ = j.AppendBreak(ctx, storage.BreakRecord{BreakType: "toilet", EndedAt: day, DurationMinutes: 4, Outcome: storage.OutcomeOnTime})
	_ = j.AppendBreak(ctx, storage.BreakRecord{BreakType: "toilet", EndedAt: day.Add(time.Hour), DurationMinutes: 18, Outcome: storage.OutcomeLate})
	_ = j.AppendBreak(ctx, storage.BreakRecord{BreakType: "outside", EndedAt: day.Add(2 * time.Hour), DurationMinutes: 15, Outcome: storage.OutcomeExpired})
	_ = j.AppendFine(ctx, storage.FineRecord{Decision: DecisionImposed, Amount: 100, Currency: "PKR", DecidedAt: day.Add(3 * time.Hour)})
	_ = j.AppendFine(ctx, storage.FineRecord{Decision: DecisionWaived, Currency: "PKR", DecidedAt: day.Add(4 * time.Hour)})

	report, err := BuildReport(ctx, j, day)
	if err != nil {
		t.Fatalf("BuildReport failed: %v", err)
	}

	if report.Date != "2024-05-06" {
		t.Errorf("Expected date 2024-05-06, got %s", report.Date)
	}
	if len(report.Summary) != 2 {
		t.Fatalf("Expected 2 break types, got %d", len(report.Summary))
	}

	outside, toilet := report.Summary[0], report.Summary[1]
	if outside.BreakType != "outside" || outside.Late != 1 || outside.Expired != 1 {
		t.Errorf("Unexpected outside summary %+v", outside)
	}
	if toilet.Breaks != 2 || toilet.Late != 1 || toilet.TotalMinutes != 22 {
		t.Errorf("Unexpected toilet summary %+v", toilet)
	}
	if report.FinesImposed != 1 || report.FinesWaived != 1 || report.FineTotal != 100 {
		t.Errorf("Unexpected fine totals %+v", report)
	}
}
