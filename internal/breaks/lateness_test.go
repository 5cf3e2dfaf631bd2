package breaks

import (
	"errors"
	"testing"
	"time"
)

func TestLateReturns_AttachReasonWithoutRecord(t *testing.T) {
	l := NewLateReturns()

	_, err := l.AttachReason(42, "bus was late")
	if !errors.Is(err, ErrNoPendingLateReturn) {
		t.Fatalf("Expected ErrNoPendingLateReturn, got %v", err)
	}
}

func TestLateReturns_ResolveAllOnlyTouchesRecordsWithReason(t *testing.T) {
	l := NewLateReturns()
	now := testStart

	l.Record(LateReturn{UserID: 1, DisplayName: "alice", Type: Toilet, DurationMinutes: 18, RecordedAt: now})
	l.Record(LateReturn{UserID: 2, DisplayName: "bob", Type: Outside, DurationMinutes: 25, RecordedAt: now.Add(time.Minute)})
	l.Record(LateReturn{UserID: 3, DisplayName: "carol", Type: Drinking, DurationMinutes: 16, RecordedAt: now.Add(2 * time.Minute)})

	for _, userID := range []int64{2, 1} {
		if _, err := l.AttachReason(userID, "queue"); err != nil {
			t.Fatalf("AttachReason(%d) failed: %v", userID, err)
		}
	}

	resolved := l.ResolveAll(Approved, 100, "PKR", now.Add(time.Hour))
	if len(resolved) != 2 {
		t.Fatalf("Expected 2 resolved fines, got %d", len(resolved))
	}
	if resolved[0].LateReturn.UserID != 1 || resolved[1].LateReturn.UserID != 2 {
		t.Errorf("Expected resolution in recorded order [1 2], got [%d %d]",
			resolved[0].LateReturn.UserID, resolved[1].LateReturn.UserID)
	}
	for _, fine := range resolved {
		if fine.Amount != 100 || fine.Currency != "PKR" || fine.Decision != Approved {
			t.Errorf("Unexpected fine %+v", fine)
		}
	}

	pending := l.Pending()
	if len(pending) != 1 || pending[0].UserID != 3 {
		t.Fatalf("Expected carol to remain pending, got %+v", pending)
	}
}

func TestLateReturns_RejectedCarriesNoAmount(t *testing.T) {
	l := NewLateReturns()
	l.Record(LateReturn{UserID: 1, Type: Toilet, DurationMinutes: 20, RecordedAt: testStart})
	if _, err := l.AttachReason(1, "stuck in lift"); err != nil {
		t.Fatalf("AttachReason failed: %v", err)
	}

	resolved := l.ResolveAll(Rejected, 100, "PKR", testStart)
	if len(resolved) != 1 {
		t.Fatalf("Expected 1 resolved fine, got %d", len(resolved))
	}
	if resolved[0].Amount != 0 {
		t.Errorf("Expected no amount on rejected fine, got %d", resolved[0].Amount)
	}
	if l.Len() != 0 {
		t.Errorf("Expected no pending records, got %d", l.Len())
	}
}

func TestLateReturns_ResolveAllWithNothingPending(t *testing.T) {
	l := NewLateReturns()
	if got := l.ResolveAll(Approved, 100, "PKR", testStart); len(got) != 0 {
		t.Errorf("Expected no resolved fines, got %d", len(got))
	}
}

func TestLateReturns_SecondLateEventOverwrites(t *testing.T) {
	l := NewLateReturns()
	l.Record(LateReturn{UserID: 1, Type: Toilet, DurationMinutes: 20, RecordedAt: testStart})
	if _, err := l.AttachReason(1, "first"); err != nil {
		t.Fatalf("AttachReason failed: %v", err)
	}

	l.Record(LateReturn{UserID: 1, Type: Outside, DurationMinutes: 30, RecordedAt: testStart.Add(time.Hour)})

	lr, ok := l.Get(1)
	if !ok {
		t.Fatal("Expected a pending record")
	}
	if lr.Type != Outside || lr.DurationMinutes != 30 || lr.HasReason() {
		t.Errorf("Expected fresh outside record without reason, got %+v", lr)
	}
}
