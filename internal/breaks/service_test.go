package breaks

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goodtune/breakbot/internal/clock"
	"github.com/goodtune/breakbot/internal/notify"
	"github.com/rs/zerolog"
)

func newTestService(t *testing.T) (*Service, *clock.Fake, *notify.Recorder) {
	t.Helper()

	fake := clock.NewFake(testStart)
	rec := &notify.Recorder{}

	svc, err := NewService(DefaultConfig(), fake, rec, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(svc.Close)

	return svc, fake, rec
}

func TestService_StartBreakNotifiesUserAndSupervisor(t *testing.T) {
	svc, _, rec := newTestService(t)

	h, err := svc.StartBreak(1, "alice", Toilet)
	if err != nil {
		t.Fatalf("StartBreak failed: %v", err)
	}
	if h.UserID != 1 || h.Type != Toilet || !h.StartedAt.Equal(testStart) {
		t.Errorf("Unexpected handle %+v", h)
	}

	started := rec.OfKind(notify.KindBreakStarted)
	if len(started) != 2 {
		t.Fatalf("Expected 2 BreakStarted events, got %d", len(started))
	}
	if started[0].To != notify.User(1) || !started[1].To.Supervisor {
		t.Errorf("Unexpected recipients %+v / %+v", started[0].To, started[1].To)
	}
	if started[0].AllowedMinutes != 15 {
		t.Errorf("Expected 15 allowed minutes, got %d", started[0].AllowedMinutes)
	}
	if !svc.IsOnBreak(1) {
		t.Error("Expected user to be on break")
	}
}

func TestService_OnTimeReturn(t *testing.T) {
	svc, fake, rec := newTestService(t)

	if _, err := svc.StartBreak(1, "alice", Drinking); err != nil {
		t.Fatalf("StartBreak failed: %v", err)
	}
	fake.Set(testStart.Add(7*time.Minute + 30*time.Second))

	outcome, err := svc.EndBreak(1)
	if err != nil {
		t.Fatalf("EndBreak failed: %v", err)
	}
	if !outcome.OnTime || outcome.DurationMinutes != 7 {
		t.Errorf("Expected on-time 7 minute break, got %+v", outcome)
	}

	ended := rec.OfKind(notify.KindBreakEnded)
	if len(ended) != 2 {
		t.Fatalf("Expected BreakEnded for user and supervisor, got %d", len(ended))
	}
	if !ended[0].Early {
		t.Error("Expected explicit on-time return to be flagged early")
	}
	if len(rec.OfKind(notify.KindLateWarning)) != 0 {
		t.Error("Did not expect a late warning")
	}
	if len(svc.PendingLateReturns()) != 0 {
		t.Error("Did not expect a late return record")
	}

	// The cancelled timer must not fire later
	fake.Advance(time.Hour)
	if len(rec.OfKind(notify.KindBreakEnded)) != 2 {
		t.Error("Timer fired after explicit return")
	}
}

func TestService_EndBreakTwice(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.StartBreak(1, "alice", Toilet); err != nil {
		t.Fatalf("StartBreak failed: %v", err)
	}
	if _, err := svc.EndBreak(1); err != nil {
		t.Fatalf("EndBreak failed: %v", err)
	}

	_, err := svc.EndBreak(1)
	if !errors.Is(err, ErrNotOnBreak) {
		t.Fatalf("Expected ErrNotOnBreak, got %v", err)
	}
	if got := svc.Availability()[0].Active; got != 0 {
		t.Errorf("Expected toilet occupancy 0, got %d", got)
	}
}

func TestService_LateExplicitReturn(t *testing.T) {
	svc, fake, rec := newTestService(t)

	if _, err := svc.StartBreak(1, "alice", Outside); err != nil {
		t.Fatalf("StartBreak failed: %v", err)
	}
	// Set moves the clock without firing the auto-end timer
	fake.Set(testStart.Add(14*time.Minute + 59*time.Second))

	outcome, err := svc.EndBreak(1)
	if err != nil {
		t.Fatalf("EndBreak failed: %v", err)
	}
	if !outcome.OnTime {
		t.Fatalf("Expected 14:59 to be on time, got %+v", outcome)
	}

	if _, err := svc.StartBreak(1, "alice", Outside); err != nil {
		t.Fatalf("second StartBreak failed: %v", err)
	}
	start := fake.Now()
	fake.Set(start.Add(15*time.Minute + time.Second))

	outcome, err = svc.EndBreak(1)
	if err != nil {
		t.Fatalf("EndBreak failed: %v", err)
	}
	if outcome.OnTime || outcome.Expired {
		t.Fatalf("Expected explicit late return, got %+v", outcome)
	}

	warnings := rec.OfKind(notify.KindLateWarning)
	if len(warnings) != 1 || warnings[0].To != notify.User(1) {
		t.Fatalf("Expected one late warning to the user, got %+v", warnings)
	}

	pending := svc.PendingLateReturns()
	if len(pending) != 1 || pending[0].DurationMinutes != 15 || pending[0].Type != Outside {
		t.Fatalf("Unexpected pending late returns %+v", pending)
	}
}

func TestService_TimerAutoEndCreatesLateRecord(t *testing.T) {
	svc, fake, rec := newTestService(t)

	if _, err := svc.StartBreak(1, "alice", Toilet); err != nil {
		t.Fatalf("StartBreak failed: %v", err)
	}

	fake.Advance(15 * time.Minute)

	if svc.IsOnBreak(1) {
		t.Fatal("Expected timer to end the break")
	}

	pending := svc.PendingLateReturns()
	if len(pending) != 1 {
		t.Fatalf("Expected 1 late return, got %d", len(pending))
	}
	if pending[0].DurationMinutes != 15 || pending[0].HasReason() {
		t.Errorf("Unexpected late return %+v", pending[0])
	}

	warnings := rec.OfKind(notify.KindLateWarning)
	if len(warnings) != 1 || !warnings[0].Expired {
		t.Fatalf("Expected an expired late warning, got %+v", warnings)
	}

	ended := rec.OfKind(notify.KindBreakEnded)
	if len(ended) != 1 || !ended[0].To.Supervisor || !ended[0].Expired {
		t.Errorf("Expected supervisor BreakEnded for the expiry, got %+v", ended)
	}

	if got := svc.Availability()[0].Active; got != 0 {
		t.Errorf("Expected toilet slot released, got occupancy %d", got)
	}
}

func TestService_StaleTimerDoesNotEndNewBreak(t *testing.T) {
	svc, fake, _ := newTestService(t)

	if _, err := svc.StartBreak(1, "alice", Toilet); err != nil {
		t.Fatalf("StartBreak failed: %v", err)
	}
	fake.Advance(5 * time.Minute)
	if _, err := svc.EndBreak(1); err != nil {
		t.Fatalf("EndBreak failed: %v", err)
	}

	fake.Advance(time.Minute)
	if _, err := svc.StartBreak(1, "alice", Toilet); err != nil {
		t.Fatalf("second StartBreak failed: %v", err)
	}

	// First break's deadline passes; the second break is only 9 minutes old
	fake.Advance(9 * time.Minute)
	if !svc.IsOnBreak(1) {
		t.Fatal("First break's timer ended the second break")
	}

	fake.Advance(6 * time.Minute)
	if svc.IsOnBreak(1) {
		t.Fatal("Second break's timer did not fire")
	}
}

func TestService_SubmitReasonAndBatchResolution(t *testing.T) {
	svc, fake, rec := newTestService(t)

	for _, user := range []struct {
		id   int64
		name string
	}{{1, "alice"}, {2, "bob"}} {
		if _, err := svc.StartBreak(user.id, user.name, Outside); err != nil {
			t.Fatalf("StartBreak(%s) failed: %v", user.name, err)
		}
	}
	fake.Advance(15 * time.Minute)

	for _, userID := range []int64{1, 2} {
		if _, err := svc.SubmitReason(userID, "long queue"); err != nil {
			t.Fatalf("SubmitReason(%d) failed: %v", userID, err)
		}
	}

	requests := rec.OfKind(notify.KindFineRequested)
	if len(requests) != 2 {
		t.Fatalf("Expected 2 fine requests, got %d", len(requests))
	}
	if requests[0].FineAmount != 100 || requests[0].FineCurrency != "PKR" || requests[0].Reason != "long queue" {
		t.Errorf("Unexpected fine request %+v", requests[0])
	}

	resolved := svc.ResolveFines(Approved)
	if len(resolved) != 2 {
		t.Fatalf("Expected both fines resolved in one batch, got %d", len(resolved))
	}

	imposed := rec.OfKind(notify.KindFineImposed)
	if len(imposed) != 4 {
		t.Fatalf("Expected 4 FineImposed events (user + supervisor each), got %d", len(imposed))
	}
	users := map[int64]bool{}
	for _, ev := range imposed {
		if !ev.To.Supervisor {
			users[ev.To.UserID] = true
		}
	}
	if !users[1] || !users[2] {
		t.Errorf("Expected both users notified, got %v", users)
	}

	if len(svc.PendingLateReturns()) != 0 {
		t.Error("Expected no pending late returns after resolution")
	}
}

func TestService_ResolveFinesWithNothingPending(t *testing.T) {
	svc, _, rec := newTestService(t)

	if got := svc.ResolveFines(Rejected); len(got) != 0 {
		t.Fatalf("Expected no resolved fines, got %d", len(got))
	}
	if len(rec.Events()) != 0 {
		t.Errorf("Expected no notifications, got %d", len(rec.Events()))
	}
}

func TestService_SubmitReasonWithoutLateReturn(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SubmitReason(1, "just because")
	if !errors.Is(err, ErrNoPendingLateReturn) {
		t.Fatalf("Expected ErrNoPendingLateReturn, got %v", err)
	}
}

func TestService_RejectedFineIsWaived(t *testing.T) {
	svc, fake, rec := newTestService(t)

	if _, err := svc.StartBreak(1, "alice", Drinking); err != nil {
		t.Fatalf("StartBreak failed: %v", err)
	}
	fake.Advance(20 * time.Minute)
	if _, err := svc.SubmitReason(1, "doctor"); err != nil {
		t.Fatalf("SubmitReason failed: %v", err)
	}

	resolved := svc.ResolveFines(Rejected)
	if len(resolved) != 1 || resolved[0].Amount != 0 {
		t.Fatalf("Unexpected resolution %+v", resolved)
	}
	if len(rec.OfKind(notify.KindFineWaived)) != 2 {
		t.Errorf("Expected FineWaived for user and supervisor")
	}
	if len(rec.OfKind(notify.KindFineImposed)) != 0 {
		t.Errorf("Did not expect FineImposed")
	}
}

func TestService_PendingFineDoesNotBlockNewBreak(t *testing.T) {
	svc, fake, _ := newTestService(t)

	if _, err := svc.StartBreak(1, "alice", Toilet); err != nil {
		t.Fatalf("StartBreak failed: %v", err)
	}
	fake.Advance(15 * time.Minute)

	if _, err := svc.StartBreak(1, "alice", Toilet); err != nil {
		t.Errorf("Expected new break despite pending fine, got %v", err)
	}
}

func TestService_ResetClearsEverything(t *testing.T) {
	svc, fake, rec := newTestService(t)

	// A late return pending approval
	if _, err := svc.StartBreak(1, "alice", Outside); err != nil {
		t.Fatalf("StartBreak failed: %v", err)
	}
	fake.Advance(15 * time.Minute)
	if _, err := svc.SubmitReason(1, "traffic"); err != nil {
		t.Fatalf("SubmitReason failed: %v", err)
	}

	// Active sessions and counters
	for _, userID := range []int64{2, 3} {
		if _, err := svc.StartBreak(userID, "user", Toilet); err != nil {
			t.Fatalf("StartBreak(%d) failed: %v", userID, err)
		}
	}

	svc.Reset()

	for _, a := range svc.Availability() {
		if a.Active != 0 {
			t.Errorf("%s: expected occupancy 0 after reset, got %d", a.Type, a.Active)
		}
	}
	if len(svc.ActiveSessions()) != 0 {
		t.Error("Expected no active sessions after reset")
	}
	if len(svc.PendingLateReturns()) != 0 {
		t.Error("Expected no pending late returns after reset")
	}
	if got := svc.DailyCount(1, Outside); got != 0 {
		t.Errorf("Expected daily counter reset, got %d", got)
	}
	if len(rec.OfKind(notify.KindDailyReset)) != 1 {
		t.Error("Expected a DailyReset notification")
	}

	// Timers of cleared sessions must not produce late returns
	rec.Reset()
	fake.Advance(time.Hour)
	if len(rec.OfKind(notify.KindLateWarning)) != 0 {
		t.Error("Timer of a reset session fired")
	}
}

func TestService_ConcurrentAdmissionsRespectCapacity(t *testing.T) {
	svc, _, _ := newTestService(t)

	var admitted int32
	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			if _, err := svc.StartBreak(userID, "user", Toilet); err == nil {
				atomic.AddInt32(&admitted, 1)
			} else if !errors.Is(err, ErrCapacityExceeded) {
				t.Errorf("user %d: unexpected error %v", userID, err)
			}
		}(i)
	}
	wg.Wait()

	if admitted != 2 {
		t.Fatalf("Expected exactly 2 admissions, got %d", admitted)
	}
	if got := svc.Availability()[0].Active; got != 2 {
		t.Errorf("Expected toilet occupancy 2, got %d", got)
	}
}

func TestService_ConcurrentReturnAndExpiry(t *testing.T) {
	svc, fake, rec := newTestService(t)

	if _, err := svc.StartBreak(1, "alice", Toilet); err != nil {
		t.Fatalf("StartBreak failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		fake.Advance(15 * time.Minute)
	}()
	go func() {
		defer wg.Done()
		_, _ = svc.EndBreak(1)
	}()
	wg.Wait()

	if got := len(rec.OfKind(notify.KindBreakEnded)); got < 1 || got > 2 {
		t.Fatalf("Expected the break to end exactly once, got %d BreakEnded events", got)
	}
	if got := svc.Availability()[0].Active; got != 0 {
		t.Errorf("Expected occupancy 0, got %d", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero concurrency", func(c *Config) { c.Limits[Toilet] = Limits{Concurrency: 0, Daily: 5} }, true},
		{"zero daily", func(c *Config) { c.Limits[Drinking] = Limits{Concurrency: 2, Daily: 0} }, true},
		{"unknown type", func(c *Config) { c.Limits[BreakType("smoking")] = Limits{Concurrency: 1, Daily: 1} }, true},
		{"short duration", func(c *Config) { c.AllowedDuration = 30 * time.Second }, true},
		{"negative fine", func(c *Config) { c.FineAmount = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
