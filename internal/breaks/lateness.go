package breaks

import (
	"fmt"
	"sort"
	"time"
)

// LateReturns tracks users who came back late until the supervisor rules
// on the fine. Not safe for concurrent use; Service serialises every call.
type LateReturns struct {
	records map[int64]LateReturn
}

// NewLateReturns creates an empty workflow
func NewLateReturns() *LateReturns {
	return &LateReturns{records: make(map[int64]LateReturn)}
}

// Record stores a late return, replacing any record still pending for the user
func (l *LateReturns) Record(lr LateReturn) {
	l.records[lr.UserID] = lr
}

// AttachReason moves the user's record to pending approval. Submitting a
// new reason replaces the previous one.
func (l *LateReturns) AttachReason(userID int64, reason string) (LateReturn, error) {
	lr, ok := l.records[userID]
	if !ok {
		return LateReturn{}, fmt.Errorf("user %d: %w", userID, ErrNoPendingLateReturn)
	}
	lr.Reason = reason
	l.records[userID] = lr
	return lr, nil
}

// Get returns the user's pending record
func (l *LateReturns) Get(userID int64) (LateReturn, bool) {
	lr, ok := l.records[userID]
	return lr, ok
}

// Pending returns every record ordered by the time it was recorded
func (l *LateReturns) Pending() []LateReturn {
	out := make([]LateReturn, 0, len(l.records))
	for _, lr := range l.records {
		out = append(out, lr)
	}
	sortLateReturns(out)
	return out
}

// ResolveAll applies the decision to every record that has a reason and
// clears those records. Records still waiting for a reason are kept.
func (l *LateReturns) ResolveAll(decision Decision, amount int, currency string, now time.Time) []ResolvedFine {
	ready := make([]LateReturn, 0, len(l.records))
	for _, lr := range l.records {
		if lr.HasReason() {
			ready = append(ready, lr)
		}
	}
	sortLateReturns(ready)

	resolved := make([]ResolvedFine, 0, len(ready))
	for _, lr := range ready {
		delete(l.records, lr.UserID)

		fine := ResolvedFine{
			LateReturn: lr,
			Decision:   decision,
			Currency:   currency,
			ResolvedAt: now,
		}
		if decision == Approved {
			fine.Amount = amount
		}
		resolved = append(resolved, fine)
	}
	return resolved
}

// Len returns the number of pending records
func (l *LateReturns) Len() int {
	return len(l.records)
}

// Reset drops all pending records
func (l *LateReturns) Reset() {
	l.records = make(map[int64]LateReturn)
}

func sortLateReturns(s []LateReturn) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].RecordedAt.Equal(s[j].RecordedAt) {
			return s[i].UserID < s[j].UserID
		}
		return s[i].RecordedAt.Before(s[j].RecordedAt)
	})
}
