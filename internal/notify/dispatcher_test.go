package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestDispatcher_DeliversToAllSinks(t *testing.T) {
	first := &Recorder{}
	second := &Recorder{}

	d := NewDispatcher(8, zerolog.Nop(), first, second)
	d.Start()

	d.Publish(
		Event{Kind: KindBreakStarted, To: User(1), UserID: 1},
		Event{Kind: KindBreakStarted, To: Supervisor(), UserID: 1},
	)
	d.Stop()

	for name, rec := range map[string]*Recorder{"first": first, "second": second} {
		if got := len(rec.Events()); got != 2 {
			t.Errorf("%s sink: expected 2 events, got %d", name, got)
		}
	}
}

func TestDispatcher_SinkErrorDoesNotStopDelivery(t *testing.T) {
	failing := SinkFunc(func(context.Context, Event) error {
		return errors.New("transport down")
	})
	rec := &Recorder{}

	d := NewDispatcher(8, zerolog.Nop(), failing, rec)
	d.Start()
	d.Publish(Event{Kind: KindLateWarning, To: User(7), UserID: 7})
	d.Stop()

	if got := len(rec.OfKind(KindLateWarning)); got != 1 {
		t.Fatalf("Expected 1 late warning after failing sink, got %d", got)
	}
}

func TestDispatcher_PublishDropsWhenFull(t *testing.T) {
	rec := &Recorder{}

	// Not started: nothing drains the queue.
	d := NewDispatcher(1, zerolog.Nop(), rec)
	d.Publish(
		Event{Kind: KindBreakEnded, UserID: 1},
		Event{Kind: KindBreakEnded, UserID: 2},
		Event{Kind: KindBreakEnded, UserID: 3},
	)

	d.Start()
	d.Stop()

	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("Expected 1 delivered event, got %d", len(events))
	}
	if events[0].UserID != 1 {
		t.Errorf("Expected the first event to survive, got user %d", events[0].UserID)
	}
}
