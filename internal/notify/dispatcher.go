package notify

import (
	"context"
	"sync"
	"time"

	"github.com/goodtune/breakbot/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	// DefaultQueueSize is the number of events buffered before new ones are dropped
	DefaultQueueSize = 256

	// DefaultDeliveryTimeout bounds a single sink call
	DefaultDeliveryTimeout = 10 * time.Second
)

// Dispatcher fans events out to sinks from a single worker goroutine.
// Publish never blocks: when the queue is full the event is dropped.
type Dispatcher struct {
	queue   chan Event
	sinks   []Sink
	timeout time.Duration
	logger  zerolog.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewDispatcher creates a dispatcher delivering to sinks in order
func NewDispatcher(queueSize int, logger zerolog.Logger, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Dispatcher{
		queue:    make(chan Event, queueSize),
		sinks:    sinks,
		timeout:  DefaultDeliveryTimeout,
		logger:   logger.With().Str("component", "notify").Logger(),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Publish enqueues events for delivery
func (d *Dispatcher) Publish(events ...Event) {
	for _, ev := range events {
		select {
		case d.queue <- ev:
		default:
			metrics.NotificationsDropped.WithLabelValues(string(ev.Kind)).Inc()
			d.logger.Warn().
				Str("kind", string(ev.Kind)).
				Int64("user_id", ev.UserID).
				Msg("Notification queue full, dropping event")
		}
	}
}

// AddSink appends a sink. It must be called before Start.
func (d *Dispatcher) AddSink(sink Sink) {
	d.sinks = append(d.sinks, sink)
}

// Start begins delivering queued events
func (d *Dispatcher) Start() {
	go d.run()
	d.logger.Info().Int("sinks", len(d.sinks)).Msg("Notification dispatcher started")
}

// Stop drains the queue and waits for the worker to exit
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopChan)
	})
	<-d.done
	d.logger.Info().Msg("Notification dispatcher stopped")
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stopChan:
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := sink.Notify(ctx, ev)
		cancel()

		if err != nil {
			metrics.NotificationErrors.WithLabelValues(string(ev.Kind)).Inc()
			d.logger.Error().
				Err(err).
				Str("kind", string(ev.Kind)).
				Int64("user_id", ev.UserID).
				Bool("supervisor", ev.To.Supervisor).
				Msg("Failed to deliver notification")
		}
	}
}
