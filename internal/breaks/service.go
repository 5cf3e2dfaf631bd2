package breaks

import (
	"fmt"
	"sync"
	"time"

	"github.com/goodtune/breakbot/internal/clock"
	"github.com/goodtune/breakbot/internal/metrics"
	"github.com/goodtune/breakbot/internal/notify"
	"github.com/rs/zerolog"
)

const (
	// DefaultFineAmount is the fine proposed to the supervisor for a late return
	DefaultFineAmount = 100

	// DefaultFineCurrency is the currency the fine is expressed in
	DefaultFineCurrency = "PKR"
)

// Config holds the break rules
type Config struct {
	Limits          map[BreakType]Limits
	AllowedDuration time.Duration
	FineAmount      int
	FineCurrency    string
}

// DefaultConfig returns the stock break rules
func DefaultConfig() Config {
	return Config{
		Limits:          DefaultLimits(),
		AllowedDuration: DefaultAllowedDuration,
		FineAmount:      DefaultFineAmount,
		FineCurrency:    DefaultFineCurrency,
	}
}

// Validate checks the rules for obvious mistakes
func (c Config) Validate() error {
	if len(c.Limits) == 0 {
		return fmt.Errorf("no break types configured")
	}
	for t, l := range c.Limits {
		if !t.Valid() {
			return fmt.Errorf("%q: %w", string(t), ErrUnknownBreakType)
		}
		if l.Concurrency <= 0 {
			return fmt.Errorf("%s: concurrency limit must be positive, got %d", t, l.Concurrency)
		}
		if l.Daily <= 0 {
			return fmt.Errorf("%s: daily limit must be positive, got %d", t, l.Daily)
		}
	}
	if c.AllowedDuration < time.Minute {
		return fmt.Errorf("allowed duration must be at least 1m, got %s", c.AllowedDuration)
	}
	if c.FineAmount < 0 {
		return fmt.Errorf("fine amount must not be negative, got %d", c.FineAmount)
	}
	return nil
}

// Service owns all break state. Every operation runs under one mutex;
// notifications are collected while the lock is held and published after
// it is released.
type Service struct {
	cfg       Config
	clock     clock.Clock
	publisher notify.Publisher
	logger    zerolog.Logger

	mu       sync.Mutex
	registry *Registry
	timers   *Timers
	late     *LateReturns
	closed   bool
}

// NewService creates the break state owner
func NewService(cfg Config, clk clock.Clock, publisher notify.Publisher, logger zerolog.Logger) (*Service, error) {
	if cfg.AllowedDuration == 0 {
		cfg.AllowedDuration = DefaultAllowedDuration
	}
	if cfg.FineCurrency == "" {
		cfg.FineCurrency = DefaultFineCurrency
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid break configuration: %w", err)
	}
	if clk == nil {
		clk = clock.Real{}
	}

	s := &Service{
		cfg:       cfg,
		clock:     clk,
		publisher: publisher,
		logger:    logger.With().Str("component", "breaks").Logger(),
		registry:  NewRegistry(cfg.Limits, cfg.AllowedDuration),
		timers:    NewTimers(clk),
		late:      NewLateReturns(),
	}
	s.updateGauges()

	return s, nil
}

// StartBreak admits the user to a break of type t and schedules its auto-end
func (s *Service) StartBreak(userID int64, displayName string, t BreakType) (SessionHandle, error) {
	s.mu.Lock()
	now := s.clock.Now()
	h, err := s.registry.Admit(userID, displayName, t, now)
	if err != nil {
		s.mu.Unlock()
		metrics.AdmissionsRejected.WithLabelValues(ErrorReason(err)).Inc()
		s.logger.Debug().
			Err(err).
			Int64("user_id", userID).
			Str("break_type", string(t)).
			Msg("Break request refused")
		return SessionHandle{}, err
	}

	s.timers.Schedule(h, s.cfg.AllowedDuration, s.expire)
	s.updateGauges()

	allowed := s.registry.AllowedMinutes()
	events := []notify.Event{
		{
			Kind:           notify.KindBreakStarted,
			To:             notify.User(userID),
			At:             now,
			UserID:         userID,
			DisplayName:    displayName,
			BreakType:      string(t),
			AllowedMinutes: allowed,
		},
		{
			Kind:           notify.KindBreakStarted,
			To:             notify.Supervisor(),
			At:             now,
			UserID:         userID,
			DisplayName:    displayName,
			BreakType:      string(t),
			AllowedMinutes: allowed,
		},
	}
	daily := s.registry.DailyCount(userID, t)
	s.mu.Unlock()

	metrics.BreaksStarted.WithLabelValues(string(t)).Inc()
	s.logger.Info().
		Int64("user_id", userID).
		Str("user", displayName).
		Str("break_type", string(t)).
		Int("daily_count", daily).
		Msg("Break started")

	s.publish(events)
	return h, nil
}

// EndBreak releases the user's break slot. Returning late opens the fine
// workflow for the user.
func (s *Service) EndBreak(userID int64) (Outcome, error) {
	s.mu.Lock()
	outcome, err := s.registry.Release(userID, s.clock.Now())
	if err != nil {
		s.mu.Unlock()
		return Outcome{}, err
	}
	s.timers.Cancel(userID)
	events := s.finish(outcome)
	s.mu.Unlock()

	s.logOutcome(outcome)
	s.publish(events)
	return outcome, nil
}

// expire is the timer callback. It ends the session only if the handle
// still identifies the user's active break.
func (s *Service) expire(h SessionHandle) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.timers.Forget(h)
	outcome, ok := s.registry.Expire(h, s.clock.Now())
	if !ok {
		s.mu.Unlock()
		s.logger.Debug().Str("handle", h.String()).Msg("Break timer fired for released session")
		return
	}
	events := s.finish(outcome)
	s.mu.Unlock()

	s.logOutcome(outcome)
	s.publish(events)
}

// finish applies the consequences of a release. Must be called with the lock held.
func (s *Service) finish(o Outcome) []notify.Event {
	sess := o.Session
	allowed := s.registry.AllowedMinutes()
	s.updateGauges()

	ended := notify.Event{
		Kind:            notify.KindBreakEnded,
		At:              o.EndedAt,
		UserID:          sess.UserID,
		DisplayName:     sess.DisplayName,
		BreakType:       string(sess.Type),
		StartedAt:       sess.StartedAt,
		DurationMinutes: o.DurationMinutes,
		AllowedMinutes:  allowed,
		Early:           o.OnTime,
		Expired:         o.Expired,
	}

	toSupervisor := ended
	toSupervisor.To = notify.Supervisor()

	if o.OnTime {
		toUser := ended
		toUser.To = notify.User(sess.UserID)
		return []notify.Event{toUser, toSupervisor}
	}

	s.late.Record(LateReturn{
		UserID:          sess.UserID,
		DisplayName:     sess.DisplayName,
		Type:            sess.Type,
		DurationMinutes: o.DurationMinutes,
		RecordedAt:      o.EndedAt,
	})
	metrics.PendingLateReturns.Set(float64(s.late.Len()))

	warning := notify.Event{
		Kind:            notify.KindLateWarning,
		To:              notify.User(sess.UserID),
		At:              o.EndedAt,
		UserID:          sess.UserID,
		DisplayName:     sess.DisplayName,
		BreakType:       string(sess.Type),
		DurationMinutes: o.DurationMinutes,
		AllowedMinutes:  allowed,
		Expired:         o.Expired,
	}
	return []notify.Event{warning, toSupervisor}
}

// SubmitReason attaches the user's explanation to their late return and
// asks the supervisor to rule on the fine.
func (s *Service) SubmitReason(userID int64, reason string) (LateReturn, error) {
	s.mu.Lock()
	lr, err := s.late.AttachReason(userID, reason)
	if err != nil {
		s.mu.Unlock()
		return LateReturn{}, err
	}
	now := s.clock.Now()
	allowed := s.registry.AllowedMinutes()
	s.mu.Unlock()

	s.logger.Info().
		Int64("user_id", userID).
		Str("user", lr.DisplayName).
		Str("break_type", string(lr.Type)).
		Int("duration_minutes", lr.DurationMinutes).
		Msg("Late return reason submitted")

	s.publish([]notify.Event{{
		Kind:            notify.KindFineRequested,
		To:              notify.Supervisor(),
		At:              now,
		UserID:          lr.UserID,
		DisplayName:     lr.DisplayName,
		BreakType:       string(lr.Type),
		DurationMinutes: lr.DurationMinutes,
		AllowedMinutes:  allowed,
		Reason:          lr.Reason,
		FineAmount:      s.cfg.FineAmount,
		FineCurrency:    s.cfg.FineCurrency,
	}})
	return lr, nil
}

// ResolveFines applies the supervisor's decision to every late return that
// has a reason. With nothing pending it does nothing.
func (s *Service) ResolveFines(decision Decision) []ResolvedFine {
	s.mu.Lock()
	now := s.clock.Now()
	resolved := s.late.ResolveAll(decision, s.cfg.FineAmount, s.cfg.FineCurrency, now)
	metrics.PendingLateReturns.Set(float64(s.late.Len()))
	s.mu.Unlock()

	if len(resolved) == 0 {
		return nil
	}

	kind := notify.KindFineWaived
	if decision == Approved {
		kind = notify.KindFineImposed
	}

	events := make([]notify.Event, 0, 2*len(resolved))
	for _, fine := range resolved {
		lr := fine.LateReturn
		ev := notify.Event{
			Kind:            kind,
			At:              now,
			UserID:          lr.UserID,
			DisplayName:     lr.DisplayName,
			BreakType:       string(lr.Type),
			DurationMinutes: lr.DurationMinutes,
			Reason:          lr.Reason,
			FineAmount:      fine.Amount,
			FineCurrency:    fine.Currency,
		}
		toUser := ev
		toUser.To = notify.User(lr.UserID)
		toSupervisor := ev
		toSupervisor.To = notify.Supervisor()
		events = append(events, toUser, toSupervisor)

		metrics.FineDecisions.WithLabelValues(decision.String()).Inc()
	}

	s.logger.Info().
		Str("decision", decision.String()).
		Int("resolved", len(resolved)).
		Msg("Fine decision applied")

	s.publish(events)
	return resolved
}

// Availability reports current occupancy per break type
func (s *Service) Availability() []Availability {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Availability()
}

// IsOnBreak reports whether the user currently holds a break slot
func (s *Service) IsOnBreak(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Sessions().IsOnBreak(userID)
}

// CurrentSession returns the user's active break
func (s *Service) CurrentSession(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Sessions().Current(userID)
}

// ActiveSessions returns every active break
func (s *Service) ActiveSessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Sessions().Active()
}

// PendingLateReturns returns late returns awaiting a reason or a decision
func (s *Service) PendingLateReturns() []LateReturn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.late.Pending()
}

// Limits returns the configured limits for t
func (s *Service) Limits(t BreakType) (Limits, bool) {
	l, ok := s.cfg.Limits[t]
	return l, ok
}

// DailyCount returns how many breaks of type t the user took today
func (s *Service) DailyCount(userID int64, t BreakType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.DailyCount(userID, t)
}

// Reset clears occupancy, daily counters, sessions, pending timers and the
// late-return workflow in one step.
func (s *Service) Reset() {
	s.mu.Lock()
	now := s.clock.Now()
	sessions := s.registry.Sessions().Len()
	pending := s.late.Len()

	s.timers.CancelAll()
	s.registry.Reset()
	s.late.Reset()
	s.updateGauges()
	metrics.PendingLateReturns.Set(0)
	s.mu.Unlock()

	metrics.DailyResets.Inc()
	s.logger.Info().
		Int("cleared_sessions", sessions).
		Int("cleared_late_returns", pending).
		Msg("Break state reset for the new day")

	s.publish([]notify.Event{{
		Kind: notify.KindDailyReset,
		To:   notify.Supervisor(),
		At:   now,
	}})
}

// Close stops all pending timers. Timers that already fired become no-ops.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.timers.CancelAll()
}

// AllowedMinutes is the on-time window in whole minutes
func (s *Service) AllowedMinutes() int {
	return int(s.cfg.AllowedDuration / time.Minute)
}

// updateGauges must be called with the lock held
func (s *Service) updateGauges() {
	for _, a := range s.registry.Availability() {
		metrics.ActiveBreaks.WithLabelValues(string(a.Type)).Set(float64(a.Active))
	}
}

func (s *Service) logOutcome(o Outcome) {
	outcome := "on_time"
	switch {
	case o.Expired:
		outcome = "expired"
	case !o.OnTime:
		outcome = "late"
	}

	metrics.BreaksEnded.WithLabelValues(string(o.Session.Type), outcome).Inc()
	metrics.BreakDuration.WithLabelValues(string(o.Session.Type)).Observe(float64(o.DurationMinutes))
	if !o.OnTime {
		metrics.LateReturns.WithLabelValues(string(o.Session.Type)).Inc()
	}

	s.logger.Info().
		Int64("user_id", o.Session.UserID).
		Str("user", o.Session.DisplayName).
		Str("break_type", string(o.Session.Type)).
		Int("duration_minutes", o.DurationMinutes).
		Str("outcome", outcome).
		Msg("Break ended")
}

func (s *Service) publish(events []notify.Event) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	s.publisher.Publish(events...)
}
