package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Break metrics
	BreaksStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakbot_breaks_started_total",
			Help: "Total number of breaks admitted",
		},
		[]string{"break_type"},
	)

	BreaksEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakbot_breaks_ended_total",
			Help: "Total number of breaks ended",
		},
		[]string{"break_type", "outcome"},
	)

	AdmissionsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakbot_admissions_rejected_total",
			Help: "Break requests refused by admission checks",
		},
		[]string{"reason"},
	)

	ActiveBreaks = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "breakbot_active_breaks",
			Help: "Number of users currently on break",
		},
		[]string{"break_type"},
	)

	BreakDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "breakbot_break_duration_minutes",
			Help:    "Break duration in whole minutes",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 45, 60},
		},
		[]string{"break_type"},
	)

	// Late return and fine metrics
	LateReturns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakbot_late_returns_total",
			Help: "Breaks that exceeded the allowed duration",
		},
		[]string{"break_type"},
	)

	PendingLateReturns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "breakbot_pending_late_returns",
			Help: "Late returns awaiting a reason or a supervisor decision",
		},
	)

	FineDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakbot_fine_decisions_total",
			Help: "Late returns resolved by the supervisor",
		},
		[]string{"decision"},
	)

	DailyResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "breakbot_daily_resets_total",
			Help: "Number of daily state resets performed",
		},
	)

	// Notification metrics
	NotificationsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakbot_notifications_dropped_total",
			Help: "Notifications dropped because the queue was full",
		},
		[]string{"kind"},
	)

	NotificationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakbot_notification_errors_total",
			Help: "Notifications a sink failed to deliver",
		},
		[]string{"kind"},
	)

	// Transport metrics
	CommandsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakbot_commands_received_total",
			Help: "Inbound commands by kind",
		},
		[]string{"command"},
	)

	TelegramUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakbot_telegram_updates_total",
			Help: "Telegram updates received",
		},
		[]string{"type"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		BreaksStarted,
		BreaksEnded,
		AdmissionsRejected,
		ActiveBreaks,
		BreakDuration,
		LateReturns,
		PendingLateReturns,
		FineDecisions,
		DailyResets,
		NotificationsDropped,
		NotificationErrors,
		CommandsReceived,
		TelegramUpdates,
	)
}

// HealthMessage is the body served on /health
const HealthMessage = "Bot is running!"

// Server is the metrics and health HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: NewHandler(),
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// NewHandler returns the mux serving /metrics, /health and /
func NewHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	health := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(HealthMessage))
	}
	mux.HandleFunc("/health", health)
	mux.HandleFunc("/", health)
	return mux
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
