package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/breakbot/internal/breaks"
	"github.com/goodtune/breakbot/internal/clock"
	"github.com/goodtune/breakbot/internal/config"
	"github.com/goodtune/breakbot/internal/dispatch"
	"github.com/goodtune/breakbot/internal/journal"
	"github.com/goodtune/breakbot/internal/metrics"
	"github.com/goodtune/breakbot/internal/notify"
	"github.com/goodtune/breakbot/internal/storage"
	"github.com/goodtune/breakbot/internal/storage/bolt"
	"github.com/goodtune/breakbot/internal/storage/memory"
	"github.com/goodtune/breakbot/internal/storage/redis"
	"github.com/goodtune/breakbot/internal/systemd"
	"github.com/goodtune/breakbot/internal/telegram"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the bot",
	Long:  `Start the Telegram long-polling loop, the daily reset scheduler and the health and metrics endpoint.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}

	rules, err := cfg.BreakRules()
	if err != nil {
		return err
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting BreakBot")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Initialize storage
	store, err := openStorage(cfg.Storage, cfg.Retention())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Int("retention_days", cfg.Storage.RetentionDays).
		Msg("Storage initialized")

	// Notifications are journaled first, then sent to Telegram
	dispatcher := notify.NewDispatcher(cfg.Notifications.QueueSize, logger, journal.NewRecorder(store.Journal(), logger))

	service, err := breaks.NewService(rules, clock.Real{}, dispatcher, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize break service: %w", err)
	}
	defer service.Close()

	handler := dispatch.NewHandler(service, dispatcher, logger)

	bot, err := telegram.NewBot(telegram.Config{
		Token:            cfg.Telegram.Token,
		SupervisorChatID: cfg.Telegram.SupervisorChatID,
		PollTimeout:      cfg.PollTimeout(),
		Debug:            cfg.Telegram.Debug,
	}, handler, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}

	sink, err := telegram.NewSink(bot.API(), cfg.Telegram.SupervisorChatID, cfg.Telegram.MessageCacheSize, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram sink: %w", err)
	}
	bot.SetChatRouter(sink)
	dispatcher.AddSink(sink)
	dispatcher.Start()
	defer dispatcher.Stop()

	// Initialize Reset Scheduler
	resetScheduler, err := breaks.NewResetScheduler(
		&dailyReset{service: service, store: store, retention: cfg.Retention(), logger: logger},
		cfg.Schedule.DailyResetTime,
		clock.Real{},
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize Reset Scheduler: %w", err)
	}
	resetScheduler.Start()

	// Initialize Metrics Server
	metricsServer := metrics.NewServer(cfg.ListenAddr(), logger)
	if sdListeners.Health != nil {
		metricsServer.SetListener(sdListeners.Health)
	}
	if err := metricsServer.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	// Start polling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	botDone := make(chan error, 1)
	go func() {
		botDone <- bot.Run(ctx)
	}()
	go systemd.RunWatchdog(ctx, logger)

	logger.Info().
		Str("addr", cfg.ListenAddr()).
		Int64("supervisor_chat_id", cfg.Telegram.SupervisorChatID).
		Dur("allowed_duration", rules.AllowedDuration).
		Msg("BreakBot startup complete")

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	// Wait for signals (shutdown or state dump)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	botStopped := false
loop:
	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				logState(logger, service)
				continue
			}
			logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received, gracefully stopping...")
			break loop
		case err := <-botDone:
			botStopped = true
			if err != nil {
				logger.Error().Err(err).Msg("Telegram polling stopped")
			}
			break loop
		}
	}

	// Notify systemd that we're stopping
	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	cancel()
	if !botStopped {
		select {
		case <-botDone:
		case <-time.After(5 * time.Second):
			logger.Warn().Msg("Timed out waiting for Telegram polling to stop")
		}
	}
	resetScheduler.Stop()

	if err := metricsServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping metrics server")
	}

	logger.Info().Msg("BreakBot stopped")
	return nil
}

// logState writes the live break state to the log
func logState(logger zerolog.Logger, service *breaks.Service) {
	for _, sess := range service.ActiveSessions() {
		logger.Info().
			Int64("user_id", sess.UserID).
			Str("user", sess.DisplayName).
			Str("break_type", string(sess.Type)).
			Time("started_at", sess.StartedAt).
			Msg("Active break")
	}
	for _, lr := range service.PendingLateReturns() {
		logger.Info().
			Int64("user_id", lr.UserID).
			Str("user", lr.DisplayName).
			Bool("has_reason", lr.HasReason()).
			Msg("Pending late return")
	}

	active := len(service.ActiveSessions())
	if err := systemd.NotifyStatus(fmt.Sprintf("%d active breaks", active)); err != nil {
		logger.Debug().Err(err).Msg("Failed to send systemd status")
	}
}

// dailyReset clears the break state and prunes the journal
type dailyReset struct {
	service   *breaks.Service
	store     storage.Store
	retention time.Duration
	logger    zerolog.Logger
}

func (d *dailyReset) Reset() {
	d.service.Reset()

	pruner, ok := d.store.(storage.Pruner)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := pruner.Prune(ctx, time.Now().Add(-d.retention))
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to prune journal")
		return
	}
	if deleted > 0 {
		d.logger.Info().Int("deleted", deleted).Msg("Pruned journal")
	}
}

// openStorage opens the configured journal backend
func openStorage(cfg config.StorageConfig, retention time.Duration) (storage.Store, error) {
	switch cfg.Type {
	case config.StorageMemory, "":
		return memory.Open(), nil
	case config.StorageBolt:
		return bolt.Open(cfg.Path)
	case config.StorageRedis:
		return redis.Open(cfg.Redis, retention)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
