package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/goodtune/breakbot/internal/dispatch"
	"github.com/goodtune/breakbot/internal/metrics"
	"github.com/rs/zerolog"
)

// CommandHandler receives parsed inbound messages
type CommandHandler interface {
	OnUserCommand(ctx context.Context, in dispatch.Inbound) dispatch.Command
}

// ChatRouter learns which chat to answer a user in
type ChatRouter interface {
	RememberChat(userID, chatID int64)
}

// Config holds the transport settings
type Config struct {
	Token            string
	SupervisorChatID int64
	PollTimeout      time.Duration
	Debug            bool
}

// Bot runs the long-polling loop and feeds updates to the handler
type Bot struct {
	api          *tgbotapi.BotAPI
	handler      CommandHandler
	router       ChatRouter
	supervisorID int64
	pollTimeout  time.Duration
	logger       zerolog.Logger
}

// NewBot connects to the Bot API and verifies the token
func NewBot(cfg Config, handler CommandHandler, logger zerolog.Logger) (*Bot, error) {
	logger = logger.With().Str("component", "telegram").Logger()
	if err := tgbotapi.SetLogger(botLogger{logger: logger}); err != nil {
		return nil, fmt.Errorf("failed to set telegram logger: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	api.Debug = cfg.Debug

	logger.Info().Str("bot", api.Self.UserName).Msg("Authorized on Telegram")

	return &Bot{
		api:          api,
		handler:      handler,
		supervisorID: cfg.SupervisorChatID,
		pollTimeout:  cfg.PollTimeout,
		logger:       logger,
	}, nil
}

// SetChatRouter registers r to be told where each user writes from. It
// must be called before Run.
func (b *Bot) SetChatRouter(r ChatRouter) {
	b.router = r
}

// API exposes the client so a Sink can share it
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}

// Run polls for updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(b.pollTimeout / time.Second)
	if u.Timeout <= 0 {
		u.Timeout = 60
	}

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info().Int("poll_timeout", u.Timeout).Msg("Polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info().Msg("Stopped polling for updates")
			return nil
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("telegram update channel closed")
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	in, kind, ok := b.inbound(update)
	metrics.TelegramUpdates.WithLabelValues(kind).Inc()
	if !ok {
		return
	}

	if cq := update.CallbackQuery; cq != nil {
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			b.logger.Warn().Err(err).Msg("Failed to answer callback query")
		}
	}

	if b.router != nil && in.ChatID != 0 && !in.FromSupervisor {
		b.router.RememberChat(in.UserID, in.ChatID)
	}

	b.handler.OnUserCommand(ctx, in)
}

// inbound extracts the sender and text of an update. kind labels the
// update for metrics.
func (b *Bot) inbound(update tgbotapi.Update) (dispatch.Inbound, string, bool) {
	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Text == "" {
			return dispatch.Inbound{}, "message_ignored", false
		}
		in := dispatch.Inbound{
			UserID:      msg.From.ID,
			DisplayName: DisplayName(msg.From),
			Text:        msg.Text,
			At:          msg.Time(),
		}
		if msg.Chat != nil {
			in.ChatID = msg.Chat.ID
			in.FromSupervisor = msg.Chat.ID == b.supervisorID
		}
		return in, "message", true

	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.From == nil {
			return dispatch.Inbound{}, "callback_ignored", false
		}
		in := dispatch.Inbound{
			UserID:      cq.From.ID,
			DisplayName: DisplayName(cq.From),
			Text:        cq.Data,
			At:          time.Now(),
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			in.ChatID = cq.Message.Chat.ID
			in.FromSupervisor = cq.Message.Chat.ID == b.supervisorID
		}
		return in, "callback", true
	}

	return dispatch.Inbound{}, "other", false
}

// DisplayName is how a user is named in notifications: @username when set,
// otherwise their full name.
func DisplayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return fmt.Sprintf("user %d", u.ID)
	}
	return name
}

// botLogger routes the client library's log output through zerolog
type botLogger struct {
	logger zerolog.Logger
}

func (l botLogger) Println(v ...interface{}) {
	l.logger.Debug().Msg(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
