package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/goodtune/breakbot/internal/notify"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// DefaultMessageCacheSize bounds how many open break messages are remembered
const DefaultMessageCacheSize = 1024

// sender is the part of tgbotapi.BotAPI used for delivery
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// messageRef locates the break message carrying the "I'm back" button
type messageRef struct {
	chatID    int64
	messageID int
}

// Sink delivers notifications as Telegram messages. Users are answered in
// the chat they last wrote from, or their private chat (whose ID equals the
// user ID) when none is known.
type Sink struct {
	api          sender
	supervisorID int64
	open         *lru.Cache[int64, messageRef]
	chats        *lru.Cache[int64, int64]
	logger       zerolog.Logger
}

// NewSink creates a delivery sink
func NewSink(api sender, supervisorChatID int64, cacheSize int, logger zerolog.Logger) (*Sink, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultMessageCacheSize
	}
	cache, err := lru.New[int64, messageRef](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create message cache: %w", err)
	}
	chats, err := lru.New[int64, int64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat cache: %w", err)
	}

	return &Sink{
		api:          api,
		supervisorID: supervisorChatID,
		open:         cache,
		chats:        chats,
		logger:       logger.With().Str("component", "telegram-sink").Logger(),
	}, nil
}

// Notify renders ev and sends it to its recipient
func (s *Sink) Notify(ctx context.Context, ev notify.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := Render(ev)
	if text == "" {
		s.logger.Debug().Str("kind", string(ev.Kind)).Msg("Nothing to render")
		return nil
	}

	chatID := s.userChat(ev.To.UserID)
	if ev.To.Supervisor {
		if s.supervisorID == 0 {
			s.logger.Debug().Str("kind", string(ev.Kind)).Msg("No supervisor chat configured")
			return nil
		}
		chatID = s.supervisorID
	}

	if ev.To.Supervisor {
		return s.send(tgbotapi.NewMessage(chatID, text))
	}

	switch ev.Kind {
	case notify.KindBreakStarted:
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = ReturnKeyboard()
		sent, err := s.api.Send(msg)
		if err != nil {
			return fmt.Errorf("failed to send break message: %w", err)
		}
		s.open.Add(ev.UserID, messageRef{chatID: chatID, messageID: sent.MessageID})
		return nil

	case notify.KindBreakEnded:
		// Replace the break message so the button cannot be pressed again
		if s.closeBreakMessage(ev.UserID, text) {
			return nil
		}
		return s.send(tgbotapi.NewMessage(chatID, text))

	case notify.KindLateWarning:
		s.closeBreakMessage(ev.UserID, fmt.Sprintf("Your %s break has ended.", ev.BreakType))
		return s.send(tgbotapi.NewMessage(chatID, text))

	case notify.KindHelp:
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = BreakKeyboard()
		return s.send(msg)
	}

	return s.send(tgbotapi.NewMessage(chatID, text))
}

// RememberChat routes later messages for userID to chatID
func (s *Sink) RememberChat(userID, chatID int64) {
	s.chats.Add(userID, chatID)
}

func (s *Sink) userChat(userID int64) int64 {
	if chatID, ok := s.chats.Get(userID); ok {
		return chatID
	}
	return userID
}

func (s *Sink) send(msg tgbotapi.MessageConfig) error {
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", msg.ChatID, err)
	}
	return nil
}

// closeBreakMessage edits the user's open break message. It reports
// whether there was one and the edit succeeded.
func (s *Sink) closeBreakMessage(userID int64, text string) bool {
	ref, ok := s.open.Get(userID)
	if !ok {
		return false
	}
	s.open.Remove(userID)

	edit := tgbotapi.NewEditMessageText(ref.chatID, ref.messageID, text)
	if _, err := s.api.Request(edit); err != nil {
		s.logger.Warn().
			Err(err).
			Int64("user_id", userID).
			Int("message_id", ref.messageID).
			Msg("Failed to edit break message")
		return false
	}
	return true
}
