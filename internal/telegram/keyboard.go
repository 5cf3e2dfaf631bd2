package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/goodtune/breakbot/internal/breaks"
	"github.com/goodtune/breakbot/internal/dispatch"
)

const (
	returnButtonText = "I'm back"
	availabilityText = "Check Availability"
)

// BreakKeyboard is the reply keyboard shown on /start
func BreakKeyboard() tgbotapi.ReplyKeyboardMarkup {
	buttons := make([]tgbotapi.KeyboardButton, 0, len(breaks.Types)+1)
	for _, t := range breaks.Types {
		buttons = append(buttons, tgbotapi.NewKeyboardButton(t.Title()+" Break"))
	}
	buttons = append(buttons, tgbotapi.NewKeyboardButton(availabilityText))

	kb := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(buttons...))
	kb.OneTimeKeyboard = true
	kb.ResizeKeyboard = true
	return kb
}

// ReturnKeyboard is the inline "I'm back" button attached to the break message
func ReturnKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(returnButtonText, dispatch.ReturnCallbackData),
		),
	)
}
