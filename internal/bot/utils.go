package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"careconnect/internal/models"
)

// send delivers any chattable, swallowing errors into the log. A nil api
// makes every send a no-op so handlers can be exercised in tests.
func (b *Bot) send(c tgbotapi.Chattable) {
	if b.api == nil {
		return // For testing
	}
	if _, err := b.api.Send(c); err != nil {
		b.logger.Error("Failed to send message", zap.Error(err))
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

// sendWithKeyboard attaches an inline or reply keyboard to a message.
func (b *Bot) sendWithKeyboard(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	b.send(msg)
}

// sendHTMLWithKeyboard is sendWithKeyboard for notification templates,
// which use HTML markup.
func (b *Bot) sendHTMLWithKeyboard(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	b.send(msg)
}

// sendRemoveKeyboard sends text and drops the persistent reply keyboard.
func (b *Bot) sendRemoveKeyboard(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	b.send(msg)
}

// answerCallback acks a callback query so the client stops its spinner.
func (b *Bot) answerCallback(queryID, text string) {
	if b.api == nil {
		return // For testing
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(queryID, text)); err != nil {
		b.logger.Warn("Failed to answer callback query", zap.Error(err))
	}
}

// editMessage replaces the text and keyboard of an existing message.
// Used by the toggle keyboards so selections update in place.
func (b *Bot) editMessage(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if b.api == nil {
		return // For testing
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Warn("Failed to edit message", zap.Error(err))
	}
}

// recordInteraction writes one usage event to the local log, if enabled.
// Fire-and-forget: the handler never waits on telemetry.
func (b *Bot) recordInteraction(telegramID int64, role, kind, label string) {
	if b.events == nil {
		return
	}
	interaction := models.Interaction{
		ID:         uuid.NewString(),
		TelegramID: telegramID,
		Role:       role,
		Kind:       kind,
		Label:      label,
		OccurredAt: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.events.RecordInteraction(ctx, interaction); err != nil {
			b.logger.Warn("Failed to record interaction", zap.Error(err))
		}
	}()
}

// toggle adds value to the slice when absent and removes it when present.
func toggle(values []string, value string) []string {
	for i, v := range values {
		if v == value {
			return append(values[:i], values[i+1:]...)
		}
	}
	return append(values, value)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
