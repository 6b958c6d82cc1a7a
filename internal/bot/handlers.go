package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"careconnect/internal/session"
)

// HandleUpdate processes a single Telegram update.
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(update.Message)
	}
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(update.CallbackQuery)
	}
}

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			b.sendText(message.Chat.ID, "An error occurred while processing your request. Please try again.")
		}
	}()

	ctx := context.Background()
	sess := b.sessions.Get(message.Chat.ID)

	// Any command interrupts an ongoing flow
	if message.IsCommand() {
		sess.Reset()
		b.recordInteraction(message.Chat.ID, sess.Role(), "command", message.Command())
		switch message.Command() {
		case "start":
			b.handleStart(ctx, message, sess)
		case "help":
			b.handleHelp(message.Chat.ID, sess)
		case "logout":
			sess.Logout()
			b.sendRemoveKeyboard(message.Chat.ID, "You have been logged out. Send /start to log in again.")
		default:
			b.sendText(message.Chat.ID, "Unknown command. Use /start to begin.")
		}
		return
	}

	// Photos only matter inside the poster upload flow
	if len(message.Photo) > 0 {
		if sess.Flow == session.FlowPosterUpload {
			b.handlePosterPhoto(ctx, message, sess)
		}
		return
	}

	if sess.InFlow() {
		b.recordInteraction(message.Chat.ID, sess.Role(), "flow", string(sess.Flow))
		b.handleFlowInput(ctx, message, sess)
		return
	}

	if !sess.IsAuthenticated() {
		b.sendText(message.Chat.ID, "Please send /start to log in or register.")
		return
	}

	b.recordInteraction(message.Chat.ID, sess.Role(), "menu", message.Text)
	b.handleMenuSelection(ctx, message, sess)
}

// handleMenuSelection routes taps on the persistent reply keyboard.
func (b *Bot) handleMenuSelection(ctx context.Context, message *tgbotapi.Message, sess *session.Session) {
	chatID := message.Chat.ID

	switch message.Text {
	case menuBrowseEvents:
		b.showBrowseEvents(ctx, chatID, sess)
	case menuMyBookings:
		b.showMyBookings(ctx, chatID, sess)
	case menuWaitlist:
		b.showWaitlist(ctx, chatID, sess)
	case menuMyProfile, menuProfile:
		b.showProfile(chatID, sess)
	case menuHelp:
		b.handleHelp(chatID, sess)
	case menuRecipients:
		b.showCareRecipients(ctx, chatID, sess)
	case menuAllBookings:
		b.showAllRecipientBookings(ctx, chatID, sess)
	case menuOpportunities:
		b.showOpportunities(ctx, chatID, sess)
	case menuAssignments:
		b.showAssignments(ctx, chatID, sess)
	case menuHoursStats:
		b.showVolunteerStats(ctx, chatID, sess)
	case menuUploadPoster:
		b.startPosterUpload(chatID, sess)
	case menuViewStats:
		b.showAdminStats(ctx, chatID, sess)
	default:
		b.sendText(chatID, "Please use the menu buttons below, or send /help.")
	}
}
