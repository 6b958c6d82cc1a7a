package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"careconnect/internal/api"
	"careconnect/internal/calendar"
	"careconnect/internal/session"
	"careconnect/internal/storage"
)

// Bot wires Telegram updates to the CareConnect backend. All user data
// lives behind the backend API; the bot only keeps per-chat sessions in
// memory.
type Bot struct {
	api       *tgbotapi.BotAPI
	client    *api.Client
	datastore *api.Datastore
	calendar  *calendar.Service // nil when calendar sync is disabled
	events    storage.EventLog  // nil when the event log is disabled
	sessions  *session.Store
	adminID   int64
	logger    *zap.Logger
}

// Reply keyboard labels. These double as the message-text dispatch keys,
// so they must match the menus exactly.
const (
	menuBrowseEvents  = "🎯 Browse Events"
	menuMyBookings    = "📅 My Bookings"
	menuWaitlist      = "⏳ Waitlist"
	menuMyProfile     = "👤 My Profile"
	menuHelp          = "❓ Help"
	menuRecipients    = "👥 My Care Recipients"
	menuAllBookings   = "📅 All Bookings"
	menuProfile       = "👤 Profile"
	menuOpportunities = "🤝 Available Opportunities"
	menuAssignments   = "📋 My Assignments"
	menuHoursStats    = "⏱ Hours & Stats"
	menuUploadPoster  = "📸 Upload Poster"
	menuViewStats     = "📊 View Stats"
)

// Interest, skill and availability options offered during volunteer
// onboarding.
var (
	volunteerInterests = []string{"Arts & Crafts", "Music", "Exercise", "Games", "Cooking", "Technology"}
	volunteerSkills    = []string{"First Aid", "Sign Language", "Cooking", "Music", "Photography", "Driving"}
)

// participantMenu is the persistent reply keyboard for participants.
func participantMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuBrowseEvents),
			tgbotapi.NewKeyboardButton(menuMyBookings),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuWaitlist),
			tgbotapi.NewKeyboardButton(menuMyProfile),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuHelp),
		),
	)
}

func caregiverMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuRecipients),
			tgbotapi.NewKeyboardButton(menuBrowseEvents),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuAllBookings),
			tgbotapi.NewKeyboardButton(menuProfile),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuHelp),
		),
	)
}

func volunteerMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuOpportunities),
			tgbotapi.NewKeyboardButton(menuAssignments),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuHoursStats),
			tgbotapi.NewKeyboardButton(menuProfile),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuHelp),
		),
	)
}

func adminMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuUploadPoster),
			tgbotapi.NewKeyboardButton(menuViewStats),
		),
	)
}
