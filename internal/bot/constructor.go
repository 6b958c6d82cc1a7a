package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"careconnect/internal/api"
	"careconnect/internal/calendar"
	"careconnect/internal/session"
	"careconnect/internal/storage"
)

// NewBot creates the Telegram bot. calendarSvc and events may be nil,
// which disables calendar sync and the interaction log respectively.
func NewBot(token string, adminID int64, client *api.Client, datastore *api.Datastore, calendarSvc *calendar.Service, events storage.EventLog, logger *zap.Logger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created", zap.String("bot_username", botAPI.Self.UserName))

	return &Bot{
		api:       botAPI,
		client:    client,
		datastore: datastore,
		calendar:  calendarSvc,
		events:    events,
		sessions:  session.NewStore(logger),
		adminID:   adminID,
		logger:    logger,
	}, nil
}
