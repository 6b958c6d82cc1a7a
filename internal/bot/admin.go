package bot

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"careconnect/internal/calendar"
	"careconnect/internal/models"
	"careconnect/internal/notify"
	"careconnect/internal/session"
)

const (
	defaultActivityCapacity = 50
	broadcastConcurrency    = 8
)

// Activities default to two hours when the poster only names a start.
const defaultEventDuration = 2 * time.Hour

// Calendar events are pinned to the hub's local timezone.
const eventTimezone = "Asia/Singapore"

// startPosterUpload begins the admin publish flow.
func (b *Bot) startPosterUpload(chatID int64, sess *session.Session) {
	if !b.isAdmin(chatID) {
		return
	}
	sess.StartFlow(session.FlowPosterUpload, stepPhoto)
	b.sendText(chatID, "📸 Send me the event poster as a photo and I'll extract the details.")
}

// handlePosterPhoto downloads the poster, runs extraction and shows the
// draft for confirmation.
func (b *Bot) handlePosterPhoto(ctx context.Context, message *tgbotapi.Message, sess *session.Session) {
	chatID := message.Chat.ID
	if !b.isAdmin(chatID) || sess.Step != stepPhoto {
		return
	}

	// Telegram sends several sizes; the last is the largest
	fileID := message.Photo[len(message.Photo)-1].FileID

	b.sendText(chatID, "🔍 Reading the poster, one moment...")

	data, err := b.downloadFile(fileID)
	if err != nil {
		b.logger.Error("Failed to download poster", zap.Error(err))
		b.sendText(chatID, "Could not download that photo. Please try sending it again.")
		return
	}

	result := b.client.ExtractPoster(ctx, base64.StdEncoding.EncodeToString(data))
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "Could not read the poster. Please try a clearer photo."
		}
		b.sendText(chatID, "❌ "+msg)
		return
	}

	sess.PosterDraft = &result.Draft
	sess.PosterFileID = fileID
	sess.Step = stepConfirm

	draft := result.Draft
	var sb strings.Builder
	sb.WriteString("Here's what I found:\n\n")
	fmt.Fprintf(&sb, "📌 %s\n", orDash(draft.Name))
	fmt.Fprintf(&sb, "📅 %s\n", orDash(draft.Datetime))
	fmt.Fprintf(&sb, "📍 %s\n", orDash(draft.Location))
	if draft.Summary != "" {
		fmt.Fprintf(&sb, "\n%s\n", draft.Summary)
	}
	sb.WriteString("\nPublish this activity and announce it to everyone?")

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Publish", "confirm_post"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Discard", "cancel_post"),
		),
	)
	b.sendWithKeyboard(chatID, sb.String(), keyboard)
}

func (b *Bot) downloadFile(fileID string) ([]byte, error) {
	if b.api == nil {
		return nil, fmt.Errorf("bot api not available")
	}
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// handleConfirmPost publishes the drafted activity: calendar event,
// backend activity, then the broadcast.
func (b *Bot) handleConfirmPost(ctx context.Context, chatID int64, sess *session.Session) {
	if !b.isAdmin(chatID) || sess.PosterDraft == nil {
		b.sendText(chatID, "There is no draft to publish. Upload a poster first.")
		return
	}
	draft := *sess.PosterDraft
	posterFileID := sess.PosterFileID
	sess.Reset()

	start := parseDraftDatetime(draft.Datetime, time.Now())
	end := start.Add(defaultEventDuration)

	eventID := ""
	if b.calendar != nil {
		id, err := b.calendar.CreateEvent(ctx, calendar.Event{
			Summary:     draft.Name,
			Description: draft.Summary,
			Location:    draft.Location,
			Start:       &calendar.EventTime{DateTime: start.Format(time.RFC3339), TimeZone: eventTimezone},
			End:         &calendar.EventTime{DateTime: end.Format(time.RFC3339), TimeZone: eventTimezone},
		})
		if err != nil {
			b.logger.Warn("Failed to create calendar event", zap.Error(err))
		} else {
			eventID = id
		}
	}

	result := b.client.CreateActivity(ctx, sess.Token, map[string]any{
		"title":                    draft.Name,
		"description":              draft.Summary,
		"location":                 draft.Location,
		"start_datetime":           start.Format(time.RFC3339),
		"end_datetime":             end.Format(time.RFC3339),
		"capacity":                 defaultActivityCapacity,
		"google_calendar_event_id": eventID,
	})
	if !result.Success || result.Activity == nil {
		msg := result.Error
		if msg == "" {
			msg = "Could not create the activity. Please try again later."
		}
		b.sendText(chatID, "❌ "+msg)
		return
	}

	sent := b.broadcastActivity(ctx, result.Activity, posterFileID)
	b.sendText(chatID, fmt.Sprintf("✅ %s is live! Announced to %d people.", result.Activity.Title, sent))
}

func (b *Bot) handleCancelPost(chatID int64, sess *session.Session) {
	sess.Reset()
	b.sendText(chatID, "Draft discarded. Send another poster whenever you're ready.")
}

// broadcastActivity announces a new activity to every user with a known
// Telegram chat, the poster attached when available. Sends run
// concurrently but bounded, so a large user base cannot starve the bot.
func (b *Bot) broadcastActivity(ctx context.Context, activity *models.Activity, posterFileID string) int {
	recipients := b.datastore.BroadcastRecipients(ctx, "")
	if len(recipients) == 0 {
		return 0
	}

	text, keyboard := notify.NewActivityBroadcast(activity)

	var g errgroup.Group
	g.SetLimit(broadcastConcurrency)
	results := make([]bool, len(recipients))

	for i, r := range recipients {
		chatID, err := strconv.ParseInt(r.TelegramID, 10, 64)
		if err != nil || chatID == b.adminID {
			continue
		}
		i := i
		g.Go(func() error {
			if err := b.sendBroadcast(chatID, text, keyboard, posterFileID); err != nil {
				b.logger.Warn("Broadcast send failed", zap.Error(err), zap.Int64("chat_id", chatID))
				return nil
			}
			results[i] = true
			return nil
		})
	}
	g.Wait()

	sent := 0
	for _, ok := range results {
		if ok {
			sent++
		}
	}
	return sent
}

func (b *Bot) sendBroadcast(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup, posterFileID string) error {
	if b.api == nil {
		return nil // For testing
	}
	if posterFileID != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(posterFileID))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = keyboard
		if _, err := b.api.Send(photo); err == nil {
			return nil
		}
		// Fall back to plain text when the photo can't be delivered
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

// parseDraftDatetime makes a best effort at the free-form date text
// extracted from a poster. Unparseable dates fall back to tomorrow 9am
// so the admin still gets a draft to correct on the backend.
func parseDraftDatetime(value string, now time.Time) time.Time {
	value = strings.TrimSpace(value)
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"2 January 2006 3:04PM",
		"2 January 2006 15:04",
		"2 January 2006",
		"January 2, 2006 3:04PM",
		"January 2, 2006",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, now.Location()); err == nil {
			return t
		}
	}
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 9, 0, 0, 0, now.Location())
}
