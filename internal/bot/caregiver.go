package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"careconnect/internal/models"
	"careconnect/internal/notify"
	"careconnect/internal/session"
)

// showCareRecipients lists everyone linked to the caregiver.
func (b *Bot) showCareRecipients(ctx context.Context, chatID int64, sess *session.Session) {
	if sess.CaregiverID() == "" {
		b.sendText(chatID, "Your account has no caregiver profile.")
		return
	}

	recipients := b.client.CaregiverParticipants(ctx, sess.Token, sess.CaregiverID())

	var sb strings.Builder
	var rows [][]tgbotapi.InlineKeyboardButton

	if len(recipients) == 0 {
		sb.WriteString("You have no care recipients linked yet.\n\nLink someone to book activities on their behalf.")
	} else {
		sb.WriteString("👥 My Care Recipients\n\n")
		for _, r := range recipients {
			fmt.Fprintf(&sb, "• %s (%d upcoming)\n", r.DisplayName(), r.UpcomingBookingsCount)
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📋 "+r.DisplayName()+"'s schedule", "view_schedule_"+r.ID),
			))
		}
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Add Care Recipient", "add_recipient"),
	))
	b.sendWithKeyboard(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// startAddRecipient begins the link flow: the caregiver types the
// participant's account email.
func (b *Bot) startAddRecipient(chatID int64, sess *session.Session) {
	if sess.CaregiverID() == "" {
		b.sendText(chatID, "Your account has no caregiver profile.")
		return
	}
	sess.StartFlow(session.FlowCaregiverLink, stepLinkMail)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "cancel_add_recipient"),
		),
	)
	b.sendWithKeyboard(chatID,
		"Enter the email address the participant registered with.\n\nThey need a CareConnect account before you can link them.",
		keyboard)
}

func (b *Bot) cancelAddRecipient(ctx context.Context, chatID int64, sess *session.Session) {
	sess.Reset()
	b.showCareRecipients(ctx, chatID, sess)
}

// showRecipientSchedule lists one care recipient's upcoming bookings.
func (b *Bot) showRecipientSchedule(ctx context.Context, chatID int64, sess *session.Session, recipientID string) {
	var recipient *models.CareRecipient
	for _, r := range b.client.CaregiverParticipants(ctx, sess.Token, sess.CaregiverID()) {
		if r.ID == recipientID {
			found := r
			recipient = &found
			break
		}
	}
	if recipient == nil {
		// Reminder buttons carry ids the recipients list may not have
		b.showAllRecipientBookings(ctx, chatID, sess)
		return
	}

	bookings := b.client.ParticipantBookings(ctx, sess.Token, recipient.ID)
	if len(bookings) == 0 {
		b.sendText(chatID, fmt.Sprintf("%s has no upcoming bookings.", recipient.DisplayName()))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 %s's Schedule\n\n", recipient.DisplayName())
	for _, bk := range bookings {
		if bk.Activity == nil {
			continue
		}
		fmt.Fprintf(&sb, "• %s - %s (%s)\n", bk.Activity.Title,
			notify.FormatDatetime(bk.Activity.StartDatetime), bk.Status)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "back_to_recipients"),
		),
	)
	b.sendWithKeyboard(chatID, sb.String(), keyboard)
}

// showAllRecipientBookings aggregates upcoming bookings across every
// linked care recipient.
func (b *Bot) showAllRecipientBookings(ctx context.Context, chatID int64, sess *session.Session) {
	recipients := b.client.CaregiverParticipants(ctx, sess.Token, sess.CaregiverID())
	if len(recipients) == 0 {
		b.sendText(chatID, "You have no care recipients linked yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📅 All Bookings\n")
	total := 0
	for _, r := range recipients {
		bookings := b.client.ParticipantBookings(ctx, sess.Token, r.ID)
		if len(bookings) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s:\n", r.DisplayName())
		for _, bk := range bookings {
			if bk.Activity == nil {
				continue
			}
			fmt.Fprintf(&sb, "• %s (%s)\n", bk.Activity.Title, notify.FormatDateShort(bk.Activity.StartDatetime))
			total++
		}
	}
	if total == 0 {
		b.sendText(chatID, "No upcoming bookings across your care recipients.")
		return
	}
	b.sendText(chatID, sb.String())
}

// showRecipientPicker asks which care recipient an activity booking is
// for. Callback payloads carry a short index into PendingJoinIDs.
func (b *Bot) showRecipientPicker(ctx context.Context, chatID int64, sess *session.Session, activityID string) {
	recipients := b.client.CaregiverParticipants(ctx, sess.Token, sess.CaregiverID())
	if len(recipients) == 0 {
		b.sendText(chatID, "You have no care recipients linked yet. Add one via 👥 My Care Recipients first.")
		return
	}

	sess.PendingJoinActivityID = activityID
	sess.PendingJoinIDs = make([]string, len(recipients))

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, r := range recipients {
		sess.PendingJoinIDs[i] = r.ID
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👉 "+r.DisplayName(), fmt.Sprintf("cg_join_%d", i)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Cancel", "cancel_cg_join"),
	))

	b.sendWithKeyboard(chatID, "Who is this booking for?", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// handleCaregiverJoin books the picked care recipient into the pending
// activity.
func (b *Bot) handleCaregiverJoin(ctx context.Context, chatID int64, sess *session.Session, index int) {
	if sess.PendingJoinActivityID == "" || index < 0 || index >= len(sess.PendingJoinIDs) {
		b.sendText(chatID, "That selection is no longer active. Please open the event again.")
		return
	}
	activityID := sess.PendingJoinActivityID
	participantID := sess.PendingJoinIDs[index]

	name := "your care recipient"
	for _, r := range b.client.CaregiverParticipants(ctx, sess.Token, sess.CaregiverID()) {
		if r.ID == participantID {
			name = r.DisplayName()
			break
		}
	}

	sess.PendingJoinActivityID = ""
	sess.PendingJoinIDs = nil

	b.bookActivity(ctx, chatID, sess, activityID, participantID, name)
}

func (b *Bot) cancelCaregiverJoin(ctx context.Context, chatID int64, sess *session.Session) {
	activityID := sess.PendingJoinActivityID
	sess.PendingJoinActivityID = ""
	sess.PendingJoinIDs = nil
	if activityID != "" {
		b.showActivityDetails(ctx, chatID, sess, activityID)
		return
	}
	b.sendText(chatID, "Booking cancelled.")
}
