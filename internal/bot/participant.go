package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"careconnect/internal/api"
	"careconnect/internal/models"
	"careconnect/internal/notify"
	"careconnect/internal/session"
)

const browseLimit = 10

// showBrowseEvents lists upcoming activities with per-activity buttons.
// Full activities stay visible so users can join their waitlists.
func (b *Bot) showBrowseEvents(ctx context.Context, chatID int64, sess *session.Session) {
	activities := b.client.ListActivities(ctx, sess.Token, browseLimit, false)
	if activities == nil {
		b.sendText(chatID, "Could not load events right now. Please try again later.")
		return
	}
	if len(activities) == 0 {
		b.sendText(chatID, "No upcoming events at the moment. Check back soon!")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, a := range activities {
		label := fmt.Sprintf("👉 %s (%s)", a.Title, notify.FormatDateShort(a.StartDatetime))
		if spots := a.SpotsLeft(); spots > 0 {
			label += fmt.Sprintf(" 🟢 %d spots", spots)
		} else {
			label += " 🔴 Full"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "activity_"+a.ID),
		))
	}

	b.sendWithKeyboard(chatID, "🎯 Upcoming Events\n\nTap an event for details:",
		tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// showActivityDetails renders one activity with a join button suited to
// the viewer's role and the activity's availability.
func (b *Bot) showActivityDetails(ctx context.Context, chatID int64, sess *session.Session, activityID string) {
	activity := b.client.GetActivity(ctx, sess.Token, activityID)
	if activity == nil {
		b.sendText(chatID, "Could not load that event. Please try again later.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🎯 %s\n\n", activity.Title)
	if activity.Description != "" {
		sb.WriteString(activity.Description + "\n\n")
	}
	fmt.Fprintf(&sb, "📅 %s\n", notify.FormatDatetime(activity.StartDatetime))
	fmt.Fprintf(&sb, "📍 %s", orDash(activity.Location))
	if activity.Room != "" {
		fmt.Fprintf(&sb, ", %s", activity.Room)
	}
	sb.WriteString("\n")
	if activity.Requirements != "" {
		fmt.Fprintf(&sb, "📋 Requirements: %s\n", activity.Requirements)
	}
	if spots := activity.SpotsLeft(); spots > 0 {
		fmt.Fprintf(&sb, "🟢 %d of %d spots left\n", spots, activity.Capacity)
	} else {
		sb.WriteString("🔴 Fully booked. You can join the waitlist.\n")
	}

	joinLabel := "✅ Join this event"
	if activity.SpotsLeft() == 0 {
		joinLabel = "⏳ Join Waitlist"
	}
	if sess.Role() == models.RoleCaregiver {
		joinLabel = "📝 Register a care recipient"
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(joinLabel, "join_"+activity.ID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back to events", "back_to_events"),
		),
	)
	b.sendWithKeyboard(chatID, sb.String(), keyboard)
}

func orDash(s string) string {
	if s == "" {
		return "TBA"
	}
	return s
}

// handleJoin books the participant in, or hands caregivers over to the
// recipient picker.
func (b *Bot) handleJoin(ctx context.Context, chatID int64, sess *session.Session, activityID string) {
	if !sess.IsAuthenticated() {
		b.sendText(chatID, "Please send /start to log in first.")
		return
	}
	if sess.Role() == models.RoleCaregiver {
		b.showRecipientPicker(ctx, chatID, sess, activityID)
		return
	}
	b.bookActivity(ctx, chatID, sess, activityID, sess.ParticipantID(), "")
}

// bookActivity creates a booking and walks the three possible outcomes:
// confirmed, waitlisted or failed. onBehalfOf names the care recipient
// when a caregiver is booking for someone else.
func (b *Bot) bookActivity(ctx context.Context, chatID int64, sess *session.Session, activityID, participantID, onBehalfOf string) {
	if participantID == "" {
		b.sendText(chatID, "Your account has no participant profile, so I can't book for you.")
		return
	}

	result := b.client.CreateBooking(ctx, sess.Token, activityID, participantID)

	switch {
	case result.Success && result.Status == api.BookingWaitlisted:
		b.sendText(chatID, fmt.Sprintf(
			"⏳ This activity is full, so I've added you to the waitlist.\n\nYou are #%d in line. I'll message you the moment a spot opens up!",
			result.WaitlistPosition))

	case result.Success:
		activity := b.client.GetActivity(ctx, sess.Token, activityID)
		if activity == nil {
			activity = &models.Activity{ID: activityID, Title: "your activity"}
		}
		if onBehalfOf != "" {
			text, keyboard := notify.CaregiverBookingConfirmation(onBehalfOf, activity)
			b.sendHTMLWithKeyboard(chatID, text, keyboard)
		} else {
			text, keyboard := notify.BookingConfirmation(activity, result.Booking)
			b.sendHTMLWithKeyboard(chatID, text, keyboard)
		}
		b.addToCalendar(ctx, activity, sess)

	case result.ErrorCode == api.ErrCodeBookingConflict:
		b.explainConflict(chatID, result)

	case result.ErrorCode == api.ErrCodeAlreadyRegistered:
		b.sendText(chatID, "You're already registered for this activity. Check 📅 My Bookings.")

	default:
		msg := result.Error
		if msg == "" {
			msg = "Booking failed. Please try again later."
		}
		b.sendText(chatID, "❌ "+msg)
	}
}

// explainConflict tells the user which booking clashes and offers the
// backend's suggested alternatives.
func (b *Bot) explainConflict(chatID int64, result api.BookingResult) {
	conflicting, alternatives := result.ConflictingActivity, result.Alternatives

	var sb strings.Builder
	sb.WriteString("⚠️ Schedule conflict!\n\n")
	if conflicting != nil {
		fmt.Fprintf(&sb, "This overlaps with your booking for %s (%s).\n",
			conflicting.Title, notify.FormatDatetime(conflicting.StartDatetime))
	} else {
		sb.WriteString("This overlaps with one of your existing bookings.\n")
	}

	if len(alternatives) == 0 {
		b.sendText(chatID, sb.String())
		return
	}

	sb.WriteString("\nHow about one of these instead?")
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, alt := range alternatives {
		if i >= 3 {
			break
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s (%s)", alt.Title, notify.FormatDateShort(alt.StartDatetime)),
				"activity_"+alt.ID,
			),
		))
	}
	b.sendWithKeyboard(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// addToCalendar adds the user as an attendee on the activity's shared
// calendar event. Best effort: booking already succeeded.
func (b *Bot) addToCalendar(ctx context.Context, activity *models.Activity, sess *session.Session) {
	if b.calendar == nil || activity.GoogleCalendarEventID == "" || sess.User == nil || sess.User.Email == "" {
		return
	}
	if err := b.calendar.AddAttendee(ctx, activity.GoogleCalendarEventID, sess.User.Email, sess.DisplayName()); err != nil {
		b.logger.Warn("Failed to add calendar attendee",
			zap.Error(err),
			zap.String("event_id", activity.GoogleCalendarEventID),
		)
	}
}

// showMyBookings splits bookings into upcoming and past, offering
// management buttons for the former and rating buttons for the latter.
func (b *Bot) showMyBookings(ctx context.Context, chatID int64, sess *session.Session) {
	bookings := b.client.ListMyBookings(ctx, sess.Token, 20)
	if bookings == nil {
		b.sendText(chatID, "Could not load your bookings right now. Please try again later.")
		return
	}
	if len(bookings) == 0 {
		b.sendText(chatID, "You have no bookings yet. Tap 🎯 Browse Events to find something fun!")
		return
	}

	now := time.Now()
	var upcoming, past []models.Booking
	for _, bk := range bookings {
		if bk.Activity == nil {
			continue
		}
		start, err := time.Parse(time.RFC3339, bk.Activity.StartDatetime)
		if err == nil && start.Before(now) {
			past = append(past, bk)
		} else {
			upcoming = append(upcoming, bk)
		}
	}

	var sb strings.Builder
	var rows [][]tgbotapi.InlineKeyboardButton

	sb.WriteString("📅 My Bookings\n")
	if len(upcoming) > 0 {
		sb.WriteString("\nUpcoming:\n")
		for _, bk := range upcoming {
			fmt.Fprintf(&sb, "• %s (%s)\n", bk.Activity.Title, notify.FormatDateShort(bk.Activity.StartDatetime))
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("ℹ️ "+bk.Activity.Title, "booking_details_"+bk.ID),
			))
		}
	}
	if len(past) > 0 {
		sb.WriteString("\nPast:\n")
		for _, bk := range past {
			fmt.Fprintf(&sb, "• %s (%s)\n", bk.Activity.Title, notify.FormatDateShort(bk.Activity.StartDatetime))
			if bk.FeedbackRating == 0 && bk.Status != "cancelled" {
				rows = append(rows, tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("⭐ Rate "+bk.Activity.Title, "rate_booking_"+bk.ID),
				))
			}
		}
	}

	if len(rows) == 0 {
		b.sendText(chatID, sb.String())
		return
	}
	b.sendWithKeyboard(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// showBookingDetails renders one booking with a cancel option. There is
// no single-booking endpoint, so the booking comes from the list.
func (b *Bot) showBookingDetails(ctx context.Context, chatID int64, sess *session.Session, bookingID string) {
	booking := b.findBooking(ctx, sess, bookingID)
	if booking == nil || booking.Activity == nil {
		b.sendText(chatID, "Could not find that booking. It may have been cancelled.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🎫 %s\n\n", booking.Activity.Title)
	fmt.Fprintf(&sb, "📅 %s\n", notify.FormatDatetime(booking.Activity.StartDatetime))
	fmt.Fprintf(&sb, "📍 %s\n", orDash(booking.Activity.Location))
	fmt.Fprintf(&sb, "Status: %s\n", booking.Status)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Cancel booking", "confirm_cancel_"+booking.ID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "back_to_bookings"),
		),
	)
	b.sendWithKeyboard(chatID, sb.String(), keyboard)
}

func (b *Bot) findBooking(ctx context.Context, sess *session.Session, bookingID string) *models.Booking {
	for _, bk := range b.client.ListMyBookings(ctx, sess.Token, 50) {
		if bk.ID == bookingID {
			found := bk
			return &found
		}
	}
	return nil
}

// findBookingByActivity resolves reminder cancel buttons, which carry
// the activity id rather than the booking id.
func (b *Bot) findBookingByActivity(ctx context.Context, sess *session.Session, activityID string) *models.Booking {
	for _, bk := range b.client.ListMyBookings(ctx, sess.Token, 50) {
		if bk.Activity != nil && bk.Activity.ID == activityID && bk.Status != "cancelled" {
			found := bk
			return &found
		}
	}
	return nil
}

func (b *Bot) confirmCancelBooking(ctx context.Context, chatID int64, sess *session.Session, bookingID string) {
	booking := b.findBooking(ctx, sess, bookingID)
	title := "this activity"
	if booking != nil && booking.Activity != nil {
		title = booking.Activity.Title
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, cancel it", "do_cancel_"+bookingID),
			tgbotapi.NewInlineKeyboardButtonData("Keep my spot", "back_to_bookings"),
		),
	)
	b.sendWithKeyboard(chatID, fmt.Sprintf("Are you sure you want to cancel your booking for %s?", title), keyboard)
}

func (b *Bot) cancelBooking(ctx context.Context, chatID int64, sess *session.Session, bookingID string) {
	result := b.client.CancelBooking(ctx, sess.Token, bookingID)
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "Could not cancel that booking. Please try again later."
		}
		b.sendText(chatID, "❌ "+msg)
		return
	}
	b.sendText(chatID, "✅ Booking cancelled. The spot has been released for someone else.")
}

// showWaitlist lists the participant's waitlist entries, surfacing any
// active offer with its remaining time.
func (b *Bot) showWaitlist(ctx context.Context, chatID int64, sess *session.Session) {
	entries := b.client.ParticipantWaitlist(ctx, sess.Token, sess.ParticipantID())
	if entries == nil {
		b.sendText(chatID, "Could not load your waitlist right now. Please try again later.")
		return
	}
	if len(entries) == 0 {
		b.sendText(chatID, "You're not on any waitlists. Full events offer a waitlist spot when you try to join.")
		return
	}

	var sb strings.Builder
	var rows [][]tgbotapi.InlineKeyboardButton
	sb.WriteString("⏳ Your Waitlists\n\n")
	for _, e := range entries {
		title := "an activity"
		if e.Activity != nil {
			title = e.Activity.Title
		}
		switch {
		case e.IsOfferActive:
			remaining := time.Duration(e.OfferExpiresIn) * time.Millisecond
			fmt.Fprintf(&sb, "🎉 %s: a spot is yours if you want it! Offer expires in %dh %dm.\n",
				title, int(remaining.Hours()), int(remaining.Minutes())%60)
			rows = append(rows,
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("✅ Accept "+title, "accept_waitlist_"+e.ID),
					tgbotapi.NewInlineKeyboardButtonData("❌ Decline", "decline_waitlist_"+e.ID),
				))
		case e.Status == "waiting":
			fmt.Fprintf(&sb, "• %s: #%d in line\n", title, e.Position)
		default:
			fmt.Fprintf(&sb, "• %s: %s\n", title, e.Status)
		}
	}

	if len(rows) == 0 {
		b.sendText(chatID, sb.String())
		return
	}
	b.sendWithKeyboard(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) acceptWaitlistOffer(ctx context.Context, chatID int64, sess *session.Session, waitlistID string) {
	result := b.client.AcceptWaitlistOffer(ctx, sess.Token, waitlistID)
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "Could not accept the offer. It may have expired."
		}
		b.sendText(chatID, "❌ "+msg)
		return
	}
	b.sendText(chatID, "🎉 You're in! Your spot is confirmed. See 📅 My Bookings for details.")
}

func (b *Bot) declineWaitlistOffer(ctx context.Context, chatID int64, sess *session.Session, waitlistID string) {
	result := b.client.DeclineWaitlistOffer(ctx, sess.Token, waitlistID)
	if !result.Success {
		b.sendText(chatID, "Could not decline the offer right now. It will expire on its own.")
		return
	}
	b.sendText(chatID, "No problem, the spot goes to the next person in line.")
}

// startRating begins the rating flow for a past booking: pick stars,
// then optionally add written feedback.
func (b *Bot) startRating(chatID int64, sess *session.Session, bookingID string) {
	sess.StartFlow(session.FlowRating, stepFeedback)
	sess.RatingBookingID = bookingID

	row := make([]tgbotapi.InlineKeyboardButton, 0, 5)
	for stars := 1; stars <= 5; stars++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			strings.Repeat("⭐", stars), fmt.Sprintf("rating_%d", stars)))
	}
	b.sendWithKeyboard(chatID, "How was it? Tap to rate:", tgbotapi.NewInlineKeyboardMarkup(row))
}

// handleRatingStars records the chosen star count and asks for optional
// written feedback.
func (b *Bot) handleRatingStars(ctx context.Context, chatID int64, sess *session.Session, stars int) {
	if sess.Flow != session.FlowRating || sess.RatingBookingID == "" {
		b.sendText(chatID, "That rating is no longer active. Open 📅 My Bookings to rate an activity.")
		return
	}
	sess.RatingStars = stars

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Skip", "rating_skip_feedback"),
		),
	)
	b.sendWithKeyboard(chatID,
		fmt.Sprintf("%s Thanks! Anything you'd like to add? Type your feedback, or skip.", strings.Repeat("⭐", stars)),
		keyboard)
}

func (b *Bot) skipRatingFeedback(ctx context.Context, chatID int64, sess *session.Session) {
	if sess.Flow != session.FlowRating || sess.RatingBookingID == "" || sess.RatingStars == 0 {
		return
	}
	result := b.client.SubmitBookingFeedback(ctx, sess.Token, sess.RatingBookingID, sess.RatingStars, "")
	sess.Reset()
	if !result.Success {
		b.sendText(chatID, "Could not save your rating right now. Please try again later.")
		return
	}
	b.sendText(chatID, "Thanks for rating! ⭐")
}
