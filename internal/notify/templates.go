// Package notify builds the HTML notification messages and inline
// keyboards the bot sends outside of direct replies.
package notify

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"careconnect/internal/models"
)

// FormatDatetime renders an RFC 3339 timestamp as e.g.
// "Monday, 02 June at 14:30". Unparseable input is truncated raw.
func FormatDatetime(value string) string {
	if value == "" {
		return "TBA"
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		if len(value) > 16 {
			return value[:16]
		}
		return value
	}
	return t.Format("Monday, 02 January at 15:04")
}

// FormatDateShort renders a timestamp as e.g. "Mon, 02 Jun".
func FormatDateShort(value string) string {
	if value == "" {
		return "TBA"
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		if len(value) > 10 {
			return value[:10]
		}
		return value
	}
	return t.Format("Mon, 02 Jan")
}

// FormatExpiry renders only the clock time of a deadline.
func FormatExpiry(value string) string {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return t.Format("15:04")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func orTBA(s string) string {
	if s == "" {
		return "TBA"
	}
	return s
}

// BookingConfirmation is sent after a successful booking.
func BookingConfirmation(activity *models.Activity, booking *models.Booking) (string, tgbotapi.InlineKeyboardMarkup) {
	bookingID := ""
	if booking != nil {
		bookingID = booking.ID
		if len(bookingID) > 8 {
			bookingID = bookingID[:8]
		}
	}

	text := fmt.Sprintf(
		"✅ <b>Booking Confirmed!</b>\n\n"+
			"📌 %s\n"+
			"📅 %s\n"+
			"📍 %s\n\n"+
			"Booking ID: %s...\n\n"+
			"See you there! 🎉",
		activity.Title,
		FormatDatetime(activity.StartDatetime),
		orTBA(activity.Location),
		bookingID,
	)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 My Bookings", "show_my_bookings"),
		),
	)
	return text, keyboard
}

// BookingCancellation is sent after a booking is cancelled.
func BookingCancellation(activity *models.Activity, reason string) (string, tgbotapi.InlineKeyboardMarkup) {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ <b>Booking Cancelled</b>\n\n📌 %s\n📅 %s\n",
		activity.Title, FormatDatetime(activity.StartDatetime))
	if reason != "" {
		fmt.Fprintf(&b, "\nReason: %s\n", reason)
	}
	b.WriteString("\nWe hope to see you at another event!")

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Browse Events", "browse_events"),
		),
	)
	return b.String(), keyboard
}

// ActivityReminder is the 24-hour participant reminder.
func ActivityReminder(activity *models.Activity) (string, tgbotapi.InlineKeyboardMarkup) {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 <b>Reminder Tomorrow!</b>\n\n📌 %s\n📅 %s\n📍 %s\n",
		activity.Title, FormatDatetime(activity.StartDatetime), orTBA(activity.Location))
	if activity.Room != "" {
		fmt.Fprintf(&b, "🚪 Room: %s\n", activity.Room)
	}
	if activity.Requirements != "" {
		fmt.Fprintf(&b, "\n<b>What to bring:</b>\n%s\n", activity.Requirements)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ View Details", "activity_"+activity.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Cancel", "cancel_booking_activity_"+activity.ID),
		),
	)
	return b.String(), keyboard
}

// ActivityCancelled tells a participant their activity was called off,
// with up to three alternatives.
func ActivityCancelled(activity *models.Activity, reason string, alternatives []models.Activity) (string, tgbotapi.InlineKeyboardMarkup) {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ <b>Activity Cancelled</b>\n\n📌 %s\n📅 %s\n",
		activity.Title, FormatDatetime(activity.StartDatetime))
	if reason != "" {
		fmt.Fprintf(&b, "\n<b>Reason:</b> %s\n", reason)
	}
	if len(alternatives) > 0 {
		b.WriteString("\n💡 <b>Suggested Alternatives:</b>\n")
		for i, alt := range alternatives {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "• %s - %s\n", alt.Title, FormatDateShort(alt.StartDatetime))
		}
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Browse Events", "browse_events"),
		),
	)
	return b.String(), keyboard
}

// WaitlistOffer tells a participant a spot opened up for them.
func WaitlistOffer(activity *models.Activity, waitlistID, expiresAt string) (string, tgbotapi.InlineKeyboardMarkup) {
	text := fmt.Sprintf(
		"🎉 <b>Spot Available!</b>\n\n"+
			"You're off the waitlist for:\n"+
			"📌 %s\n"+
			"📅 %s\n\n"+
			"⏰ Accept within 2 hours:\n"+
			"Expires at: %s",
		activity.Title,
		FormatDatetime(activity.StartDatetime),
		FormatExpiry(expiresAt),
	)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Accept Spot", "accept_waitlist_"+waitlistID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Decline", "decline_waitlist_"+waitlistID),
		),
	)
	return text, keyboard
}

// VolunteerInvitation invites a volunteer to an assignment.
func VolunteerInvitation(activity *models.Activity, assignment *models.VolunteerAssignment) (string, tgbotapi.InlineKeyboardMarkup) {
	role := assignment.Role
	if role == "" {
		role = "assistant"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🙋 <b>New Volunteer Opportunity!</b>\n\n📌 %s\n📅 %s\n🎯 Role: %s\n",
		activity.Title, FormatDatetime(activity.StartDatetime), titleCase(role))
	if assignment.Responsibilities != "" {
		fmt.Fprintf(&b, "\n<b>Responsibilities:</b>\n%s\n", assignment.Responsibilities)
	}
	if start, err := time.Parse(time.RFC3339, activity.StartDatetime); err == nil {
		if end, err := time.Parse(time.RFC3339, activity.EndDatetime); err == nil {
			fmt.Fprintf(&b, "\n⏱️ Expected time: %.1f hours\n", end.Sub(start).Hours())
		}
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Accept", "accept_assign_"+assignment.ID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Decline", "decline_assign_"+assignment.ID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Details", "assignment_details_"+assignment.ID),
		),
	)
	return b.String(), keyboard
}

// VolunteerReminder is the 24-hour volunteer assignment reminder.
func VolunteerReminder(activity *models.Activity, assignment *models.VolunteerAssignment) (string, tgbotapi.InlineKeyboardMarkup) {
	role := assignment.Role
	if role == "" {
		role = "assistant"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔔 <b>Assignment Tomorrow!</b>\n\n📌 %s - %s\n📅 %s\n📍 %s\n",
		activity.Title, titleCase(role), FormatDatetime(activity.StartDatetime), orTBA(activity.Location))
	if activity.Room != "" {
		fmt.Fprintf(&b, "🚪 Room: %s\n", activity.Room)
	}
	if assignment.Responsibilities != "" {
		fmt.Fprintf(&b, "\n<b>Responsibilities:</b>\n%s\n", assignment.Responsibilities)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📍 Directions", "directions_"+activity.ID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel_assignment_"+assignment.ID),
		),
	)
	return b.String(), keyboard
}

// CheckInReminder is sent 30 minutes before an assignment starts.
func CheckInReminder(activity *models.Activity, assignmentID string) (string, tgbotapi.InlineKeyboardMarkup) {
	text := fmt.Sprintf("🔔 <b>Reminder: %s in 30 min!</b>\n\n📍 %s",
		activity.Title, orTBA(activity.Location))
	if activity.Room != "" {
		text += ", " + activity.Room
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📍 Check In Now", "checkin_"+assignmentID),
		),
	)
	return text, keyboard
}

// StaffRatingReceived tells a volunteer staff rated their session.
func StaffRatingReceived(activity *models.Activity, rating int, feedback string) (string, tgbotapi.InlineKeyboardMarkup) {
	var b strings.Builder
	fmt.Fprintf(&b, "🌟 <b>New Rating Received!</b>\n\nActivity: %s\nDate: %s\nRating: %s (%d/5)\n",
		activity.Title, FormatDateShort(activity.StartDatetime), strings.Repeat("⭐", rating), rating)
	if feedback != "" {
		fmt.Fprintf(&b, "\n<b>Staff Feedback:</b>\n\"%s\"\n", feedback)
	}
	b.WriteString("\n💪 Keep up the great work!")

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 View My Stats", "my_stats"),
		),
	)
	return b.String(), keyboard
}

// CaregiverBookingConfirmation confirms a booking made on behalf of a
// care recipient.
func CaregiverBookingConfirmation(participantName string, activity *models.Activity) (string, tgbotapi.InlineKeyboardMarkup) {
	text := fmt.Sprintf(
		"✅ <b>Booking Confirmed for %s</b>\n\n📌 %s\n📅 %s\n📍 %s",
		participantName, activity.Title, FormatDatetime(activity.StartDatetime), orTBA(activity.Location))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 View All Bookings", "show_all_bookings"),
		),
	)
	return text, keyboard
}

// CaregiverParticipantReminder reminds a caregiver about a care
// recipient's activity tomorrow.
func CaregiverParticipantReminder(participantName string, activity *models.Activity) (string, tgbotapi.InlineKeyboardMarkup) {
	text := fmt.Sprintf(
		"🔔 <b>Reminder for %s</b>\n\nTomorrow:\n📌 %s\n📅 %s\n📍 %s",
		participantName, activity.Title, FormatDatetime(activity.StartDatetime), orTBA(activity.Location))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 View Schedule", "view_schedule_"+activity.ID),
		),
	)
	return text, keyboard
}

// NewActivityBroadcast announces a freshly published activity to all
// linked chats.
func NewActivityBroadcast(activity *models.Activity) (string, tgbotapi.InlineKeyboardMarkup) {
	var b strings.Builder
	fmt.Fprintf(&b, "📣 <b>New Event: %s</b>\n\n📅 %s\n📍 %s\n",
		activity.Title, FormatDatetime(activity.StartDatetime), orTBA(activity.Location))
	if activity.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", activity.Description)
	}
	b.WriteString("\nBook your spot now!")

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ View Details", "activity_"+activity.ID),
			tgbotapi.NewInlineKeyboardButtonData("📅 Book Now", "book_"+activity.ID),
		),
	)
	return b.String(), keyboard
}
