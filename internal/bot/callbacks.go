package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"careconnect/internal/models"
	"careconnect/internal/session"
)

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	if query.Message == nil {
		return
	}

	// Answer immediately to remove the loading state
	b.answerCallback(query.ID, "")

	ctx := context.Background()
	chatID := query.Message.Chat.ID
	sess := b.sessions.Get(chatID)
	data := query.Data

	b.recordInteraction(chatID, sess.Role(), "callback", data)
	b.routeCallback(ctx, query, sess, chatID, data)
}

// routeCallback dispatches on the callback payload. Exact matches come
// before prefix matches so payloads like checkout_skip_feedback are not
// swallowed by the checkout_ prefix.
func (b *Bot) routeCallback(ctx context.Context, query *tgbotapi.CallbackQuery, sess *session.Session, chatID int64, data string) {
	switch data {
	case "browse_events", "back_to_events":
		b.showBrowseEvents(ctx, chatID, sess)
		return
	case "show_my_bookings", "back_to_bookings":
		b.showMyBookings(ctx, chatID, sess)
		return
	case "back_to_recipients":
		b.showCareRecipients(ctx, chatID, sess)
		return
	case "show_all_bookings":
		b.showAllRecipientBookings(ctx, chatID, sess)
		return
	case "add_recipient":
		b.startAddRecipient(chatID, sess)
		return
	case "cancel_add_recipient":
		b.cancelAddRecipient(ctx, chatID, sess)
		return
	case "cancel_cg_join":
		b.cancelCaregiverJoin(ctx, chatID, sess)
		return
	case "back_to_opportunities":
		b.showOpportunities(ctx, chatID, sess)
		return
	case "interests_done":
		b.handleInterestsDone(chatID, sess)
		return
	case "skills_done":
		b.handleSkillsDone(chatID, sess)
		return
	case "complete_volunteer_reg":
		b.completeVolunteerOnboarding(ctx, chatID, sess)
		return
	case "rating_skip_feedback":
		b.skipRatingFeedback(ctx, chatID, sess)
		return
	case "checkout_skip_feedback":
		b.skipCheckoutNotes(ctx, chatID, sess)
		return
	case "view_leaderboard":
		b.showLeaderboard(ctx, chatID, sess)
		return
	case "my_stats":
		b.showVolunteerStats(ctx, chatID, sess)
		return
	case "confirm_post":
		b.handleConfirmPost(ctx, chatID, sess)
		return
	case "cancel_post":
		b.handleCancelPost(chatID, sess)
		return
	}

	switch {
	case strings.HasPrefix(data, "role_"):
		b.startRegistration(chatID, sess, strings.TrimPrefix(data, "role_"))

	case strings.HasPrefix(data, "booking_details_"):
		b.showBookingDetails(ctx, chatID, sess, strings.TrimPrefix(data, "booking_details_"))

	case strings.HasPrefix(data, "confirm_cancel_"):
		b.confirmCancelBooking(ctx, chatID, sess, strings.TrimPrefix(data, "confirm_cancel_"))

	case strings.HasPrefix(data, "do_cancel_"):
		b.cancelBooking(ctx, chatID, sess, strings.TrimPrefix(data, "do_cancel_"))

	case strings.HasPrefix(data, "cancel_booking_activity_"):
		// Reminder buttons carry the activity id, not the booking id
		booking := b.findBookingByActivity(ctx, sess, strings.TrimPrefix(data, "cancel_booking_activity_"))
		if booking == nil {
			b.sendText(chatID, "Could not find that booking. It may already be cancelled.")
			return
		}
		b.confirmCancelBooking(ctx, chatID, sess, booking.ID)

	case strings.HasPrefix(data, "accept_waitlist_"):
		b.acceptWaitlistOffer(ctx, chatID, sess, strings.TrimPrefix(data, "accept_waitlist_"))

	case strings.HasPrefix(data, "decline_waitlist_"):
		b.declineWaitlistOffer(ctx, chatID, sess, strings.TrimPrefix(data, "decline_waitlist_"))

	case strings.HasPrefix(data, "rate_booking_"):
		b.startRating(chatID, sess, strings.TrimPrefix(data, "rate_booking_"))

	case strings.HasPrefix(data, "rating_"):
		if stars, err := strconv.Atoi(strings.TrimPrefix(data, "rating_")); err == nil && stars >= 1 && stars <= 5 {
			b.handleRatingStars(ctx, chatID, sess, stars)
		}

	case strings.HasPrefix(data, "toggle_interest_"):
		b.handleToggleInterest(query, sess, strings.TrimPrefix(data, "toggle_interest_"))

	case strings.HasPrefix(data, "toggle_skill_"):
		b.handleToggleSkill(query, sess, strings.TrimPrefix(data, "toggle_skill_"))

	case strings.HasPrefix(data, "avail_"):
		parts := strings.SplitN(strings.TrimPrefix(data, "avail_"), "_", 2)
		if len(parts) == 2 {
			b.handleToggleAvailability(query, sess, parts[0], parts[1])
		}

	case strings.HasPrefix(data, "cg_join_"):
		if index, err := strconv.Atoi(strings.TrimPrefix(data, "cg_join_")); err == nil {
			b.handleCaregiverJoin(ctx, chatID, sess, index)
		}

	case strings.HasPrefix(data, "vol_activity_"):
		b.showOpportunityDetails(ctx, chatID, sess, strings.TrimPrefix(data, "vol_activity_"))

	case strings.HasPrefix(data, "vol_interested_"):
		b.expressInterest(chatID)

	case strings.HasPrefix(data, "accept_assign_"):
		b.respondToInvitation(ctx, chatID, sess, strings.TrimPrefix(data, "accept_assign_"), "accepted")

	case strings.HasPrefix(data, "decline_assign_"):
		b.respondToInvitation(ctx, chatID, sess, strings.TrimPrefix(data, "decline_assign_"), "declined")

	case strings.HasPrefix(data, "cancel_assignment_"):
		b.respondToInvitation(ctx, chatID, sess, strings.TrimPrefix(data, "cancel_assignment_"), "declined")

	case strings.HasPrefix(data, "assignment_details_"):
		b.showAssignmentDetails(ctx, chatID, sess, strings.TrimPrefix(data, "assignment_details_"))

	case strings.HasPrefix(data, "directions_"):
		b.showDirections(ctx, chatID, sess, strings.TrimPrefix(data, "directions_"))

	case strings.HasPrefix(data, "checkin_"):
		b.handleCheckIn(ctx, chatID, sess, strings.TrimPrefix(data, "checkin_"))

	case strings.HasPrefix(data, "checkout_"):
		b.startCheckout(chatID, sess, strings.TrimPrefix(data, "checkout_"))

	case strings.HasPrefix(data, "view_schedule_"):
		b.showRecipientSchedule(ctx, chatID, sess, strings.TrimPrefix(data, "view_schedule_"))

	case strings.HasPrefix(data, "register_for_"):
		b.handleJoin(ctx, chatID, sess, strings.TrimPrefix(data, "register_for_"))

	case strings.HasPrefix(data, "register_activity_"):
		b.handleJoin(ctx, chatID, sess, strings.TrimPrefix(data, "register_activity_"))

	case strings.HasPrefix(data, "book_"):
		b.handleJoin(ctx, chatID, sess, strings.TrimPrefix(data, "book_"))

	case strings.HasPrefix(data, "join_"):
		b.handleJoin(ctx, chatID, sess, strings.TrimPrefix(data, "join_"))

	case strings.HasPrefix(data, "activity_"):
		b.showActivityDetails(ctx, chatID, sess, strings.TrimPrefix(data, "activity_"))

	default:
		b.logger.Debug("Unhandled callback", zap.String("data", data))
	}
}

// startRegistration begins signup for the chosen role.
func (b *Bot) startRegistration(chatID int64, sess *session.Session, role string) {
	switch role {
	case models.RoleParticipant, models.RoleCaregiver, models.RoleVolunteer:
	default:
		return
	}
	sess.StartFlow(session.FlowRegistration, stepEmail)
	sess.Registration.Role = role
	b.sendText(chatID, fmt.Sprintf("Great choice! Let's set you up as a %s.\n\nWhat's your email address?", role))
}

// showAssignmentDetails renders one assignment's role and duties.
func (b *Bot) showAssignmentDetails(ctx context.Context, chatID int64, sess *session.Session, assignmentID string) {
	result := b.client.ListVolunteerAssignments(ctx, sess.Token, sess.VolunteerID())
	for _, a := range result.Assignments {
		if a.ID != assignmentID {
			continue
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "📋 %s\n\n", assignmentTitle(&a))
		if a.Activity != nil {
			fmt.Fprintf(&sb, "📅 %s\n📍 %s\n", assignmentDate(&a), orDash(a.Activity.Location))
		}
		role := a.Role
		if role == "" {
			role = "assistant"
		}
		fmt.Fprintf(&sb, "Role: %s\n", role)
		if a.Responsibilities != "" {
			fmt.Fprintf(&sb, "Responsibilities: %s\n", a.Responsibilities)
		}
		b.sendText(chatID, sb.String())
		return
	}
	b.sendText(chatID, "Could not find that assignment.")
}

func (b *Bot) showDirections(ctx context.Context, chatID int64, sess *session.Session, activityID string) {
	activity := b.client.GetActivity(ctx, sess.Token, activityID)
	if activity == nil || activity.Location == "" {
		b.sendText(chatID, "No location details available for that activity.")
		return
	}
	text := fmt.Sprintf("📍 %s", activity.Location)
	if activity.Room != "" {
		text += fmt.Sprintf("\n🚪 Room: %s", activity.Room)
	}
	b.sendText(chatID, text)
}
