package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"careconnect/internal/models"
	"careconnect/internal/notify"
	"careconnect/internal/session"
)

// Volunteer onboarding steps.
const (
	stepInterests    = "interests"
	stepSkills       = "skills"
	stepAvailability = "availability"
)

// availabilityOptions maps the onboarding buttons to the day-group and
// slot the backend expects.
var availabilityOptions = []struct {
	Label string
	Group string
	Slot  string
}{
	{"Weekday Mornings", "weekday", "morning"},
	{"Weekday Afternoons", "weekday", "afternoon"},
	{"Weekday Evenings", "weekday", "evening"},
	{"Weekend Mornings", "weekend", "morning"},
	{"Weekend Afternoons", "weekend", "afternoon"},
	{"Weekend Evenings", "weekend", "evening"},
}

// startVolunteerOnboarding walks a new volunteer through interests,
// skills and availability before creating their profile.
func (b *Bot) startVolunteerOnboarding(chatID int64, sess *session.Session) {
	sess.StartFlow(session.FlowVolunteerJoin, stepInterests)
	b.sendWithKeyboard(chatID,
		"Let's set up your volunteer profile! 🤝\n\nWhat kinds of activities interest you? Tap to select, then Done.",
		b.toggleKeyboard(volunteerInterests, sess.Interests, "toggle_interest_", "interests_done"))
}

// toggleKeyboard renders one button per option, marking selected ones.
func (b *Bot) toggleKeyboard(options, selected []string, prefix, doneData string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, opt := range options {
		mark := "⬜"
		if contains(selected, opt) {
			mark = "✅"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark+" "+opt, prefix+opt),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Done ➡️", doneData),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleToggleInterest(query *tgbotapi.CallbackQuery, sess *session.Session, value string) {
	if sess.Flow != session.FlowVolunteerJoin {
		return
	}
	sess.Interests = toggle(sess.Interests, value)
	b.editMessage(query.Message.Chat.ID, query.Message.MessageID,
		"What kinds of activities interest you? Tap to select, then Done.",
		b.toggleKeyboard(volunteerInterests, sess.Interests, "toggle_interest_", "interests_done"))
}

func (b *Bot) handleInterestsDone(chatID int64, sess *session.Session) {
	if sess.Flow != session.FlowVolunteerJoin {
		return
	}
	sess.Step = stepSkills
	b.sendWithKeyboard(chatID,
		"Any special skills you'd like to share? Tap to select, then Done.",
		b.toggleKeyboard(volunteerSkills, sess.Skills, "toggle_skill_", "skills_done"))
}

func (b *Bot) handleToggleSkill(query *tgbotapi.CallbackQuery, sess *session.Session, value string) {
	if sess.Flow != session.FlowVolunteerJoin {
		return
	}
	sess.Skills = toggle(sess.Skills, value)
	b.editMessage(query.Message.Chat.ID, query.Message.MessageID,
		"Any special skills you'd like to share? Tap to select, then Done.",
		b.toggleKeyboard(volunteerSkills, sess.Skills, "toggle_skill_", "skills_done"))
}

func (b *Bot) handleSkillsDone(chatID int64, sess *session.Session) {
	if sess.Flow != session.FlowVolunteerJoin {
		return
	}
	sess.Step = stepAvailability
	b.sendWithKeyboard(chatID,
		"When are you usually available? Tap to select, then finish.",
		b.availabilityKeyboard(sess))
}

func (b *Bot) availabilityKeyboard(sess *session.Session) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, opt := range availabilityOptions {
		mark := "⬜"
		if contains(sess.Availability[opt.Group], opt.Slot) {
			mark = "✅"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				mark+" "+opt.Label, fmt.Sprintf("avail_%s_%s", opt.Group, opt.Slot)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Finish", "complete_volunteer_reg"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleToggleAvailability(query *tgbotapi.CallbackQuery, sess *session.Session, group, slot string) {
	if sess.Flow != session.FlowVolunteerJoin {
		return
	}
	if sess.Availability == nil {
		sess.Availability = make(map[string][]string)
	}
	sess.Availability[group] = toggle(sess.Availability[group], slot)
	b.editMessage(query.Message.Chat.ID, query.Message.MessageID,
		"When are you usually available? Tap to select, then finish.",
		b.availabilityKeyboard(sess))
}

// completeVolunteerOnboarding creates the backend volunteer profile and
// folds the new profile id into the session user.
func (b *Bot) completeVolunteerOnboarding(ctx context.Context, chatID int64, sess *session.Session) {
	if sess.Flow != session.FlowVolunteerJoin || sess.User == nil {
		return
	}
	interests, skills, availability := sess.Interests, sess.Skills, sess.Availability
	sess.Reset()

	result := b.client.CreateVolunteerProfile(ctx, sess.Token, sess.User.ID, interests, skills, availability)
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "Could not create your volunteer profile. Please try again later."
		}
		b.sendText(chatID, "❌ "+msg)
		return
	}
	if result.Volunteer != nil {
		sess.User.VolunteerID = result.Volunteer.ID
	}

	b.sendWithKeyboard(chatID,
		"🎉 Your volunteer profile is ready!\n\nBrowse 🤝 Available Opportunities to get started.",
		volunteerMenu())
}

// showOpportunities lists activities that still need volunteers.
func (b *Bot) showOpportunities(ctx context.Context, chatID int64, sess *session.Session) {
	activities := b.client.ListVolunteerOpportunities(ctx, sess.Token, browseLimit)
	if activities == nil {
		b.sendText(chatID, "Could not load opportunities right now. Please try again later.")
		return
	}
	if len(activities) == 0 {
		b.sendText(chatID, "No open volunteer opportunities at the moment. Check back soon!")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, a := range activities {
		label := fmt.Sprintf("👉 %s (%s) - %d needed",
			a.Title, notify.FormatDateShort(a.StartDatetime), a.VolunteersNeeded())
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "vol_activity_"+a.ID),
		))
	}
	b.sendWithKeyboard(chatID, "🤝 Opportunities\n\nTap one for details:",
		tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) showOpportunityDetails(ctx context.Context, chatID int64, sess *session.Session, activityID string) {
	activity := b.client.GetActivity(ctx, sess.Token, activityID)
	if activity == nil {
		b.sendText(chatID, "Could not load that opportunity. Please try again later.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🤝 %s\n\n", activity.Title)
	if activity.Description != "" {
		sb.WriteString(activity.Description + "\n\n")
	}
	fmt.Fprintf(&sb, "📅 %s\n", notify.FormatDatetime(activity.StartDatetime))
	fmt.Fprintf(&sb, "📍 %s\n", orDash(activity.Location))
	fmt.Fprintf(&sb, "🙋 Volunteers needed: %d\n", activity.VolunteersNeeded())

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🙋 I'm interested!", "vol_interested_"+activity.ID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "back_to_opportunities"),
		),
	)
	b.sendWithKeyboard(chatID, sb.String(), keyboard)
}

// expressInterest acknowledges interest; the coordinator sends a formal
// invitation from the staff side.
func (b *Bot) expressInterest(chatID int64) {
	b.sendText(chatID, "Thanks for offering to help! 🙏\n\nThe activity coordinator will review and send you an invitation if you're selected. Watch 📋 My Assignments.")
}

// showAssignments groups assignments into invitations, upcoming and
// completed, with stage-appropriate buttons on each.
func (b *Bot) showAssignments(ctx context.Context, chatID int64, sess *session.Session) {
	if sess.VolunteerID() == "" {
		b.sendText(chatID, "Your volunteer profile isn't set up yet. Send /start to finish onboarding.")
		return
	}

	result := b.client.ListVolunteerAssignments(ctx, sess.Token, sess.VolunteerID())
	if result.Assignments == nil {
		b.sendText(chatID, "Could not load your assignments right now. Please try again later.")
		return
	}
	if len(result.Assignments) == 0 {
		b.sendText(chatID, "No assignments yet. Express interest in 🤝 Available Opportunities and coordinators will invite you.")
		return
	}

	now := time.Now()
	var sb strings.Builder
	var rows [][]tgbotapi.InlineKeyboardButton
	sb.WriteString("📋 My Assignments\n")

	if invited := result.Grouped["invited"]; len(invited) > 0 {
		sb.WriteString("\n📨 Invitations:\n")
		for _, a := range invited {
			title := assignmentTitle(&a)
			fmt.Fprintf(&sb, "• %s (%s)\n", title, assignmentDate(&a))
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ Accept "+title, "accept_assign_"+a.ID),
				tgbotapi.NewInlineKeyboardButtonData("❌ Decline", "decline_assign_"+a.ID),
			))
		}
	}

	if confirmed := result.Grouped["confirmed"]; len(confirmed) > 0 {
		sb.WriteString("\n✅ Confirmed:\n")
		for _, a := range confirmed {
			title := assignmentTitle(&a)
			fmt.Fprintf(&sb, "• %s (%s)\n", title, assignmentDate(&a))
			switch {
			case a.CheckInTime == "" && checkInOpen(&a, now):
				rows = append(rows, tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("📍 Check in: "+title, "checkin_"+a.ID),
				))
			case a.CheckInTime != "" && a.CheckOutTime == "":
				rows = append(rows, tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("🏁 Check out: "+title, "checkout_"+a.ID),
				))
			}
		}
	}

	if completed := result.Grouped["completed"]; len(completed) > 0 {
		sb.WriteString("\n🏁 Completed:\n")
		for _, a := range completed {
			fmt.Fprintf(&sb, "• %s (%s)\n", assignmentTitle(&a), assignmentDate(&a))
		}
	}

	if len(rows) == 0 {
		b.sendText(chatID, sb.String())
		return
	}
	b.sendWithKeyboard(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func assignmentTitle(a *models.VolunteerAssignment) string {
	if a.Activity != nil && a.Activity.Title != "" {
		return a.Activity.Title
	}
	return "an activity"
}

func assignmentDate(a *models.VolunteerAssignment) string {
	if a.Activity == nil {
		return "TBA"
	}
	return notify.FormatDateShort(a.Activity.StartDatetime)
}

// checkInOpen reports whether the check-in window has opened: 30 minutes
// before the activity starts.
func checkInOpen(a *models.VolunteerAssignment, now time.Time) bool {
	if a.Activity == nil {
		return false
	}
	start, err := time.Parse(time.RFC3339, a.Activity.StartDatetime)
	if err != nil {
		return false
	}
	return !now.Before(start.Add(-30 * time.Minute))
}

// respondToInvitation accepts or declines a pending invitation.
func (b *Bot) respondToInvitation(ctx context.Context, chatID int64, sess *session.Session, assignmentID, response string) {
	result := b.client.RespondToAssignment(ctx, sess.Token, assignmentID, response)
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "Could not record your response. Please try again later."
		}
		b.sendText(chatID, "❌ "+msg)
		return
	}
	if response == "accepted" {
		b.sendText(chatID, "🎉 You're confirmed! Thank you. Remember to check in when you arrive.")
	} else {
		b.sendText(chatID, "No problem, maybe next time. The coordinator has been notified.")
	}
}

func (b *Bot) handleCheckIn(ctx context.Context, chatID int64, sess *session.Session, assignmentID string) {
	result := b.client.CheckIn(ctx, sess.Token, assignmentID)
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "Check-in failed. Please find a staff member to check you in."
		}
		b.sendText(chatID, "❌ "+msg)
		return
	}
	title := result.ActivityTitle
	if title == "" {
		title = "your session"
	}
	b.sendText(chatID, fmt.Sprintf("📍 Checked in to %s. Have a great session!\n\nDon't forget to check out when you leave.", title))
}

// startCheckout begins the checkout flow: check out happens after the
// optional session notes, so hours are reported together with them.
func (b *Bot) startCheckout(chatID int64, sess *session.Session, assignmentID string) {
	sess.StartFlow(session.FlowCheckout, stepNotes)
	sess.CheckoutAssignmentID = assignmentID

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Skip", "checkout_skip_feedback"),
		),
	)
	b.sendWithKeyboard(chatID, "How did the session go? Type any notes for the coordinator, or skip.", keyboard)
}

func (b *Bot) skipCheckoutNotes(ctx context.Context, chatID int64, sess *session.Session) {
	if sess.Flow != session.FlowCheckout || sess.CheckoutAssignmentID == "" {
		return
	}
	assignmentID := sess.CheckoutAssignmentID
	sess.Reset()
	b.finishCheckOut(ctx, chatID, sess, assignmentID, "")
}

func (b *Bot) finishCheckOut(ctx context.Context, chatID int64, sess *session.Session, assignmentID, notes string) {
	result := b.client.CheckOut(ctx, sess.Token, assignmentID, notes)
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "Check-out failed. Please find a staff member."
		}
		b.sendText(chatID, "❌ "+msg)
		return
	}
	b.sendText(chatID, fmt.Sprintf(
		"🏁 Checked out. Thank you for volunteering!\n\nSession hours: %.2f\nTotal hours: %.2f",
		result.HoursContributed, result.TotalHours))
}

// showVolunteerStats renders the contribution record with a leaderboard
// shortcut.
func (b *Bot) showVolunteerStats(ctx context.Context, chatID int64, sess *session.Session) {
	if sess.VolunteerID() == "" {
		b.sendText(chatID, "Your volunteer profile isn't set up yet. Send /start to finish onboarding.")
		return
	}

	stats := b.client.VolunteerStats(ctx, sess.Token, sess.VolunteerID())
	if stats == nil {
		b.sendText(chatID, "Could not load your stats right now. Please try again later.")
		return
	}

	var sb strings.Builder
	sb.WriteString("⏱ Hours & Stats\n\n")
	fmt.Fprintf(&sb, "This month: %d sessions, %.1f hours\n", stats.ThisMonth.Sessions, stats.ThisMonth.TotalHours)
	fmt.Fprintf(&sb, "All time: %d sessions, %.1f hours\n", stats.Volunteer.TotalSessions, stats.Volunteer.TotalHours)
	if stats.Volunteer.Rating > 0 {
		fmt.Fprintf(&sb, "Rating: %.1f ⭐\n", stats.Volunteer.Rating)
	}
	if stats.LeaderboardPosition > 0 {
		fmt.Fprintf(&sb, "Leaderboard: #%d\n", stats.LeaderboardPosition)
	}
	if len(stats.Achievements) > 0 {
		sb.WriteString("\n🏅 Achievements:\n")
		for _, a := range stats.Achievements {
			fmt.Fprintf(&sb, "• %s\n", a.Name)
		}
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏆 Leaderboard", "view_leaderboard"),
		),
	)
	b.sendWithKeyboard(chatID, sb.String(), keyboard)
}

func (b *Bot) showLeaderboard(ctx context.Context, chatID int64, sess *session.Session) {
	entries := b.client.Leaderboard(ctx, sess.Token, 10)
	if len(entries) == 0 {
		b.sendText(chatID, "The leaderboard is empty right now. Be the first on it!")
		return
	}

	medals := []string{"🥇", "🥈", "🥉"}
	var sb strings.Builder
	sb.WriteString("🏆 Volunteer Leaderboard\n\n")
	for i, e := range entries {
		prefix := fmt.Sprintf("%d.", e.Rank)
		if e.Rank == 0 {
			prefix = fmt.Sprintf("%d.", i+1)
		}
		if i < len(medals) {
			prefix = medals[i]
		}
		name := "Anonymous"
		if e.User != nil {
			name = e.User.DisplayName()
		}
		fmt.Fprintf(&sb, "%s %s - %.1f hrs", prefix, name, e.TotalHours)
		if e.ID == sess.VolunteerID() {
			sb.WriteString(" ⬅️ YOU!")
		}
		sb.WriteString("\n")
	}
	b.sendText(chatID, sb.String())
}
