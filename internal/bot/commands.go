package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"careconnect/internal/models"
	"careconnect/internal/session"
)

func (b *Bot) isAdmin(chatID int64) bool {
	return chatID == b.adminID
}

func titleRole(role string) string {
	if role == "" {
		return "Unknown"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

// roleMenu returns the persistent menu for a backend role.
func (b *Bot) roleMenu(role string) tgbotapi.ReplyKeyboardMarkup {
	switch role {
	case models.RoleCaregiver:
		return caregiverMenu()
	case models.RoleVolunteer:
		return volunteerMenu()
	case models.RoleAdmin:
		return adminMenu()
	default:
		return participantMenu()
	}
}

// handleStart logs a known Telegram account in, or offers registration
// to a new one. The admin chat bypasses registration entirely.
func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message, sess *session.Session) {
	chatID := message.Chat.ID

	if b.isAdmin(chatID) {
		// The admin may also hold a backend account for authenticated
		// calls, but the admin menu does not depend on one.
		result := b.client.LoginWithTelegram(ctx, strconv.FormatInt(chatID, 10))
		if result.Found {
			sess.Login(result.User, result.Token)
		}
		b.sendWithKeyboard(chatID, "Welcome, Admin! 🔑\n\nUpload an event poster to publish a new activity, or view platform stats.", adminMenu())
		return
	}

	result := b.client.LoginWithTelegram(ctx, strconv.FormatInt(chatID, 10))
	if result.Found {
		sess.Login(result.User, result.Token)
		b.sendWithKeyboard(chatID, fmt.Sprintf("Welcome back, %s! 👋", sess.DisplayName()), b.roleMenu(sess.Role()))
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🙋 I'm a Participant", "role_participant"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 I'm a Caregiver", "role_caregiver"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🤝 I want to Volunteer", "role_volunteer"),
		),
	)
	b.sendWithKeyboard(chatID,
		"Welcome to CareConnect Hub! 🌟\n\n"+
			"I help you discover activities, manage bookings and coordinate volunteering.\n\n"+
			"How would you like to join?",
		keyboard)
}

func (b *Bot) handleHelp(chatID int64, sess *session.Session) {
	var text string
	switch sess.Role() {
	case models.RoleCaregiver:
		text = `Here's what I can do for you:

👥 My Care Recipients - see everyone in your care
🎯 Browse Events - find activities and book on their behalf
📅 All Bookings - upcoming bookings across your recipients
👤 Profile - your account details

You'll also get reminders before your recipients' activities.`
	case models.RoleVolunteer:
		text = `Here's what I can do for you:

🤝 Available Opportunities - activities that need volunteers
📋 My Assignments - invitations and confirmed sessions
⏱ Hours & Stats - your contribution record and the leaderboard

Remember to check in when you arrive and check out when you leave, so your hours are counted.`
	case models.RoleAdmin:
		text = `Admin tools:

📸 Upload Poster - send an event poster photo and I'll extract the details, create the activity and announce it to everyone
📊 View Stats - platform dashboard`
	default:
		text = `Here's what I can do for you:

🎯 Browse Events - upcoming activities with open spots
📅 My Bookings - manage your reservations and rate past activities
⏳ Waitlist - your place in line for full activities
👤 My Profile - your account details

Full activities offer a waitlist spot; I'll message you when a place opens up.`
	}
	b.sendText(chatID, text)
}

// showProfile prints the account snapshot for the logged-in user.
func (b *Bot) showProfile(chatID int64, sess *session.Session) {
	if sess.User == nil {
		b.sendText(chatID, "Please send /start to log in first.")
		return
	}

	var sb strings.Builder
	sb.WriteString("👤 Your Profile\n\n")
	fmt.Fprintf(&sb, "Name: %s\n", sess.DisplayName())
	fmt.Fprintf(&sb, "Email: %s\n", sess.User.Email)
	fmt.Fprintf(&sb, "Role: %s\n", titleRole(sess.Role()))
	b.sendText(chatID, sb.String())
}

// showAdminStats renders the backend dashboard plus local bot usage.
func (b *Bot) showAdminStats(ctx context.Context, chatID int64, sess *session.Session) {
	if !b.isAdmin(chatID) {
		return
	}

	stats := b.client.DashboardStats(ctx, sess.Token)
	if stats == nil {
		b.sendText(chatID, "Could not load dashboard stats right now. Please try again later.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 Platform Stats\n\n")
	fmt.Fprintf(&sb, "Total registrations: %d\n", stats.TotalRegistrations)
	fmt.Fprintf(&sb, "Unique participants: %d\n", stats.UniqueParticipants)
	fmt.Fprintf(&sb, "Active volunteers: %d\n", stats.ActiveVolunteers)
	fmt.Fprintf(&sb, "Activities: %d\n", stats.TotalActivities)
	fmt.Fprintf(&sb, "Average satisfaction: %.1f ⭐\n", stats.AverageSatisfaction)

	if b.events != nil {
		since := time.Now().AddDate(0, 0, -7)
		if counts, err := b.events.CountByKind(ctx, since); err == nil {
			sb.WriteString("\n🤖 Bot usage (7 days)\n")
			for _, kind := range []string{"command", "menu", "callback", "flow"} {
				if n, ok := counts[kind]; ok {
					fmt.Fprintf(&sb, "%s: %d\n", kind, n)
				}
			}
			if active, err := b.events.ActiveChats(ctx, since); err == nil {
				fmt.Fprintf(&sb, "active chats: %d\n", active)
			}
		}
	}

	b.sendText(chatID, sb.String())
}
