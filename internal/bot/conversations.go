package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"careconnect/internal/models"
	"careconnect/internal/session"
)

// Registration flow steps.
const (
	stepEmail    = "email"
	stepPassword = "password"
	stepCareName = "care_name"
	stepFeedback = "feedback"
	stepNotes    = "notes"
	stepLinkMail = "link_email"
	stepPhoto    = "photo"
	stepConfirm  = "confirm"
)

// handleFlowInput routes free-text input to whichever flow the chat is in.
func (b *Bot) handleFlowInput(ctx context.Context, message *tgbotapi.Message, sess *session.Session) {
	switch sess.Flow {
	case session.FlowRegistration:
		b.handleRegistrationInput(ctx, message, sess)
	case session.FlowRating:
		b.handleRatingFeedback(ctx, message, sess)
	case session.FlowCheckout:
		b.handleCheckoutNotes(ctx, message, sess)
	case session.FlowCaregiverLink:
		b.handleLinkEmail(ctx, message, sess)
	case session.FlowPosterUpload:
		b.sendText(message.Chat.ID, "Please send the event poster as a photo, or any command to cancel.")
	case session.FlowVolunteerJoin:
		b.sendText(message.Chat.ID, "Please use the buttons above to make your selections.")
	}
}

func validEmail(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

func (b *Bot) handleRegistrationInput(ctx context.Context, message *tgbotapi.Message, sess *session.Session) {
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)

	switch sess.Step {
	case stepEmail:
		if !validEmail(text) {
			b.sendText(chatID, "That doesn't look like an email address. Please try again:")
			return
		}
		sess.Registration.Email = text
		sess.Step = stepPassword
		b.sendText(chatID, "Great! Now choose a password (at least 8 characters):")

	case stepPassword:
		if len(text) < 8 {
			b.sendText(chatID, "Password must be at least 8 characters. Please try again:")
			return
		}
		sess.Registration.Password = text
		if sess.Registration.Role == models.RoleCaregiver {
			sess.Step = stepCareName
			b.sendText(chatID, "Who do you care for? Please enter their name:")
			return
		}
		b.completeRegistration(ctx, message, sess)

	case stepCareName:
		b.completeRegistration(ctx, message, sess)
		if sess.IsAuthenticated() {
			b.sendText(chatID, fmt.Sprintf(
				"Once %s has an account, link them via 👥 My Care Recipients so you can book on their behalf.", text))
		}
	}
}

// completeRegistration creates the backend account using the Telegram
// profile name and logs the chat in.
func (b *Bot) completeRegistration(ctx context.Context, message *tgbotapi.Message, sess *session.Session) {
	chatID := message.Chat.ID
	reg := sess.Registration

	firstName, lastName := "", ""
	if message.From != nil {
		firstName = message.From.FirstName
		lastName = message.From.LastName
	}

	result := b.client.RegisterWithTelegram(ctx,
		fmt.Sprintf("%d", chatID), reg.Email, reg.Password, firstName, lastName, reg.Role)

	role := reg.Role
	sess.Reset()

	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "Registration failed. Please try again later."
		}
		b.sendText(chatID, "❌ "+msg)
		return
	}

	sess.Login(result.User, result.Token)

	if role == models.RoleVolunteer {
		// Volunteers go straight into onboarding to build their profile
		b.sendText(chatID, fmt.Sprintf("🎉 Account created! Welcome, %s!", sess.DisplayName()))
		b.startVolunteerOnboarding(chatID, sess)
		return
	}

	b.sendWithKeyboard(chatID,
		fmt.Sprintf("🎉 Registration complete! Welcome, %s!", sess.DisplayName()),
		b.roleMenu(role))
}

func (b *Bot) handleRatingFeedback(ctx context.Context, message *tgbotapi.Message, sess *session.Session) {
	chatID := message.Chat.ID
	if sess.RatingBookingID == "" || sess.RatingStars == 0 {
		// Feedback text arrived before a star was picked
		sess.Reset()
		b.sendText(chatID, "⚠️ Rating session expired. Please try again.")
		return
	}
	result := b.client.SubmitBookingFeedback(ctx, sess.Token, sess.RatingBookingID, sess.RatingStars, message.Text)
	sess.Reset()
	if !result.Success {
		b.sendText(chatID, "Could not save your feedback right now. Please try again later.")
		return
	}
	b.sendText(chatID, "Thank you for your feedback! 💬")
}

func (b *Bot) handleCheckoutNotes(ctx context.Context, message *tgbotapi.Message, sess *session.Session) {
	chatID := message.Chat.ID
	if sess.CheckoutAssignmentID == "" {
		sess.Reset()
		b.sendText(chatID, "⚠️ Check-out session expired. Please try again from your assignments.")
		return
	}
	assignmentID := sess.CheckoutAssignmentID
	sess.Reset()
	b.finishCheckOut(ctx, chatID, sess, assignmentID, message.Text)
}

func (b *Bot) handleLinkEmail(ctx context.Context, message *tgbotapi.Message, sess *session.Session) {
	chatID := message.Chat.ID
	email := strings.TrimSpace(message.Text)
	if !validEmail(email) {
		b.sendText(chatID, "That doesn't look like an email address. Please enter the participant's email:")
		return
	}

	result := b.client.LinkParticipant(ctx, sess.Token, sess.CaregiverID(), email)
	sess.Reset()

	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "Could not link that participant."
		}
		b.sendText(chatID, "❌ "+msg)
		return
	}

	name := "the participant"
	if result.Participant != nil {
		name = result.Participant.DisplayName()
	}
	b.sendText(chatID, fmt.Sprintf("✅ %s is now linked to your account. You can book activities on their behalf.", name))
	b.showCareRecipients(ctx, chatID, sess)
}
