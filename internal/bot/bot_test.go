package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"careconnect/internal/api"
	"careconnect/internal/models"
	"careconnect/internal/session"
	"careconnect/internal/storage/stubs"
)

// Note: we can't easily mock tgbotapi.BotAPI, so tests exercise handler
// logic with api=nil (sends become no-ops) against an httptest backend.

func newTestBot(t *testing.T, handler http.HandlerFunc) (*Bot, *stubs.MockLog) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	events := stubs.NewMockLog()
	return &Bot{
		api:       nil,
		client:    api.NewClient(srv.URL, srv.URL, "test-key", logger),
		datastore: api.NewDatastore(srv.URL, "test-key", logger),
		events:    events,
		sessions:  session.NewStore(logger),
		adminID:   999,
		logger:    logger,
	}, events
}

func textMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: chatID, FirstName: "Mary", LastName: "Tan"},
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
	}
}

func commandMessage(chatID int64, command string) *tgbotapi.Message {
	msg := textMessage(chatID, "/"+command)
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command) + 1}}
	return msg
}

func writeEnvelope(w http.ResponseWriter, data any) {
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func TestStartLogsKnownUserIn(t *testing.T) {
	bot, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/telegram", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "login", body["action"])
		require.Equal(t, "123", body["telegram_id"])
		writeEnvelope(w, map[string]any{
			"found": true,
			"user":  map[string]any{"id": "u-1", "first_name": "Mary", "role": "participant", "participant_id": "p-1"},
			"token": "tok-1",
		})
	})

	sess := bot.sessions.Get(123)
	bot.handleStart(context.Background(), commandMessage(123, "start"), sess)

	require.True(t, sess.IsAuthenticated())
	require.Equal(t, "participant", sess.Role())
	require.Equal(t, "p-1", sess.ParticipantID())
	require.Equal(t, "tok-1", sess.Token)
}

func TestStartUnknownUserStaysLoggedOut(t *testing.T) {
	bot, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, map[string]any{"found": false})
	})

	sess := bot.sessions.Get(123)
	bot.handleStart(context.Background(), commandMessage(123, "start"), sess)

	require.False(t, sess.IsAuthenticated())
	require.False(t, sess.InFlow())
}

func TestRegistrationFlow(t *testing.T) {
	var registered map[string]string
	bot, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["action"] == "register" {
			registered = body
			writeEnvelope(w, map[string]any{
				"user":  map[string]any{"id": "u-2", "first_name": "Mary", "role": "participant", "participant_id": "p-2"},
				"token": "tok-2",
			})
			return
		}
		writeEnvelope(w, map[string]any{"found": false})
	})

	ctx := context.Background()
	sess := bot.sessions.Get(123)
	bot.startRegistration(123, sess, "participant")
	require.Equal(t, session.FlowRegistration, sess.Flow)
	require.Equal(t, stepEmail, sess.Step)

	// Invalid email keeps the step
	bot.handleFlowInput(ctx, textMessage(123, "not-an-email"), sess)
	require.Equal(t, stepEmail, sess.Step)

	bot.handleFlowInput(ctx, textMessage(123, "mary@example.com"), sess)
	require.Equal(t, stepPassword, sess.Step)

	// Short password keeps the step
	bot.handleFlowInput(ctx, textMessage(123, "short"), sess)
	require.Equal(t, stepPassword, sess.Step)

	bot.handleFlowInput(ctx, textMessage(123, "longenough"), sess)

	require.True(t, sess.IsAuthenticated())
	require.False(t, sess.InFlow())
	require.NotNil(t, registered)
	require.Equal(t, "mary@example.com", registered["email"])
	require.Equal(t, "Mary", registered["first_name"])
	require.Equal(t, "Tan", registered["last_name"])
	require.Equal(t, "participant", registered["role"])
	require.Equal(t, "123", registered["telegram_id"])
}

func TestCaregiverRegistrationAsksCareName(t *testing.T) {
	bot, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["action"] == "register" {
			writeEnvelope(w, map[string]any{
				"user":  map[string]any{"id": "u-3", "role": "caregiver", "caregiver_id": "c-1"},
				"token": "tok-3",
			})
			return
		}
		writeEnvelope(w, map[string]any{"found": false})
	})

	ctx := context.Background()
	sess := bot.sessions.Get(123)
	bot.startRegistration(123, sess, "caregiver")
	bot.handleFlowInput(ctx, textMessage(123, "carer@example.com"), sess)
	bot.handleFlowInput(ctx, textMessage(123, "password123"), sess)

	// Caregivers get one extra step before the account is created
	require.Equal(t, stepCareName, sess.Step)
	require.False(t, sess.IsAuthenticated())

	bot.handleFlowInput(ctx, textMessage(123, "Ah Ma"), sess)
	require.True(t, sess.IsAuthenticated())
	require.Equal(t, "c-1", sess.CaregiverID())
}

func TestCommandInterruptsFlow(t *testing.T) {
	bot, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, map[string]any{"found": false})
	})

	sess := bot.sessions.Get(123)
	bot.startRegistration(123, sess, "participant")
	require.True(t, sess.InFlow())

	bot.handleMessage(commandMessage(123, "help"))
	require.False(t, sess.InFlow())
}

func TestRatingFlowSubmitsFeedback(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	bot, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		writeEnvelope(w, map[string]any{})
	})

	ctx := context.Background()
	sess := bot.sessions.Get(123)
	sess.Login(nil, "tok")

	bot.startRating(123, sess, "bk-1")
	require.Equal(t, session.FlowRating, sess.Flow)

	bot.routeCallback(ctx, &tgbotapi.CallbackQuery{
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 123}},
	}, sess, 123, "rating_4")
	require.Equal(t, 4, sess.RatingStars)

	bot.handleFlowInput(ctx, textMessage(123, "Lovely session"), sess)

	require.Equal(t, "/bookings/bk-1/feedback", gotPath)
	require.EqualValues(t, 4, gotBody["rating"])
	require.Equal(t, "Lovely session", gotBody["feedback_text"])
	require.False(t, sess.InFlow())
}

func TestRatingFeedbackBeforeStarsEndsFlow(t *testing.T) {
	var called bool
	bot, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		writeEnvelope(w, map[string]any{})
	})

	ctx := context.Background()
	sess := bot.sessions.Get(123)
	sess.Login(nil, "tok")

	bot.startRating(123, sess, "bk-1")
	require.Equal(t, session.FlowRating, sess.Flow)

	// Typing feedback before picking a star must not submit anything
	bot.handleFlowInput(ctx, textMessage(123, "it was fine"), sess)

	require.False(t, called)
	require.False(t, sess.InFlow())
	require.Empty(t, sess.RatingBookingID)
}

func TestCheckoutNotesWithoutAssignmentEndsFlow(t *testing.T) {
	var called bool
	bot, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		writeEnvelope(w, map[string]any{})
	})

	ctx := context.Background()
	sess := bot.sessions.Get(123)
	sess.Login(nil, "tok")
	sess.StartFlow(session.FlowCheckout, stepNotes)

	bot.handleFlowInput(ctx, textMessage(123, "all good"), sess)

	require.False(t, called)
	require.False(t, sess.InFlow())
}

func TestCheckoutSkipNotSwallowedByPrefix(t *testing.T) {
	var gotPath string
	bot, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		writeEnvelope(w, map[string]any{"hours_contributed": 2.5, "total_hours": 10.0})
	})

	ctx := context.Background()
	sess := bot.sessions.Get(123)
	sess.Login(nil, "tok")
	sess.StartFlow(session.FlowCheckout, stepNotes)
	sess.CheckoutAssignmentID = "as-1"

	bot.routeCallback(ctx, &tgbotapi.CallbackQuery{
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 123}},
	}, sess, 123, "checkout_skip_feedback")

	require.Equal(t, "/volunteers/assignments/as-1/check-out", gotPath)
	require.False(t, sess.InFlow())
}

func TestCaregiverJoinUsesPickedRecipient(t *testing.T) {
	var bookedParticipant string
	bot, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/caregivers/c-1/participants":
			writeEnvelope(w, map[string]any{"participants": []map[string]any{
				{"id": "p-10", "user": map[string]any{"first_name": "Ah", "last_name": "Ma"}},
				{"id": "p-11", "user": map[string]any{"first_name": "Ah", "last_name": "Gong"}},
			}})
		case r.URL.Path == "/bookings":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			bookedParticipant = body["participant_id"]
			writeEnvelope(w, map[string]any{"status": "confirmed"})
		default:
			writeEnvelope(w, map[string]any{"id": "act-1", "title": "Tai Chi"})
		}
	})

	ctx := context.Background()
	sess := bot.sessions.Get(123)
	sess.Login(userWithRole("caregiver", "c-1"), "tok")

	bot.showRecipientPicker(ctx, 123, sess, "act-1")
	require.Equal(t, []string{"p-10", "p-11"}, sess.PendingJoinIDs)
	require.Equal(t, "act-1", sess.PendingJoinActivityID)

	bot.handleCaregiverJoin(ctx, 123, sess, 1)
	require.Equal(t, "p-11", bookedParticipant)
	require.Empty(t, sess.PendingJoinIDs)
}

func TestVolunteerOnboardingTogglesAndCompletes(t *testing.T) {
	var profile map[string]any
	bot, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/volunteers" {
			json.NewDecoder(r.Body).Decode(&profile)
			writeEnvelope(w, map[string]any{"id": "v-1"})
			return
		}
		writeEnvelope(w, map[string]any{})
	})

	ctx := context.Background()
	sess := bot.sessions.Get(123)
	sess.Login(userWithRole("volunteer", ""), "tok")

	bot.startVolunteerOnboarding(123, sess)
	require.Equal(t, session.FlowVolunteerJoin, sess.Flow)

	query := &tgbotapi.CallbackQuery{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 123}}}
	bot.routeCallback(ctx, query, sess, 123, "toggle_interest_Music")
	bot.routeCallback(ctx, query, sess, 123, "toggle_interest_Games")
	bot.routeCallback(ctx, query, sess, 123, "toggle_interest_Games") // toggled off again
	require.Equal(t, []string{"Music"}, sess.Interests)

	bot.routeCallback(ctx, query, sess, 123, "interests_done")
	bot.routeCallback(ctx, query, sess, 123, "toggle_skill_First Aid")
	bot.routeCallback(ctx, query, sess, 123, "skills_done")
	bot.routeCallback(ctx, query, sess, 123, "avail_weekday_morning")
	bot.routeCallback(ctx, query, sess, 123, "avail_weekend_afternoon")
	require.Equal(t, []string{"morning"}, sess.Availability["weekday"])

	bot.routeCallback(ctx, query, sess, 123, "complete_volunteer_reg")

	require.False(t, sess.InFlow())
	require.Equal(t, "v-1", sess.VolunteerID())
	require.NotNil(t, profile)
	require.Equal(t, []any{"Music"}, profile["interests"])
	require.Equal(t, []any{"First Aid"}, profile["skills"])
}

func TestBookingConflictSurfacesAlternatives(t *testing.T) {
	bot, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bookings" {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error": map[string]any{
					"code":    "BOOKING_CONFLICT",
					"message": "Schedule conflict",
					"details": map[string]any{
						"conflicting_activity": map[string]any{"id": "act-9", "title": "Bingo"},
						"alternatives":         []map[string]any{{"id": "act-10", "title": "Karaoke"}},
					},
				},
			})
			return
		}
		writeEnvelope(w, map[string]any{"id": "act-1", "title": "Tai Chi"})
	})

	ctx := context.Background()
	sess := bot.sessions.Get(123)
	sess.Login(userWithRole("participant", ""), "tok")
	sess.User.ParticipantID = "p-1"

	// Must not panic and must leave the session clean
	bot.bookActivity(ctx, 123, sess, "act-1", "p-1", "")
	require.False(t, sess.InFlow())
}

func TestCheckInWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	a := assignmentAt(now.Add(20 * time.Minute))
	assert.True(t, checkInOpen(a, now), "inside the 30 minute window")

	a = assignmentAt(now.Add(45 * time.Minute))
	assert.False(t, checkInOpen(a, now), "too early")

	a = assignmentAt(now.Add(-1 * time.Hour))
	assert.True(t, checkInOpen(a, now), "already started")
}

func TestParseDraftDatetime(t *testing.T) {
	now := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

	got := parseDraftDatetime("2025-07-01 14:30", now)
	require.Equal(t, time.Date(2025, 7, 1, 14, 30, 0, 0, time.UTC), got)

	got = parseDraftDatetime("2 July 2025 3:00PM", now)
	require.Equal(t, time.Date(2025, 7, 2, 15, 0, 0, 0, time.UTC), got)

	// Unparseable text falls back to tomorrow 9am
	got = parseDraftDatetime("see poster for details", now)
	require.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), got)
}

func TestRecordInteraction(t *testing.T) {
	bot, events := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, map[string]any{"found": false})
	})

	bot.handleMessage(commandMessage(123, "start"))

	assert.Eventually(t, func() bool {
		for _, i := range events.Interactions() {
			if i.Kind == "command" && i.Label == "start" && i.TelegramID == 123 {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestMenuRequiresLogin(t *testing.T) {
	bot, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, map[string]any{})
	})

	// Must not panic for an anonymous chat
	bot.handleMessage(textMessage(123, menuBrowseEvents))
	require.False(t, bot.sessions.Get(123).IsAuthenticated())
}

func userWithRole(role, caregiverID string) *models.User {
	return &models.User{ID: "u-1", FirstName: "Mary", Role: role, CaregiverID: caregiverID}
}

func assignmentAt(start time.Time) *models.VolunteerAssignment {
	return &models.VolunteerAssignment{
		ID:       "as-1",
		Activity: &models.Activity{ID: "act-1", StartDatetime: start.Format(time.RFC3339)},
	}
}

func TestToggle(t *testing.T) {
	values := toggle(nil, "a")
	values = toggle(values, "b")
	require.Equal(t, []string{"a", "b"}, values)
	values = toggle(values, "a")
	require.Equal(t, []string{"b"}, values)
}
