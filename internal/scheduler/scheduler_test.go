package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"careconnect/internal/api"
	"careconnect/internal/models"
)

type fakeSweeper struct {
	activities  []models.Activity
	bookings    map[string][]api.BookingContact
	assignments []api.AssignmentContact
	expired     []api.ExpiredOffer

	expiredIDs []string
	failExpire map[string]bool
}

func (f *fakeSweeper) ActivitiesBetween(ctx context.Context, start, end time.Time) []models.Activity {
	return f.activities
}

func (f *fakeSweeper) ConfirmedBookings(ctx context.Context, activityID string) []api.BookingContact {
	return f.bookings[activityID]
}

func (f *fakeSweeper) ConfirmedAssignments(ctx context.Context, pendingCheckIn bool) []api.AssignmentContact {
	if !pendingCheckIn {
		return f.assignments
	}
	var pending []api.AssignmentContact
	for _, a := range f.assignments {
		if a.CheckInTime == "" {
			pending = append(pending, a)
		}
	}
	return pending
}

func (f *fakeSweeper) ExpiredOffers(ctx context.Context, now time.Time) []api.ExpiredOffer {
	return f.expired
}

func (f *fakeSweeper) MarkWaitlistExpired(ctx context.Context, entryID string) error {
	if f.failExpire[entryID] {
		return errors.New("datastore unavailable")
	}
	f.expiredIDs = append(f.expiredIDs, entryID)
	return nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent []sentMessage
}

func (f *fakeSender) SendNotification(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func newTestScheduler(sweeper *fakeSweeper, sender *fakeSender, now time.Time) *Scheduler {
	s := New(sweeper, sender, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func contact(telegramID, activityStart, checkIn string) api.AssignmentContact {
	c := api.AssignmentContact{
		ID:          "as-" + telegramID,
		Role:        "assistant",
		CheckInTime: checkIn,
		Activity: models.Activity{
			ID:            "a1",
			Title:         "Bingo",
			StartDatetime: activityStart,
		},
	}
	c.Volunteer.User.TelegramID = telegramID
	return c
}

func TestSendActivityReminders(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	sweeper := &fakeSweeper{
		activities: []models.Activity{{ID: "a1", Title: "Bingo", StartDatetime: "2025-06-02T10:00:00Z"}},
		bookings: map[string][]api.BookingContact{
			"a1": makeBookings("100", "", "not-a-number"),
		},
	}
	sender := &fakeSender{}

	newTestScheduler(sweeper, sender, now).SendActivityReminders(context.Background())

	// Bookers without a usable Telegram id are skipped silently.
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(100), sender.sent[0].chatID)
	assert.Contains(t, sender.sent[0].text, "Reminder Tomorrow!")
	assert.Contains(t, sender.sent[0].text, "Bingo")
}

func makeBookings(telegramIDs ...string) []api.BookingContact {
	bookings := make([]api.BookingContact, len(telegramIDs))
	for i, id := range telegramIDs {
		bookings[i].ID = "b" + id
		bookings[i].Participant.User.TelegramID = id
	}
	return bookings
}

func TestSendVolunteerRemindersFiltersToTomorrow(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	sweeper := &fakeSweeper{
		assignments: []api.AssignmentContact{
			contact("200", "2025-06-02T10:00:00Z", ""), // tomorrow
			contact("201", "2025-06-03T10:00:00Z", ""), // day after
			contact("202", "2025-06-01T18:00:00Z", ""), // today
		},
	}
	sender := &fakeSender{}

	newTestScheduler(sweeper, sender, now).SendVolunteerReminders(context.Background())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(200), sender.sent[0].chatID)
	assert.Contains(t, sender.sent[0].text, "Assignment Tomorrow!")
}

func TestSendCheckInRemindersWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	sweeper := &fakeSweeper{
		assignments: []api.AssignmentContact{
			contact("300", "2025-06-01T09:30:00Z", ""),         // exactly 30 min: included
			contact("301", "2025-06-01T09:35:00Z", ""),         // in window
			contact("302", "2025-06-01T09:40:00Z", ""),         // 40 min: excluded
			contact("303", "2025-06-01T09:20:00Z", ""),         // too soon
			contact("304", "2025-06-01T09:35:00Z", "09:05:00"), // already checked in
		},
	}
	sender := &fakeSender{}

	newTestScheduler(sweeper, sender, now).SendCheckInReminders(context.Background())

	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(300), sender.sent[0].chatID)
	assert.Equal(t, int64(301), sender.sent[1].chatID)
	assert.Contains(t, sender.sent[0].text, "in 30 min!")
}

func TestProcessExpiredWaitlistContinuesPastFailures(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	sweeper := &fakeSweeper{
		expired: []api.ExpiredOffer{
			{ID: "w1"}, {ID: "w2"}, {ID: "w3"},
		},
		failExpire: map[string]bool{"w2": true},
	}
	sender := &fakeSender{}

	newTestScheduler(sweeper, sender, now).ProcessExpiredWaitlist(context.Background())

	// One failed patch does not stop the sweep, and no user-facing
	// message is sent for expiries.
	assert.Equal(t, []string{"w1", "w3"}, sweeper.expiredIDs)
	assert.Empty(t, sender.sent)
}

func TestTomorrowWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 23, 45, 0, 0, time.UTC)
	start, end := tomorrowWindow(now)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), end)
}
