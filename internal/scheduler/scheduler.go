// Package scheduler runs the bot's recurring notification jobs: daily
// activity and volunteer reminders, pre-start check-in nudges and the
// hourly waitlist expiry sweep.
package scheduler

import (
	"context"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"careconnect/internal/api"
	"careconnect/internal/models"
	"careconnect/internal/notify"
)

// Sender delivers a rendered notification to one chat. Implemented by
// the bot; stubbed in tests.
type Sender interface {
	SendNotification(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error
}

// Sweeper is the slice of the datastore the jobs read. Implemented by
// *api.Datastore.
type Sweeper interface {
	ActivitiesBetween(ctx context.Context, start, end time.Time) []models.Activity
	ConfirmedBookings(ctx context.Context, activityID string) []api.BookingContact
	ConfirmedAssignments(ctx context.Context, pendingCheckIn bool) []api.AssignmentContact
	ExpiredOffers(ctx context.Context, now time.Time) []api.ExpiredOffer
	MarkWaitlistExpired(ctx context.Context, entryID string) error
}

const jobTimeout = 5 * time.Minute

// Scheduler owns the cron instance and the job implementations.
type Scheduler struct {
	sweeper Sweeper
	sender  Sender
	cron    *cron.Cron
	logger  *zap.Logger
	now     func() time.Time
}

func New(sweeper Sweeper, sender Sender, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper: sweeper,
		sender:  sender,
		cron:    cron.New(),
		logger:  logger,
		now:     time.Now,
	}
}

// Start registers the four jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		run  func(context.Context)
	}{
		{"0 9 * * *", "activity_reminders", s.SendActivityReminders},
		{"0 9 * * *", "volunteer_reminders", s.SendVolunteerReminders},
		{"0,30 * * * *", "checkin_reminders", s.SendCheckInReminders},
		{"0 * * * *", "waitlist_expiry", s.ProcessExpiredWaitlist},
	}

	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			job.run(ctx)
		}); err != nil {
			return err
		}
		s.logger.Info("Scheduled job", zap.String("job", job.name), zap.String("spec", job.spec))
	}

	s.cron.Start()
	s.logger.Info("Notification scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Notification scheduler stopped")
}

// tomorrowWindow is midnight-to-midnight of the following day.
func tomorrowWindow(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return start, start.AddDate(0, 0, 1)
}

// startsWithin reports whether the activity's start falls in
// [now+30m, now+40m). The job runs every 30 minutes with a 10 minute
// overshoot so clock drift cannot skip an activity.
func startsWithin(startDatetime string, now time.Time) bool {
	start, err := time.Parse(time.RFC3339, startDatetime)
	if err != nil {
		return false
	}
	lo := now.Add(30 * time.Minute)
	hi := now.Add(40 * time.Minute)
	return !start.Before(lo) && start.Before(hi)
}

func parseChatID(telegramID string) (int64, bool) {
	if telegramID == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(telegramID, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SendActivityReminders notifies every confirmed booker of activities
// happening tomorrow.
func (s *Scheduler) SendActivityReminders(ctx context.Context) {
	s.logger.Info("Running activity reminders job")

	start, end := tomorrowWindow(s.now())
	for _, activity := range s.sweeper.ActivitiesBetween(ctx, start, end) {
		activity := activity
		for _, booking := range s.sweeper.ConfirmedBookings(ctx, activity.ID) {
			chatID, found := parseChatID(booking.Participant.User.TelegramID)
			if !found {
				continue
			}
			text, keyboard := notify.ActivityReminder(&activity)
			if err := s.sender.SendNotification(chatID, text, keyboard); err != nil {
				s.logger.Error("Failed to send activity reminder", zap.Error(err), zap.Int64("chat_id", chatID))
				continue
			}
			s.logger.Info("Sent activity reminder", zap.Int64("chat_id", chatID), zap.String("activity_id", activity.ID))
		}
	}
}

// SendVolunteerReminders notifies volunteers with confirmed assignments
// on activities happening tomorrow.
func (s *Scheduler) SendVolunteerReminders(ctx context.Context) {
	s.logger.Info("Running volunteer reminders job")

	start, end := tomorrowWindow(s.now())
	for _, contact := range s.sweeper.ConfirmedAssignments(ctx, false) {
		startDT, err := time.Parse(time.RFC3339, contact.Activity.StartDatetime)
		if err != nil || startDT.Before(start) || !startDT.Before(end) {
			continue
		}
		chatID, found := parseChatID(contact.Volunteer.User.TelegramID)
		if !found {
			continue
		}

		assignment := models.VolunteerAssignment{
			ID:               contact.ID,
			Role:             contact.Role,
			Responsibilities: contact.Responsibilities,
		}
		text, keyboard := notify.VolunteerReminder(&contact.Activity, &assignment)
		if err := s.sender.SendNotification(chatID, text, keyboard); err != nil {
			s.logger.Error("Failed to send volunteer reminder", zap.Error(err), zap.Int64("chat_id", chatID))
			continue
		}
		s.logger.Info("Sent volunteer reminder", zap.Int64("chat_id", chatID), zap.String("assignment_id", contact.ID))
	}
}

// SendCheckInReminders nudges volunteers who have not checked in for
// assignments starting in roughly 30 minutes.
func (s *Scheduler) SendCheckInReminders(ctx context.Context) {
	s.logger.Info("Running check-in reminders job")

	now := s.now()
	for _, contact := range s.sweeper.ConfirmedAssignments(ctx, true) {
		if !startsWithin(contact.Activity.StartDatetime, now) {
			continue
		}
		chatID, found := parseChatID(contact.Volunteer.User.TelegramID)
		if !found {
			continue
		}

		text, keyboard := notify.CheckInReminder(&contact.Activity, contact.ID)
		if err := s.sender.SendNotification(chatID, text, keyboard); err != nil {
			s.logger.Error("Failed to send check-in reminder", zap.Error(err), zap.Int64("chat_id", chatID))
			continue
		}
		s.logger.Info("Sent check-in reminder", zap.Int64("chat_id", chatID), zap.String("assignment_id", contact.ID))
	}
}

// ProcessExpiredWaitlist flips lapsed notified offers to expired. The
// backend promotes the next entry in line; the bot only closes the
// window.
func (s *Scheduler) ProcessExpiredWaitlist(ctx context.Context) {
	s.logger.Info("Processing expired waitlist offers")

	for _, entry := range s.sweeper.ExpiredOffers(ctx, s.now()) {
		if err := s.sweeper.MarkWaitlistExpired(ctx, entry.ID); err != nil {
			s.logger.Error("Failed to expire waitlist entry", zap.Error(err), zap.String("entry_id", entry.ID))
			continue
		}
		s.logger.Info("Marked waitlist entry as expired", zap.String("entry_id", entry.ID))
	}
}
