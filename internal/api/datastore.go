package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"careconnect/internal/models"
)

// Datastore reads the platform's data store over its REST interface using
// the service API key. The scheduler uses it for sweep queries that the
// backend API does not expose; everything else goes through Client.
type Datastore struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *zap.Logger
}

func NewDatastore(baseURL, apiKey string, logger *zap.Logger) *Datastore {
	return &Datastore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

// Select queries a table and decodes the row array into out (a pointer to
// a slice). Failures are logged and leave out untouched.
func (d *Datastore) Select(ctx context.Context, table string, query url.Values, out any) error {
	u := d.baseURL + "/rest/v1/" + table + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	d.authorize(req)

	resp, err := d.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("datastore query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("datastore query returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode datastore rows: %w", err)
	}
	return nil
}

// Patch updates rows matching the filter.
func (d *Datastore) Patch(ctx context.Context, table string, filter url.Values, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode patch body: %w", err)
	}

	u := d.baseURL + "/rest/v1/" + table + "?" + filter.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	d.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := d.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("datastore patch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("datastore patch returned status %d", resp.StatusCode)
	}
	return nil
}

func (d *Datastore) authorize(req *http.Request) {
	req.Header.Set("apikey", d.apiKey)
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
}

// BookingContact is a confirmed booking joined to the participant's
// Telegram chat id.
type BookingContact struct {
	ID          string `json:"id"`
	Participant struct {
		User struct {
			TelegramID string `json:"telegram_id"`
		} `json:"user"`
	} `json:"participant"`
}

// AssignmentContact is a confirmed volunteer assignment joined to the
// volunteer's Telegram chat id and the activity it belongs to.
type AssignmentContact struct {
	ID               string `json:"id"`
	Role             string `json:"role"`
	Responsibilities string `json:"responsibilities"`
	CheckInTime      string `json:"check_in_time"`
	Volunteer        struct {
		User struct {
			TelegramID string `json:"telegram_id"`
		} `json:"user"`
	} `json:"volunteer"`
	Activity models.Activity `json:"activity"`
}

// ExpiredOffer is a notified waitlist entry whose claim window has closed.
type ExpiredOffer struct {
	ID            string `json:"id"`
	ActivityID    string `json:"activity_id"`
	ParticipantID string `json:"participant_id"`
}

// ActivitiesBetween returns non-cancelled activities starting in
// [start, end).
func (d *Datastore) ActivitiesBetween(ctx context.Context, start, end time.Time) []models.Activity {
	query := url.Values{}
	query.Set("select", "id,title,description,start_datetime,end_datetime,location,room,requirements")
	query.Add("start_datetime", "gte."+start.Format(time.RFC3339))
	query.Add("start_datetime", "lt."+end.Format(time.RFC3339))
	query.Set("is_cancelled", "eq.false")

	var activities []models.Activity
	if err := d.Select(ctx, "activities", query, &activities); err != nil {
		d.logger.Error("Failed to load activities window", zap.Error(err))
		return nil
	}
	return activities
}

// ConfirmedBookings returns confirmed bookings for an activity with the
// booker's Telegram id.
func (d *Datastore) ConfirmedBookings(ctx context.Context, activityID string) []BookingContact {
	query := url.Values{}
	query.Set("select", "id,participant:participants(user:users(telegram_id))")
	query.Set("activity_id", "eq."+activityID)
	query.Set("status", "eq.confirmed")

	var bookings []BookingContact
	if err := d.Select(ctx, "bookings", query, &bookings); err != nil {
		d.logger.Error("Failed to load confirmed bookings", zap.Error(err), zap.String("activity_id", activityID))
		return nil
	}
	return bookings
}

// ConfirmedAssignments returns all confirmed volunteer assignments.
// pendingCheckIn restricts to assignments without a recorded check-in.
func (d *Datastore) ConfirmedAssignments(ctx context.Context, pendingCheckIn bool) []AssignmentContact {
	query := url.Values{}
	query.Set("select", "id,role,responsibilities,check_in_time,volunteer:volunteers(user:users(telegram_id)),activity:activities(id,title,start_datetime,location,room)")
	query.Set("status", "eq.confirmed")
	if pendingCheckIn {
		query.Set("check_in_time", "is.null")
	}

	var assignments []AssignmentContact
	if err := d.Select(ctx, "volunteer_assignments", query, &assignments); err != nil {
		d.logger.Error("Failed to load confirmed assignments", zap.Error(err))
		return nil
	}
	return assignments
}

// ExpiredOffers returns waitlist entries still in notified status whose
// expires_at is strictly before now.
func (d *Datastore) ExpiredOffers(ctx context.Context, now time.Time) []ExpiredOffer {
	query := url.Values{}
	query.Set("select", "id,activity_id,participant_id")
	query.Set("status", "eq.notified")
	query.Set("expires_at", "lt."+now.Format(time.RFC3339))

	var entries []ExpiredOffer
	if err := d.Select(ctx, "waitlist_entries", query, &entries); err != nil {
		d.logger.Error("Failed to load expired waitlist offers", zap.Error(err))
		return nil
	}
	return entries
}

// MarkWaitlistExpired flips a notified entry to expired. Promotion of the
// next entry in line is owned by the backend, not the bot.
func (d *Datastore) MarkWaitlistExpired(ctx context.Context, entryID string) error {
	filter := url.Values{}
	filter.Set("id", "eq."+entryID)
	filter.Set("status", "eq.notified")
	return d.Patch(ctx, "waitlist_entries", filter, map[string]any{"status": "expired"})
}

// BroadcastRecipients returns users with a linked Telegram chat,
// optionally restricted to one role.
func (d *Datastore) BroadcastRecipients(ctx context.Context, role string) []models.BroadcastRecipient {
	query := url.Values{}
	query.Set("select", "id,first_name,email,telegram_id,role")
	query.Set("telegram_id", "not.is.null")
	if role != "" {
		query.Set("role", "eq."+role)
	}

	var recipients []models.BroadcastRecipient
	if err := d.Select(ctx, "users", query, &recipients); err != nil {
		d.logger.Error("Failed to load broadcast recipients", zap.Error(err))
		return nil
	}
	return recipients
}
