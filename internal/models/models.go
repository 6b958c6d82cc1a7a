package models

import "time"

// Role values returned by the backend.
const (
	RoleParticipant = "participant"
	RoleCaregiver   = "caregiver"
	RoleVolunteer   = "volunteer"
	RoleAdmin       = "admin"
)

// User is a denormalized snapshot of a backend user record. The bot never
// mutates it locally except to fold in ids returned by profile creation.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Role          string `json:"role"`
	TelegramID    string `json:"telegram_id,omitempty"`
	ParticipantID string `json:"participant_id,omitempty"`
	CaregiverID   string `json:"caregiver_id,omitempty"`
	VolunteerID   string `json:"volunteer_id,omitempty"`
}

// DisplayName returns "First Last" or "User" when both are empty.
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return "User"
	}
	return name
}

// Activity is a schedulable event with capacity, location and time bounds.
type Activity struct {
	ID                    string   `json:"id"`
	Title                 string   `json:"title"`
	Description           string   `json:"description"`
	ActivityType          string   `json:"activity_type"`
	StartDatetime         string   `json:"start_datetime"`
	EndDatetime           string   `json:"end_datetime"`
	Location              string   `json:"location"`
	Room                  string   `json:"room"`
	Requirements          string   `json:"requirements"`
	Capacity              int      `json:"capacity"`
	CurrentBookings       int      `json:"current_bookings"`
	CurrentVolunteers     int      `json:"current_volunteers"`
	MaxVolunteers         int      `json:"max_volunteers"`
	IsCancelled           bool     `json:"is_cancelled"`
	GoogleCalendarEventID string   `json:"google_calendar_event_id,omitempty"`
	AccessibilityFeatures []string `json:"accessibility_features,omitempty"`
}

// SpotsLeft is capacity minus current confirmed bookings, floored at zero.
func (a *Activity) SpotsLeft() int {
	if n := a.Capacity - a.CurrentBookings; n > 0 {
		return n
	}
	return 0
}

// VolunteersNeeded is the number of unfilled volunteer slots.
func (a *Activity) VolunteersNeeded() int {
	if n := a.MaxVolunteers - a.CurrentVolunteers; n > 0 {
		return n
	}
	return 0
}

// Booking is a participant's reservation against an activity.
type Booking struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	FeedbackRating int       `json:"feedback_rating,omitempty"`
	Activity       *Activity `json:"activity,omitempty"`
}

// WaitlistEntry is a participant's place in line for a full activity.
// Status moves waiting -> notified -> confirmed | expired | declined.
type WaitlistEntry struct {
	ID             string    `json:"id"`
	ActivityID     string    `json:"activity_id"`
	ParticipantID  string    `json:"participant_id"`
	Position       int       `json:"position"`
	Status         string    `json:"status"`
	IsOfferActive  bool      `json:"is_offer_active"`
	OfferExpiresIn int64     `json:"offer_expires_in"` // milliseconds
	ExpiresAt      string    `json:"expires_at"`
	Activity       *Activity `json:"activity,omitempty"`
}

// VolunteerAssignment tracks a volunteer's role on an activity through
// invited -> confirmed -> checked-in -> checked-out.
type VolunteerAssignment struct {
	ID               string     `json:"id"`
	Role             string     `json:"role"`
	Responsibilities string     `json:"responsibilities"`
	Status           string     `json:"status"`
	CheckInTime      string     `json:"check_in_time,omitempty"`
	CheckOutTime     string     `json:"check_out_time,omitempty"`
	Activity         *Activity  `json:"activity,omitempty"`
	Volunteer        *Volunteer `json:"volunteer,omitempty"`
}

// Volunteer is the volunteer profile with lifetime contribution stats.
type Volunteer struct {
	ID            string  `json:"id"`
	TotalHours    float64 `json:"total_hours"`
	TotalSessions int     `json:"total_sessions"`
	Rating        float64 `json:"rating"`
	User          *User   `json:"user,omitempty"`
}

// CareRecipient is a participant linked to a caregiver.
type CareRecipient struct {
	ID                    string   `json:"id"`
	UpcomingBookingsCount int      `json:"upcoming_bookings_count"`
	AccessibilityNeeds    []string `json:"accessibility_needs,omitempty"`
	User                  *User    `json:"user,omitempty"`
}

// DisplayName delegates to the linked user when present.
func (r *CareRecipient) DisplayName() string {
	if r.User == nil {
		return "Unknown"
	}
	return r.User.DisplayName()
}

// DashboardStats is the admin analytics snapshot.
type DashboardStats struct {
	TotalRegistrations  int     `json:"total_registrations"`
	UniqueParticipants  int     `json:"unique_participants"`
	ActiveVolunteers    int     `json:"active_volunteers"`
	AverageSatisfaction float64 `json:"average_satisfaction"`
	TotalActivities     int     `json:"total_activities"`
}

// LeaderboardEntry is one row of the volunteer leaderboard.
type LeaderboardEntry struct {
	ID         string  `json:"id"`
	Rank       int     `json:"rank"`
	TotalHours float64 `json:"total_hours"`
	Rating     float64 `json:"rating"`
	User       *User   `json:"user,omitempty"`
}

// VolunteerStats is the per-volunteer stats view.
type VolunteerStats struct {
	Volunteer           Volunteer     `json:"volunteer"`
	ThisMonth           MonthStats    `json:"this_month"`
	Achievements        []Achievement `json:"achievements"`
	LeaderboardPosition int           `json:"leaderboard_position"`
}

type MonthStats struct {
	Sessions   int     `json:"sessions"`
	TotalHours float64 `json:"total_hours"`
	AvgRating  float64 `json:"avg_rating"`
}

type Achievement struct {
	Name string `json:"name"`
}

// PosterDraft holds event fields extracted from a poster image, pending
// admin confirmation.
type PosterDraft struct {
	Name     string `json:"name"`
	Datetime string `json:"datetime"`
	Location string `json:"location"`
	Summary  string `json:"summary"`
}

// BroadcastRecipient is a user row from the data store carrying a known
// Telegram chat id.
type BroadcastRecipient struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	Email      string `json:"email"`
	TelegramID string `json:"telegram_id"`
	Role       string `json:"role"`
}

// Interaction is one row of the local usage event log. Telemetry only.
type Interaction struct {
	ID         string
	TelegramID int64
	Role       string
	Kind       string // command, menu, callback, flow
	Label      string
	OccurredAt time.Time
}
