package api

import (
	"encoding/json"

	"careconnect/internal/models"
)

// envelope is the backend's response wrapper: {success, data?, error?}.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *remoteError    `json:"error"`
}

type remoteError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func (e *remoteError) message(fallback string) string {
	if e == nil || e.Message == "" {
		return fallback
	}
	return e.Message
}

// Result is the normalized outcome of a mutating call without a payload.
type Result struct {
	Success bool
	Error   string
}

// LoginResult is returned by LoginWithTelegram. Found=false means the
// Telegram id has no account yet; that is not an error.
type LoginResult struct {
	Found bool         `json:"found"`
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// RegisterResult is returned by RegisterWithTelegram.
type RegisterResult struct {
	Success bool
	User    *models.User
	Token   string
	Error   string
}

// Booking outcome statuses.
const (
	BookingConfirmed  = "confirmed"
	BookingWaitlisted = "waitlisted"
)

// Error codes callers branch on.
const (
	ErrCodeBookingConflict   = "BOOKING_CONFLICT"
	ErrCodeAlreadyRegistered = "ALREADY_REGISTERED"
)

// BookingResult distinguishes the three booking outcomes: confirmed,
// waitlisted (with position) and failed (with a machine-readable code).
type BookingResult struct {
	Success             bool
	Status              string
	Message             string
	Booking             *models.Booking
	WaitlistPosition    int
	ErrorCode           string
	Error               string
	ConflictingActivity *models.Activity
	Alternatives        []models.Activity
}

// ExtractResult carries the fields the poster-extraction service pulled
// from an image, or the raw error it reported.
type ExtractResult struct {
	Success bool
	Draft   models.PosterDraft
	Error   string
}

// CreateActivityResult is returned by CreateActivity.
type CreateActivityResult struct {
	Success  bool
	Activity *models.Activity
	Error    string
}

// VolunteerProfileResult is returned by CreateVolunteerProfile.
type VolunteerProfileResult struct {
	Success   bool
	Volunteer *models.Volunteer
	Error     string
}

// AssignmentsResult groups a volunteer's assignments by status.
type AssignmentsResult struct {
	Assignments []models.VolunteerAssignment            `json:"assignments"`
	Grouped     map[string][]models.VolunteerAssignment `json:"grouped"`
}

// CheckInResult is returned by CheckIn.
type CheckInResult struct {
	Success       bool
	ActivityTitle string `json:"activity_title"`
	CheckInTime   string `json:"check_in_time"`
	Error         string
}

// CheckOutResult is returned by CheckOut.
type CheckOutResult struct {
	Success          bool
	HoursContributed float64 `json:"hours_contributed"`
	TotalHours       float64 `json:"total_hours"`
	Error            string
}

// LinkResult is returned by LinkParticipant.
type LinkResult struct {
	Success     bool
	Participant *models.CareRecipient
	Error       string
}
