// Package session keeps per-chat conversation state in memory. Sessions
// hold the backend auth token, the logged-in user snapshot and the
// scratch data of whichever flow the chat is currently in. Everything is
// lost on restart; users simply /start again.
package session

import (
	"sync"

	"go.uber.org/zap"

	"careconnect/internal/models"
)

// Flow identifies the multi-step conversation a chat is currently in.
// A chat is in at most one flow at a time.
type Flow string

const (
	FlowNone          Flow = ""
	FlowRegistration  Flow = "registration"
	FlowPosterUpload  Flow = "poster_upload"
	FlowRating        Flow = "rating"
	FlowVolunteerJoin Flow = "volunteer_join"
	FlowCheckout      Flow = "checkout"
	FlowCaregiverLink Flow = "caregiver_link"
)

// Registration is the scratch data collected step by step during signup.
type Registration struct {
	Role     string
	Email    string
	Password string
}

// Session is the state of one Telegram chat.
type Session struct {
	ChatID int64
	User   *models.User
	Token  string

	Flow Flow
	Step string

	Registration Registration

	// Rating flow: which booking is being rated and the chosen stars,
	// pending the optional feedback text.
	RatingBookingID string
	RatingStars     int

	// Checkout flow: the assignment awaiting session notes.
	CheckoutAssignmentID string

	// Volunteer onboarding flow: selections accumulated across the
	// interest, skill and availability steps.
	Interests    []string
	Skills       []string
	Availability map[string][]string

	// Booking on behalf of a care recipient. PendingJoinIDs maps the
	// short numeric index used in callback data back to full
	// participant ids; callback payloads are too small to carry the
	// ids themselves.
	PendingJoinActivityID string
	PendingJoinIDs        []string
	SelectedParticipantID string

	// Poster upload flow.
	PosterDraft  *models.PosterDraft
	PosterFileID string
}

// IsAuthenticated reports whether the chat holds a backend token.
func (s *Session) IsAuthenticated() bool { return s.Token != "" }

// Login stores the authenticated user and token.
func (s *Session) Login(user *models.User, token string) {
	s.User = user
	s.Token = token
}

// Logout clears auth state and any in-progress flow.
func (s *Session) Logout() {
	s.User = nil
	s.Token = ""
	s.Reset()
}

// Role returns the logged-in user's role, or "" when logged out.
func (s *Session) Role() string {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// ParticipantID returns the session user's participant profile id.
func (s *Session) ParticipantID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ParticipantID
}

// CaregiverID returns the session user's caregiver profile id.
func (s *Session) CaregiverID() string {
	if s.User == nil {
		return ""
	}
	return s.User.CaregiverID
}

// VolunteerID returns the session user's volunteer profile id.
func (s *Session) VolunteerID() string {
	if s.User == nil {
		return ""
	}
	return s.User.VolunteerID
}

// DisplayName returns the user's name or "User" when logged out.
func (s *Session) DisplayName() string {
	if s.User == nil {
		return "User"
	}
	return s.User.DisplayName()
}

// StartFlow puts the chat into a flow at its first step, discarding the
// scratch of any flow it was in before. Starting a new flow is the only
// way to abandon an old one besides /start.
func (s *Session) StartFlow(flow Flow, step string) {
	s.Reset()
	s.Flow = flow
	s.Step = step
}

// InFlow reports whether the chat is mid-flow.
func (s *Session) InFlow() bool { return s.Flow != FlowNone }

// Reset clears the current flow and all flow scratch. Auth state stays.
func (s *Session) Reset() {
	s.Flow = FlowNone
	s.Step = ""
	s.Registration = Registration{}
	s.RatingBookingID = ""
	s.RatingStars = 0
	s.CheckoutAssignmentID = ""
	s.Interests = nil
	s.Skills = nil
	s.Availability = nil
	s.PendingJoinActivityID = ""
	s.PendingJoinIDs = nil
	s.SelectedParticipantID = ""
	s.PosterDraft = nil
	s.PosterFileID = ""
}

// Store is a concurrency-safe registry of chat sessions.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	logger   *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		logger:   logger,
	}
}

// Get returns the session for a chat, creating an empty one on first use.
func (st *Store) Get(chatID int64) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, found := st.sessions[chatID]
	if !found {
		s = &Session{ChatID: chatID}
		st.sessions[chatID] = s
		st.logger.Debug("Created session", zap.Int64("chat_id", chatID))
	}
	return s
}

// Count returns the number of live sessions.
func (st *Store) Count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
