// Package calendar mirrors published activities into a shared Google
// Calendar. All operations are best effort: the calendar is a
// convenience view, never the source of truth, so failures are logged
// and swallowed by callers.
package calendar

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	eventsEndpoint = "https://www.googleapis.com/calendar/v3/calendars"
	calendarScope  = "https://www.googleapis.com/auth/calendar"
)

// Event is the subset of a Google Calendar event the bot reads/writes.
type Event struct {
	ID          string     `json:"id,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Start       *EventTime `json:"start,omitempty"`
	End         *EventTime `json:"end,omitempty"`
	Attendees   []Attendee `json:"attendees,omitempty"`
}

type EventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type Attendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// Service talks to the Google Calendar REST API with a service account.
// A nil *Service is valid and turns every call into a no-op, so the bot
// runs unchanged when the calendar is not configured.
type Service struct {
	calendarID string
	baseURL    string
	creds      serviceAccount
	key        *rsa.PrivateKey
	httpc      *http.Client
	logger     *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// NewService loads the service account key file. Both arguments empty
// yields (nil, nil): calendar sync disabled.
func NewService(calendarID, keyFile string, logger *zap.Logger) (*Service, error) {
	if calendarID == "" || keyFile == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}

	var creds serviceAccount
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse service account file: %w", err)
	}
	if creds.TokenURI == "" {
		creds.TokenURI = "https://oauth2.googleapis.com/token"
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(creds.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}

	return &Service{
		calendarID: calendarID,
		baseURL:    eventsEndpoint,
		creds:      creds,
		key:        key,
		httpc:      &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}, nil
}

const defaultTimeout = 30 * time.Second

// token returns a cached access token, minting a fresh one via the
// signed JWT grant when the cache is empty or near expiry.
func (s *Service) token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && time.Now().Before(s.tokenExpiry.Add(-time.Minute)) {
		return s.accessToken, nil
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   s.creds.ClientEmail,
		"scope": calendarScope,
		"aud":   s.creds.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.creds.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	s.accessToken = payload.AccessToken
	s.tokenExpiry = now.Add(time.Duration(payload.ExpiresIn) * time.Second)
	return s.accessToken, nil
}

func (s *Service) request(ctx context.Context, method, path string, body any, out any) error {
	token, err := s.token(ctx)
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	u := s.baseURL + "/" + url.PathEscape(s.calendarID) + path
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("calendar request returned status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode calendar response: %w", err)
		}
	}
	return nil
}

// CreateEvent inserts an event and returns its calendar id.
func (s *Service) CreateEvent(ctx context.Context, event Event) (string, error) {
	if s == nil {
		return "", nil
	}

	var created Event
	if err := s.request(ctx, http.MethodPost, "/events", event, &created); err != nil {
		s.logger.Error("Failed to create calendar event", zap.Error(err), zap.String("summary", event.Summary))
		return "", err
	}
	s.logger.Info("Created calendar event", zap.String("event_id", created.ID), zap.String("summary", event.Summary))
	return created.ID, nil
}

// GetEvent fetches one event by id.
func (s *Service) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	if s == nil {
		return nil, nil
	}

	var event Event
	if err := s.request(ctx, http.MethodGet, "/events/"+url.PathEscape(eventID), nil, &event); err != nil {
		s.logger.Error("Failed to fetch calendar event", zap.Error(err), zap.String("event_id", eventID))
		return nil, err
	}
	return &event, nil
}

// AddAttendee appends an attendee to an event, skipping the patch when
// the email is already on the list.
func (s *Service) AddAttendee(ctx context.Context, eventID, email, displayName string) error {
	if s == nil || eventID == "" || email == "" {
		return nil
	}

	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	for _, a := range event.Attendees {
		if strings.EqualFold(a.Email, email) {
			return nil
		}
	}

	attendees := append(event.Attendees, Attendee{Email: email, DisplayName: displayName})
	patch := map[string]any{"attendees": attendees}
	if err := s.request(ctx, http.MethodPatch, "/events/"+url.PathEscape(eventID), patch, nil); err != nil {
		s.logger.Error("Failed to add calendar attendee", zap.Error(err), zap.String("event_id", eventID))
		return err
	}
	s.logger.Info("Added calendar attendee", zap.String("event_id", eventID), zap.String("email", email))
	return nil
}
