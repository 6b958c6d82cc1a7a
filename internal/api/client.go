package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"careconnect/internal/models"
)

const (
	defaultTimeout = 30 * time.Second
	extractTimeout = 60 * time.Second
)

// Client issues HTTP requests against the backend REST API. Expected
// failure modes (network errors, non-2xx statuses, malformed payloads)
// never surface as Go errors to callers: list operations degrade to empty
// slices and mutating operations to a failed result, logged at error
// level. One attempt per invocation, no retries.
type Client struct {
	baseURL    string
	extractURL string
	extractKey string
	httpc      *http.Client
	extractc   *http.Client
	logger     *zap.Logger
}

// NewClient creates a backend API client. extractURL/extractKey configure
// the poster-extraction service and may be empty.
func NewClient(baseURL, extractURL, extractKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		extractURL: strings.TrimRight(extractURL, "/"),
		extractKey: extractKey,
		httpc:      &http.Client{Timeout: defaultTimeout},
		extractc:   &http.Client{Timeout: extractTimeout},
		logger:     logger,
	}
}

// do performs one request and decodes the response envelope. A nil
// envelope with a non-nil error means transport-level failure.
func (c *Client) do(ctx context.Context, method, path, token string, query url.Values, body any) (*envelope, int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return &env, resp.StatusCode, nil
}

func ok(status int) bool { return status == http.StatusOK || status == http.StatusCreated }

// decodeData unmarshals the envelope's data payload into out.
func decodeData(env *envelope, out any) error {
	if len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// ==================== AUTH ====================

// LoginWithTelegram looks up an account by Telegram id. An unregistered
// id yields Found=false, never an error.
func (c *Client) LoginWithTelegram(ctx context.Context, telegramID string) LoginResult {
	env, status, err := c.do(ctx, http.MethodPost, "/auth/telegram", "", nil, map[string]string{
		"action":      "login",
		"telegram_id": telegramID,
	})
	if err != nil {
		c.logger.Error("Telegram login failed", zap.Error(err), zap.String("telegram_id", telegramID))
		return LoginResult{}
	}
	if status != http.StatusOK || !env.Success {
		return LoginResult{}
	}

	var result LoginResult
	if err := decodeData(env, &result); err != nil {
		c.logger.Error("Failed to decode login payload", zap.Error(err))
		return LoginResult{}
	}
	return result
}

// RegisterWithTelegram creates a new account bound to a Telegram id.
func (c *Client) RegisterWithTelegram(ctx context.Context, telegramID, email, password, firstName, lastName, role string) RegisterResult {
	env, status, err := c.do(ctx, http.MethodPost, "/auth/telegram", "", nil, map[string]string{
		"action":      "register",
		"telegram_id": telegramID,
		"email":       email,
		"password":    password,
		"first_name":  firstName,
		"last_name":   lastName,
		"role":        role,
	})
	if err != nil {
		c.logger.Error("Registration failed", zap.Error(err), zap.String("email", email))
		return RegisterResult{Error: err.Error()}
	}
	if !ok(status) || !env.Success {
		return RegisterResult{Error: env.Error.message("Registration failed")}
	}

	var payload struct {
		User  *models.User `json:"user"`
		Token string       `json:"token"`
	}
	if err := decodeData(env, &payload); err != nil {
		c.logger.Error("Failed to decode registration payload", zap.Error(err))
		return RegisterResult{Error: "Registration failed"}
	}
	return RegisterResult{Success: true, User: payload.User, Token: payload.Token}
}

// LinkTelegram binds a Telegram id to an existing user.
func (c *Client) LinkTelegram(ctx context.Context, userID, telegramID string) Result {
	env, _, err := c.do(ctx, http.MethodPost, "/auth/telegram", "", nil, map[string]string{
		"action":      "link",
		"user_id":     userID,
		"telegram_id": telegramID,
	})
	if err != nil {
		c.logger.Error("Link telegram failed", zap.Error(err), zap.String("user_id", userID))
		return Result{Error: err.Error()}
	}
	return Result{Success: env.Success}
}

// ==================== ACTIVITIES ====================

// ListActivities returns upcoming activities, up to limit.
func (c *Client) ListActivities(ctx context.Context, token string, limit int, hasAvailability bool) []models.Activity {
	query := url.Values{}
	query.Set("limit", fmt.Sprint(limit))
	query.Set("has_availability", fmt.Sprint(hasAvailability))

	env, status, err := c.do(ctx, http.MethodGet, "/activities", token, query, nil)
	if err != nil {
		c.logger.Error("List activities failed", zap.Error(err))
		return nil
	}
	if status != http.StatusOK || !env.Success {
		return nil
	}

	var payload struct {
		Activities []models.Activity `json:"activities"`
	}
	if err := decodeData(env, &payload); err != nil {
		c.logger.Error("Failed to decode activities payload", zap.Error(err))
		return nil
	}
	return payload.Activities
}

// GetActivity fetches one activity by id; nil when missing or on failure.
func (c *Client) GetActivity(ctx context.Context, token, activityID string) *models.Activity {
	env, status, err := c.do(ctx, http.MethodGet, "/activities/"+activityID, token, nil, nil)
	if err != nil {
		c.logger.Error("Get activity failed", zap.Error(err), zap.String("activity_id", activityID))
		return nil
	}
	if status != http.StatusOK || !env.Success {
		return nil
	}

	var activity models.Activity
	if err := decodeData(env, &activity); err != nil {
		c.logger.Error("Failed to decode activity payload", zap.Error(err))
		return nil
	}
	return &activity
}

// CreateActivity creates a new activity (staff only).
func (c *Client) CreateActivity(ctx context.Context, token string, activity map[string]any) CreateActivityResult {
	env, status, err := c.do(ctx, http.MethodPost, "/activities", token, nil, activity)
	if err != nil {
		c.logger.Error("Create activity failed", zap.Error(err))
		return CreateActivityResult{Error: err.Error()}
	}
	if !ok(status) || !env.Success {
		return CreateActivityResult{Error: env.Error.message("Failed to create activity")}
	}

	var created models.Activity
	if err := decodeData(env, &created); err != nil {
		c.logger.Error("Failed to decode created activity", zap.Error(err))
		return CreateActivityResult{Error: "Failed to create activity"}
	}
	return CreateActivityResult{Success: true, Activity: &created}
}

// ==================== BOOKINGS ====================

// CreateBooking books a participant onto an activity. The backend owns
// conflict detection and waitlisting; callers branch on ErrorCode, not
// just Success.
func (c *Client) CreateBooking(ctx context.Context, token, activityID, participantID string) BookingResult {
	env, status, err := c.do(ctx, http.MethodPost, "/bookings", token, nil, map[string]string{
		"activity_id":    activityID,
		"participant_id": participantID,
	})
	if err != nil {
		c.logger.Error("Create booking failed", zap.Error(err), zap.String("activity_id", activityID))
		return BookingResult{Error: err.Error()}
	}

	if ok(status) && env.Success {
		var payload struct {
			Status           string          `json:"status"`
			Message          string          `json:"message"`
			Booking          *models.Booking `json:"booking"`
			WaitlistPosition int             `json:"waitlist_position"`
		}
		if err := decodeData(env, &payload); err != nil {
			c.logger.Error("Failed to decode booking payload", zap.Error(err))
			return BookingResult{Error: "Booking failed"}
		}
		if payload.Status == "" {
			payload.Status = BookingConfirmed
		}
		return BookingResult{
			Success:          true,
			Status:           payload.Status,
			Message:          payload.Message,
			Booking:          payload.Booking,
			WaitlistPosition: payload.WaitlistPosition,
		}
	}

	result := BookingResult{Error: env.Error.message("Booking failed")}
	if env.Error != nil {
		result.ErrorCode = env.Error.Code
		if len(env.Error.Details) > 0 {
			var details struct {
				ConflictingActivity *models.Activity  `json:"conflicting_activity"`
				Alternatives        []models.Activity `json:"alternatives"`
			}
			if err := json.Unmarshal(env.Error.Details, &details); err == nil {
				result.ConflictingActivity = details.ConflictingActivity
				result.Alternatives = details.Alternatives
			}
		}
	}
	c.logger.Error("Booking rejected by backend",
		zap.Int("status", status),
		zap.String("error_code", result.ErrorCode),
		zap.String("activity_id", activityID),
	)
	return result
}

// ListMyBookings returns the current user's bookings.
func (c *Client) ListMyBookings(ctx context.Context, token string, limit int) []models.Booking {
	query := url.Values{}
	query.Set("limit", fmt.Sprint(limit))

	env, status, err := c.do(ctx, http.MethodGet, "/bookings", token, query, nil)
	if err != nil {
		c.logger.Error("List bookings failed", zap.Error(err))
		return nil
	}
	if status != http.StatusOK || !env.Success {
		return nil
	}

	var payload struct {
		Bookings []models.Booking `json:"bookings"`
	}
	if err := decodeData(env, &payload); err != nil {
		c.logger.Error("Failed to decode bookings payload", zap.Error(err))
		return nil
	}
	return payload.Bookings
}

// CancelBooking cancels a booking.
func (c *Client) CancelBooking(ctx context.Context, token, bookingID string) Result {
	env, status, err := c.do(ctx, http.MethodPut, "/bookings/"+bookingID+"/cancel", token, nil, nil)
	if err != nil {
		c.logger.Error("Cancel booking failed", zap.Error(err), zap.String("booking_id", bookingID))
		return Result{Error: err.Error()}
	}
	if status != http.StatusOK || !env.Success {
		return Result{Error: env.Error.message("Cancellation failed")}
	}
	return Result{Success: true}
}

// SubmitBookingFeedback submits a 1..5 rating with optional text.
func (c *Client) SubmitBookingFeedback(ctx context.Context, token, bookingID string, rating int, feedback string) Result {
	env, status, err := c.do(ctx, http.MethodPost, "/bookings/"+bookingID+"/feedback", token, nil, map[string]any{
		"rating":        rating,
		"feedback_text": feedback,
	})
	if err != nil {
		c.logger.Error("Submit feedback failed", zap.Error(err), zap.String("booking_id", bookingID))
		return Result{Error: err.Error()}
	}
	if status != http.StatusOK || !env.Success {
		return Result{Error: env.Error.message("Failed to submit feedback")}
	}
	return Result{Success: true}
}

// ==================== WAITLIST ====================

// ParticipantWaitlist returns a participant's waitlist entries.
func (c *Client) ParticipantWaitlist(ctx context.Context, token, participantID string) []models.WaitlistEntry {
	env, status, err := c.do(ctx, http.MethodGet, "/waitlist/participant/"+participantID, token, nil, nil)
	if err != nil {
		c.logger.Error("Get waitlist failed", zap.Error(err), zap.String("participant_id", participantID))
		return nil
	}
	if status != http.StatusOK || !env.Success {
		return nil
	}

	var payload struct {
		Entries []models.WaitlistEntry `json:"entries"`
	}
	if err := decodeData(env, &payload); err != nil {
		c.logger.Error("Failed to decode waitlist payload", zap.Error(err))
		return nil
	}
	return payload.Entries
}

// AcceptWaitlistOffer claims an offered slot.
func (c *Client) AcceptWaitlistOffer(ctx context.Context, token, waitlistID string) Result {
	env, status, err := c.do(ctx, http.MethodPost, "/waitlist/"+waitlistID+"/accept", token, nil, nil)
	if err != nil {
		c.logger.Error("Accept waitlist failed", zap.Error(err), zap.String("waitlist_id", waitlistID))
		return Result{Error: err.Error()}
	}
	if status != http.StatusOK || !env.Success {
		return Result{Error: env.Error.message("Failed to accept offer")}
	}
	return Result{Success: true}
}

// DeclineWaitlistOffer declines an offer or leaves the waitlist.
func (c *Client) DeclineWaitlistOffer(ctx context.Context, token, waitlistID string) Result {
	env, status, err := c.do(ctx, http.MethodPost, "/waitlist/"+waitlistID+"/decline", token, nil, nil)
	if err != nil {
		c.logger.Error("Decline waitlist failed", zap.Error(err), zap.String("waitlist_id", waitlistID))
		return Result{Error: err.Error()}
	}
	if status != http.StatusOK || !env.Success {
		return Result{}
	}
	return Result{Success: true}
}

// ==================== ANALYTICS ====================

// DashboardStats returns the staff analytics snapshot; nil on failure.
func (c *Client) DashboardStats(ctx context.Context, token string) *models.DashboardStats {
	env, status, err := c.do(ctx, http.MethodGet, "/analytics/dashboard", token, nil, nil)
	if err != nil {
		c.logger.Error("Get dashboard stats failed", zap.Error(err))
		return nil
	}
	if status != http.StatusOK || !env.Success {
		return nil
	}

	var stats models.DashboardStats
	if err := decodeData(env, &stats); err != nil {
		c.logger.Error("Failed to decode dashboard stats", zap.Error(err))
		return nil
	}
	return &stats
}

// ==================== POSTER EXTRACTION ====================

// ExtractPoster sends a base64-encoded image to the extraction service.
// This is a pass-through to an external AI endpoint with a longer timeout.
func (c *Client) ExtractPoster(ctx context.Context, imageBase64 string) ExtractResult {
	if c.extractURL == "" || c.extractKey == "" {
		return ExtractResult{Error: "extraction service not configured"}
	}

	body, err := json.Marshal(map[string]string{"image_base64": imageBase64})
	if err != nil {
		return ExtractResult{Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.extractURL+"/functions/v1/extract-poster", bytes.NewReader(body))
	if err != nil {
		return ExtractResult{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.extractKey)

	resp, err := c.extractc.Do(req)
	if err != nil {
		c.logger.Error("Extract poster failed", zap.Error(err))
		return ExtractResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&failure); err != nil || failure.Error == "" {
			failure.Error = "Extraction failed"
		}
		c.logger.Error("Extraction service rejected poster", zap.Int("status", resp.StatusCode), zap.String("error", failure.Error))
		return ExtractResult{Error: failure.Error}
	}

	var draft models.PosterDraft
	if err := json.NewDecoder(resp.Body).Decode(&draft); err != nil {
		c.logger.Error("Failed to decode extraction payload", zap.Error(err))
		return ExtractResult{Error: "Extraction failed"}
	}
	return ExtractResult{Success: true, Draft: draft}
}
