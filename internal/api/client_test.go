package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "", "", zap.NewNop())
}

func TestLoginWithTelegram(t *testing.T) {
	t.Run("registered user", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/auth/telegram", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "login", body["action"])
			require.Equal(t, "42", body["telegram_id"])

			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"found": true,
					"user":  map[string]any{"id": "u1", "role": "participant", "first_name": "Mei"},
					"token": "tok-abc",
				},
			})
		})

		result := client.LoginWithTelegram(context.Background(), "42")
		require.True(t, result.Found)
		require.NotNil(t, result.User)
		assert.Equal(t, "u1", result.User.ID)
		assert.Equal(t, "tok-abc", result.Token)
	})

	t.Run("unknown telegram id is not an error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"found": false},
			})
		})

		result := client.LoginWithTelegram(context.Background(), "99")
		assert.False(t, result.Found)
		assert.Nil(t, result.User)
	})

	t.Run("backend down degrades to not found", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", "", "", zap.NewNop())
		result := client.LoginWithTelegram(context.Background(), "42")
		assert.False(t, result.Found)
	})
}

func TestLinkTelegram(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "link", body["action"])
		require.Equal(t, "u1", body["user_id"])
		require.Equal(t, "42", body["telegram_id"])

		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	result := client.LinkTelegram(context.Background(), "u1", "42")
	assert.True(t, result.Success)
}

func TestCreateBooking(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"status":  "confirmed",
					"booking": map[string]any{"id": "b1", "status": "confirmed"},
				},
			})
		})

		result := client.CreateBooking(context.Background(), "tok", "a1", "p1")
		require.True(t, result.Success)
		assert.Equal(t, BookingConfirmed, result.Status)
		require.NotNil(t, result.Booking)
		assert.Equal(t, "b1", result.Booking.ID)
	})

	t.Run("waitlisted carries position", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"status":            "waitlisted",
					"waitlist_position": 3,
				},
			})
		})

		result := client.CreateBooking(context.Background(), "tok", "a1", "p1")
		require.True(t, result.Success)
		assert.Equal(t, BookingWaitlisted, result.Status)
		assert.Equal(t, 3, result.WaitlistPosition)
	})

	t.Run("conflict carries code and alternatives", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error": map[string]any{
					"code":    "BOOKING_CONFLICT",
					"message": "You already have a booking at this time",
					"details": map[string]any{
						"conflicting_activity": map[string]any{"id": "a0", "title": "Morning Tai Chi"},
						"alternatives": []map[string]any{
							{"id": "a2", "title": "Afternoon Tai Chi"},
						},
					},
				},
			})
		})

		result := client.CreateBooking(context.Background(), "tok", "a1", "p1")
		require.False(t, result.Success)
		assert.Equal(t, ErrCodeBookingConflict, result.ErrorCode)
		assert.Equal(t, "You already have a booking at this time", result.Error)
		require.NotNil(t, result.ConflictingActivity)
		assert.Equal(t, "Morning Tai Chi", result.ConflictingActivity.Title)
		require.Len(t, result.Alternatives, 1)
		assert.Equal(t, "a2", result.Alternatives[0].ID)
	})

	t.Run("failure without code falls back to generic message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{"success": false})
		})

		result := client.CreateBooking(context.Background(), "tok", "a1", "p1")
		require.False(t, result.Success)
		assert.Equal(t, "Booking failed", result.Error)
		assert.Empty(t, result.ErrorCode)
	})
}

func TestListActivities(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/activities", r.URL.Path)
		require.Equal(t, "10", r.URL.Query().Get("limit"))
		require.Equal(t, "true", r.URL.Query().Get("has_availability"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"activities": []map[string]any{
					{"id": "a1", "title": "Bingo", "capacity": 20, "current_bookings": 18},
					{"id": "a2", "title": "Gardening", "capacity": 10, "current_bookings": 10},
				},
			},
		})
	})

	activities := client.ListActivities(context.Background(), "tok", 10, true)
	require.Len(t, activities, 2)
	assert.Equal(t, 2, activities[0].SpotsLeft())
	assert.Equal(t, 0, activities[1].SpotsLeft())
}

func TestListVolunteerAssignmentsRebuildsGrouping(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"assignments": []map[string]any{
					{"id": "as1", "status": "confirmed"},
					{"id": "as2", "status": "confirmed"},
					{"id": "as3", "status": "completed"},
				},
			},
		})
	})

	result := client.ListVolunteerAssignments(context.Background(), "tok", "v1")
	require.Len(t, result.Assignments, 3)
	require.NotNil(t, result.Grouped)
	assert.Len(t, result.Grouped["confirmed"], 2)
	assert.Len(t, result.Grouped["completed"], 1)
}

func TestSubmitBookingFeedback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bookings/b1/feedback", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(5), body["rating"])
		assert.Equal(t, "Great session", body["feedback_text"])

		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	result := client.SubmitBookingFeedback(context.Background(), "tok", "b1", 5, "Great session")
	assert.True(t, result.Success)
}

func TestDatastoreExpiredOffers(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/waitlist_entries", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("apikey"))
		require.Equal(t, "eq.notified", r.URL.Query().Get("status"))
		require.Equal(t, "lt."+now.Format(time.RFC3339), r.URL.Query().Get("expires_at"))

		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "w1", "activity_id": "a1", "participant_id": "p1"},
		})
	}))
	t.Cleanup(srv.Close)

	ds := NewDatastore(srv.URL, "secret", zap.NewNop())
	entries := ds.ExpiredOffers(context.Background(), now)
	require.Len(t, entries, 1)
	assert.Equal(t, "w1", entries[0].ID)
}

func TestDatastoreMarkWaitlistExpired(t *testing.T) {
	var gotFilter url.Values
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "return=minimal", r.Header.Get("Prefer"))
		gotFilter = r.URL.Query()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	ds := NewDatastore(srv.URL, "secret", zap.NewNop())
	require.NoError(t, ds.MarkWaitlistExpired(context.Background(), "w1"))
	assert.Equal(t, "eq.w1", gotFilter.Get("id"))
	assert.Equal(t, "expired", gotBody["status"])
}
