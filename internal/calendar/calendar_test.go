package calendar

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeServiceAccountFile(t *testing.T, tokenURI string) (string, *rsa.PublicKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pemKey := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	path := filepath.Join(t.TempDir(), "sa.json")
	raw, err := json.Marshal(map[string]string{
		"client_email": "bot@example.iam.gserviceaccount.com",
		"private_key":  string(pemKey),
		"token_uri":    tokenURI,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	return path, &key.PublicKey
}

func TestNewServiceDisabledWhenUnconfigured(t *testing.T) {
	svc, err := NewService("", "", zap.NewNop())
	require.NoError(t, err)
	require.Nil(t, svc)

	// Nil service no-ops instead of panicking.
	id, err := svc.CreateEvent(context.Background(), Event{Summary: "Bingo"})
	assert.NoError(t, err)
	assert.Empty(t, id)
	assert.NoError(t, svc.AddAttendee(context.Background(), "e1", "a@b.c", "A"))
}

func TestCreateEventExchangesSignedAssertion(t *testing.T) {
	var publicKey *rsa.PublicKey

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.Form.Get("grant_type"))

		parsed, err := jwt.Parse(r.Form.Get("assertion"), func(token *jwt.Token) (any, error) {
			return publicKey, nil
		}, jwt.WithValidMethods([]string{"RS256"}))
		require.NoError(t, err)

		claims := parsed.Claims.(jwt.MapClaims)
		assert.Equal(t, "bot@example.iam.gserviceaccount.com", claims["iss"])
		assert.Equal(t, calendarScope, claims["scope"])

		json.NewEncoder(w).Encode(map[string]any{"access_token": "at-1", "expires_in": 3600})
	}))
	t.Cleanup(tokenSrv.Close)

	keyFile, pub := writeServiceAccountFile(t, tokenSrv.URL)
	publicKey = pub

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cal-1/events", r.URL.Path)
		require.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))

		var event Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		event.ID = "ev-99"
		json.NewEncoder(w).Encode(event)
	}))
	t.Cleanup(apiSrv.Close)

	svc, err := NewService("cal-1", keyFile, zap.NewNop())
	require.NoError(t, err)
	svc.baseURL = apiSrv.URL

	id, err := svc.CreateEvent(context.Background(), Event{
		Summary: "Bingo Night",
		Start:   &EventTime{DateTime: "2025-06-02T18:00:00Z"},
		End:     &EventTime{DateTime: "2025-06-02T20:00:00Z"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ev-99", id)
}

func TestAddAttendeeSkipsDuplicates(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "at-1", "expires_in": 3600})
	}))
	t.Cleanup(tokenSrv.Close)

	keyFile, _ := writeServiceAccountFile(t, tokenSrv.URL)

	var patched bool
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(Event{
				ID:        "ev-1",
				Attendees: []Attendee{{Email: "Rosa@Example.com"}},
			})
		case http.MethodPatch:
			patched = true
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("{}"))
		}
	}))
	t.Cleanup(apiSrv.Close)

	svc, err := NewService("cal-1", keyFile, zap.NewNop())
	require.NoError(t, err)
	svc.baseURL = apiSrv.URL

	// Case-insensitive match on an existing attendee: no patch issued.
	require.NoError(t, svc.AddAttendee(context.Background(), "ev-1", "rosa@example.com", "Rosa"))
	assert.False(t, patched)

	require.NoError(t, svc.AddAttendee(context.Background(), "ev-1", "new@example.com", "New"))
	assert.True(t, patched)
}
