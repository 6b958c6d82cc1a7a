package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"careconnect/internal/models"
)

func TestAuthentication(t *testing.T) {
	s := &Session{ChatID: 1}
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, "User", s.DisplayName())
	assert.Empty(t, s.Role())

	s.Login(&models.User{
		ID:            "u1",
		FirstName:     "Rosa",
		LastName:      "Lim",
		Role:          models.RoleParticipant,
		ParticipantID: "p1",
	}, "tok")

	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "Rosa Lim", s.DisplayName())
	assert.Equal(t, models.RoleParticipant, s.Role())
	assert.Equal(t, "p1", s.ParticipantID())
	assert.Empty(t, s.VolunteerID())
}

func TestLogoutClearsFlowScratch(t *testing.T) {
	s := &Session{ChatID: 1}
	s.Login(&models.User{ID: "u1"}, "tok")
	s.StartFlow(FlowRegistration, "email")
	s.Registration.Email = "a@b.c"

	s.Logout()

	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.User)
	assert.False(t, s.InFlow())
	assert.Empty(t, s.Registration.Email)
}

func TestStartFlowSupersedesPreviousFlow(t *testing.T) {
	s := &Session{ChatID: 1}
	s.StartFlow(FlowRating, "stars")
	s.RatingBookingID = "b1"
	s.RatingStars = 4

	// Entering a different flow silently drops the old one's scratch.
	s.StartFlow(FlowCaregiverLink, "name")

	assert.Equal(t, FlowCaregiverLink, s.Flow)
	assert.Equal(t, "name", s.Step)
	assert.Empty(t, s.RatingBookingID)
	assert.Zero(t, s.RatingStars)
}

func TestResetKeepsAuth(t *testing.T) {
	s := &Session{ChatID: 1}
	s.Login(&models.User{ID: "u1"}, "tok")
	s.StartFlow(FlowPosterUpload, "await_photo")
	s.PosterFileID = "file123"
	s.PosterDraft = &models.PosterDraft{Name: "Bingo Night"}

	s.Reset()

	assert.True(t, s.IsAuthenticated())
	assert.False(t, s.InFlow())
	assert.Nil(t, s.PosterDraft)
	assert.Empty(t, s.PosterFileID)
}

func TestStoreReturnsSameSession(t *testing.T) {
	st := NewStore(zap.NewNop())
	a := st.Get(7)
	a.Token = "tok"

	b := st.Get(7)
	require.Same(t, a, b)
	assert.Equal(t, 1, st.Count())
}

func TestStoreConcurrentAccess(t *testing.T) {
	st := NewStore(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			st.Get(chatID % 10)
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, 10, st.Count())
}
