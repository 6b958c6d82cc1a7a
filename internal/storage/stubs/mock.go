package stubs

import (
	"context"
	"sync"
	"time"

	"careconnect/internal/models"
)

// MockLog is an in-memory implementation of the EventLog interface for
// testing and for running without ClickHouse
type MockLog struct {
	mu           sync.RWMutex
	interactions []models.Interaction
}

// NewMockLog creates a new mock event log
func NewMockLog() *MockLog {
	return &MockLog{
		interactions: make([]models.Interaction, 0),
	}
}

// Initialize is a no-op for the mock
func (m *MockLog) Initialize(ctx context.Context) error {
	return nil
}

// RecordInteraction appends one usage event
func (m *MockLog) RecordInteraction(ctx context.Context, interaction models.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.interactions = append(m.interactions, interaction)
	return nil
}

// CountByKind returns interaction counts per kind since the cutoff
func (m *MockLog) CountByKind(ctx context.Context, since time.Time) (map[string]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]uint64)
	for _, interaction := range m.interactions {
		if interaction.OccurredAt.Before(since) {
			continue
		}
		counts[interaction.Kind]++
	}
	return counts, nil
}

// ActiveChats returns the number of distinct chats seen since the cutoff
func (m *MockLog) ActiveChats(ctx context.Context, since time.Time) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chats := make(map[int64]struct{})
	for _, interaction := range m.interactions {
		if interaction.OccurredAt.Before(since) {
			continue
		}
		chats[interaction.TelegramID] = struct{}{}
	}
	return uint64(len(chats)), nil
}

// Interactions returns a copy of all recorded interactions
func (m *MockLog) Interactions() []models.Interaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Interaction, len(m.interactions))
	copy(out, m.interactions)
	return out
}

// Close is a no-op for the mock
func (m *MockLog) Close() error {
	return nil
}
