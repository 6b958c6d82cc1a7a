package storage

import (
	"context"
	"time"

	"careconnect/internal/models"
)

// EventLog records bot usage telemetry. It is strictly observational:
// no session or domain state lives here, and the bot functions fully
// with the log disabled.
type EventLog interface {
	// RecordInteraction appends one usage event.
	RecordInteraction(ctx context.Context, interaction models.Interaction) error

	// CountByKind returns interaction counts per kind since the cutoff.
	CountByKind(ctx context.Context, since time.Time) (map[string]uint64, error)

	// ActiveChats returns the number of distinct Telegram chats seen
	// since the cutoff.
	ActiveChats(ctx context.Context, since time.Time) (uint64, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
