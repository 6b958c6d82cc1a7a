package ch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clickhouseTC "github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"careconnect/internal/models"
)

// runMigrations manually runs ClickHouse migrations
func runMigrations(ctx context.Context, db *ClickHouseLog) error {
	_ = db.conn.Exec(ctx, "DROP TABLE IF EXISTS interactions")

	return db.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS interactions (
			id String,
			telegram_id Int64,
			role String,
			kind String,
			label String,
			occurred_at DateTime
		) ENGINE = MergeTree()
		ORDER BY occurred_at
	`)
}

// setupTestLog creates a test ClickHouse instance using testcontainers
func setupTestLog(t *testing.T) (*ClickHouseLog, func()) {
	ctx := context.Background()

	// Start ClickHouse container
	clickhouseContainer, err := clickhouseTC.Run(ctx,
		"clickhouse/clickhouse-server:24.3.3.102-alpine",
		clickhouseTC.WithUsername("default"),
		clickhouseTC.WithPassword(""),
		clickhouseTC.WithDatabase("default"),
	)
	require.NoError(t, err, "Failed to start ClickHouse container")

	host, err := clickhouseContainer.Host(ctx)
	require.NoError(t, err)

	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	db, err := NewClickHouseLog(host, port.Int(), "default", "default", "", false)
	require.NoError(t, err, "Failed to connect to ClickHouse")

	// Run migrations manually (goose doesn't work well with ClickHouse)
	err = runMigrations(ctx, db)
	require.NoError(t, err, "Failed to run migrations")

	cleanup := func() {
		db.Close()
		clickhouseContainer.Terminate(ctx)
	}

	return db, cleanup
}

func TestClickHouseLog_RecordInteraction(t *testing.T) {
	db, cleanup := setupTestLog(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	err := db.RecordInteraction(ctx, models.Interaction{
		ID:         uuid.NewString(),
		TelegramID: 42,
		Role:       models.RoleParticipant,
		Kind:       "command",
		Label:      "start",
		OccurredAt: now,
	})
	require.NoError(t, err)

	counts, err := db.CountByKind(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), counts["command"])
}

func TestClickHouseLog_CountByKind(t *testing.T) {
	db, cleanup := setupTestLog(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	for i, kind := range []string{"command", "command", "callback", "flow"} {
		err := db.RecordInteraction(ctx, models.Interaction{
			ID:         uuid.NewString(),
			TelegramID: int64(i),
			Kind:       kind,
			OccurredAt: now,
		})
		require.NoError(t, err)
	}

	counts, err := db.CountByKind(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), counts["command"])
	assert.Equal(t, uint64(1), counts["callback"])
	assert.Equal(t, uint64(1), counts["flow"])
}

func TestClickHouseLog_ActiveChats(t *testing.T) {
	db, cleanup := setupTestLog(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	for _, telegramID := range []int64{1, 1, 2, 3} {
		err := db.RecordInteraction(ctx, models.Interaction{
			ID:         uuid.NewString(),
			TelegramID: telegramID,
			Kind:       "command",
			OccurredAt: now,
		})
		require.NoError(t, err)
	}

	active, err := db.ActiveChats(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), active)
}
