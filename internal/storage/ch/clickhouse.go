package ch

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"careconnect/internal/models"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type ClickHouseLog struct {
	conn clickhouse.Conn
}

// NewClickHouseLog creates a new ClickHouse connection for the
// interaction event log
func NewClickHouseLog(host string, port int, database, user, password string, useTLS bool) (*ClickHouseLog, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}

	// Configure TLS if enabled
	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseLog{conn: conn}, nil
}

// Initialize is a no-op - tables are managed via migrations
func (db *ClickHouseLog) Initialize(ctx context.Context) error {
	// Tables are managed via migrations (see migrations/ directory)
	return nil
}

// RecordInteraction appends one usage event
func (db *ClickHouseLog) RecordInteraction(ctx context.Context, interaction models.Interaction) error {
	err := db.conn.Exec(ctx,
		`INSERT INTO interactions (id, telegram_id, role, kind, label, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		interaction.ID, interaction.TelegramID, interaction.Role, interaction.Kind, interaction.Label, interaction.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}
	return nil
}

// CountByKind returns interaction counts per kind since the cutoff
func (db *ClickHouseLog) CountByKind(ctx context.Context, since time.Time) (map[string]uint64, error) {
	rows, err := db.conn.Query(ctx,
		`SELECT kind, count() FROM interactions WHERE occurred_at >= ? GROUP BY kind`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count interactions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var kind string
		var count uint64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan interaction count: %w", err)
		}
		counts[kind] = count
	}
	return counts, nil
}

// ActiveChats returns the number of distinct chats seen since the cutoff
func (db *ClickHouseLog) ActiveChats(ctx context.Context, since time.Time) (uint64, error) {
	row := db.conn.QueryRow(ctx,
		`SELECT uniqExact(telegram_id) FROM interactions WHERE occurred_at >= ?`, since)

	var count uint64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active chats: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (db *ClickHouseLog) Close() error {
	return db.conn.Close()
}
