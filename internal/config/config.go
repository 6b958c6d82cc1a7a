package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	TelegramToken   string
	AdminTelegramID int64

	// Backend API configuration
	BackendAPIURL string

	// Direct data-store access (broadcast lists and scheduler sweeps)
	DatastoreURL string
	DatastoreKey string

	// Google Calendar sync (optional; disabled when calendar id or
	// credential file is missing)
	GoogleCalendarID   string
	ServiceAccountFile string

	// Local interaction event log (optional)
	EventLogEnabled bool
	UseMockEventLog bool

	// ClickHouse configuration (required when the event log is enabled
	// and not mocked)
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	config.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	adminStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is required")
	}
	adminID, err := strconv.ParseInt(adminStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}
	config.AdminTelegramID = adminID

	config.BackendAPIURL = os.Getenv("BACKEND_API_URL")
	if config.BackendAPIURL == "" {
		return nil, fmt.Errorf("BACKEND_API_URL is required")
	}

	config.DatastoreURL = os.Getenv("DATASTORE_URL")
	if config.DatastoreURL == "" {
		return nil, fmt.Errorf("DATASTORE_URL is required")
	}
	config.DatastoreKey = os.Getenv("DATASTORE_KEY")
	if config.DatastoreKey == "" {
		return nil, fmt.Errorf("DATASTORE_KEY is required")
	}

	// Calendar sync is best-effort and optional
	config.GoogleCalendarID = os.Getenv("GOOGLE_CALENDAR_ID")
	config.ServiceAccountFile = os.Getenv("SERVICE_ACCOUNT_FILE")

	config.EventLogEnabled = os.Getenv("EVENT_LOG_ENABLED") == "true"
	config.UseMockEventLog = os.Getenv("USE_MOCK_EVENT_LOG") == "true"

	// ClickHouse configuration (required if the event log is enabled
	// without the in-memory mock)
	if config.EventLogEnabled && !config.UseMockEventLog {
		config.ClickHouseHost = os.Getenv("CLICKHOUSE_HOST")
		if config.ClickHouseHost == "" {
			return nil, fmt.Errorf("CLICKHOUSE_HOST is required when EVENT_LOG_ENABLED is true")
		}

		portStr := os.Getenv("CLICKHOUSE_PORT")
		if portStr == "" {
			config.ClickHousePort = 9000 // Default ClickHouse native port
		} else {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
			}
			config.ClickHousePort = port
		}

		config.ClickHouseDatabase = os.Getenv("CLICKHOUSE_DATABASE")
		if config.ClickHouseDatabase == "" {
			config.ClickHouseDatabase = "default"
		}

		config.ClickHouseUser = os.Getenv("CLICKHOUSE_USER")
		if config.ClickHouseUser == "" {
			config.ClickHouseUser = "default"
		}

		config.ClickHousePassword = os.Getenv("CLICKHOUSE_PASSWORD")
		// Password is optional, can be empty

		config.ClickHouseUseTLS = os.Getenv("CLICKHOUSE_USE_TLS") == "true"
	}

	return config, nil
}
