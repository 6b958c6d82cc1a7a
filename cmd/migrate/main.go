package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
)

const migrationsDir = "./migrations"

// Applies goose migrations to the interaction event log.
// Usage: migrate [up|down|status|version]
func main() {
	godotenv.Load()

	db, err := openClickHouse()
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := goose.SetDialect("clickhouse"); err != nil {
		log.Fatalf("Failed to set dialect: %v", err)
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if err := run(db, command); err != nil {
		log.Fatal(err)
	}
}

func run(db *sql.DB, command string) error {
	switch command {
	case "up":
		return goose.Up(db, migrationsDir)
	case "down":
		return goose.Down(db, migrationsDir)
	case "status":
		return goose.Status(db, migrationsDir)
	case "version":
		version, err := goose.GetDBVersion(db)
		if err != nil {
			return err
		}
		log.Printf("Current migration version: %d", version)
		return nil
	default:
		return fmt.Errorf("unknown command %q (want up, down, status or version)", command)
	}
}

func openClickHouse() (*sql.DB, error) {
	host := envOr("CLICKHOUSE_HOST", "localhost")
	port := envOr("CLICKHOUSE_PORT", "9000")
	database := envOr("CLICKHOUSE_DATABASE", "default")
	user := envOr("CLICKHOUSE_USER", "default")
	password := os.Getenv("CLICKHOUSE_PASSWORD")

	query := url.Values{"dial_timeout": {"10s"}, "max_execution_time": {"60"}}
	if os.Getenv("CLICKHOUSE_USE_TLS") == "true" {
		query.Set("secure", "true")
	}
	dsn := url.URL{
		Scheme:   "clickhouse",
		User:     url.UserPassword(user, password),
		Host:     host + ":" + port,
		Path:     database,
		RawQuery: query.Encode(),
	}

	db, err := sql.Open("clickhouse", dsn.String())
	if err != nil {
		return nil, fmt.Errorf("connect to ClickHouse: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping ClickHouse: %w", err)
	}
	return db, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
