package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"careconnect/internal/api"
	"careconnect/internal/bot"
	"careconnect/internal/calendar"
	"careconnect/internal/config"
	"careconnect/internal/scheduler"
	"careconnect/internal/storage"
	"careconnect/internal/storage/ch"
	"careconnect/internal/storage/stubs"
)

// App represents the application
type App struct {
	config    *config.Config
	logger    *zap.Logger
	events    storage.EventLog
	bot       *bot.Bot
	scheduler *scheduler.Scheduler
	server    *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{config: cfg, logger: logger}

	logger.Info("Starting CareConnect bot...")

	if err := app.initEventLog(); err != nil {
		return nil, err
	}
	if err := app.initBot(); err != nil {
		return nil, err
	}
	app.initHTTPServer()

	return app, nil
}

// initEventLog wires the optional interaction log.
func (a *App) initEventLog() error {
	if !a.config.EventLogEnabled {
		a.logger.Info("Interaction event log disabled")
		return nil
	}

	var events storage.EventLog
	if a.config.UseMockEventLog {
		a.logger.Info("Using in-memory event log")
		events = stubs.NewMockLog()
	} else {
		a.logger.Info("Connecting to ClickHouse",
			zap.String("host", a.config.ClickHouseHost),
			zap.Int("port", a.config.ClickHousePort),
			zap.String("database", a.config.ClickHouseDatabase),
			zap.Bool("tls", a.config.ClickHouseUseTLS),
		)
		chLog, err := ch.NewClickHouseLog(
			a.config.ClickHouseHost,
			a.config.ClickHousePort,
			a.config.ClickHouseDatabase,
			a.config.ClickHouseUser,
			a.config.ClickHousePassword,
			a.config.ClickHouseUseTLS,
		)
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		events = chLog
	}

	if err := events.Initialize(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize event log: %w", err)
	}

	a.events = events
	return nil
}

// initBot wires the backend client, data store, calendar and scheduler
// into the Telegram bot.
func (a *App) initBot() error {
	client := api.NewClient(a.config.BackendAPIURL, a.config.DatastoreURL, a.config.DatastoreKey, a.logger)
	datastore := api.NewDatastore(a.config.DatastoreURL, a.config.DatastoreKey, a.logger)

	calendarSvc, err := calendar.NewService(a.config.GoogleCalendarID, a.config.ServiceAccountFile, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create calendar service: %w", err)
	}
	if calendarSvc == nil {
		a.logger.Info("Calendar sync disabled")
	}

	telegramBot, err := bot.NewBot(a.config.TelegramToken, a.config.AdminTelegramID, client, datastore, calendarSvc, a.events, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	a.bot = telegramBot

	a.scheduler = scheduler.New(datastore, telegramBot, a.logger)
	return nil
}

// initHTTPServer starts the health and usage endpoints in the background.
func (a *App) initHTTPServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})
	bot.NewHTTPServer(a.bot).RegisterRoutes(mux)

	a.server = &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", port))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		if err := a.bot.Start(); err != nil {
			a.logger.Fatal("Failed to start bot", zap.Error(err))
		}
	}()

	<-sigChan

	a.logger.Info("Shutting down...")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	a.scheduler.Stop()
	a.bot.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Error("Error closing event log", zap.Error(err))
			return err
		}
	}

	a.logger.Info("Shutdown complete")
	return nil
}
