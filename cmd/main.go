/**
 * @description
 * This is the main entry point for the freeze-service.
 * It initializes and wires together all the components of the application:
 * configuration, database connection, repositories, the freeze workflow
 * services, the event producer, the cron scheduler, and the HTTP router.
 * Finally, it starts the HTTP server to listen for incoming requests.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/therapyhub/freeze-service/internal/api"
	"github.com/therapyhub/freeze-service/internal/app"
	"github.com/therapyhub/freeze-service/internal/config"
	"github.com/therapyhub/freeze-service/internal/store"
	"github.com/therapyhub/freeze-service/pkg/notifyclient"
	"github.com/therapyhub/freeze-service/pkg/rabbitmq"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env file if present (local development)
	_ = godotenv.Load()

	// Load application configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up channel to listen for OS signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Establish connection to the PostgreSQL database with connection pool configuration
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to work with PgBouncer transaction pooling
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// Event publishing is optional; without a broker URL events are skipped.
	var publisher app.EventPublisher
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, "freeze.events")
		if err != nil {
			logger.Error("unable to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		publisher = producer
		logger.Info("event producer connected")
	} else {
		logger.Warn("RABBITMQ_URL not set, event publishing disabled")
	}

	var notifier app.NotificationClient
	if cfg.NotificationServiceURL != "" {
		notifier = notifyclient.NewClient(cfg.NotificationServiceURL, cfg.InternalAPIKey)
	}

	// Initialize application layers
	repository := store.NewRepository(dbpool)
	validator := app.NewValidationService(repository, *cfg, logger)
	timeline := app.NewTimelineManager(repository, *cfg, logger)
	engine := app.NewReschedulingEngine(repository, *cfg, publisher, logger)
	service := app.NewFreezeService(validator, timeline, engine, repository, publisher, *cfg, logger)

	// Start the cron scheduler for freeze lifecycle jobs
	jobs := app.NewJobs(repository, notifier, publisher, logger, *cfg)
	scheduler := app.NewScheduler(jobs, logger, *cfg)
	scheduler.Start()
	logger.Info("scheduler started")

	handler := api.NewHandler(service)
	router := api.NewRouter(handler, cfg.JWKSURL, cfg.InternalAPIKey)

	// Configure and start the HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for an OS signal
	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	// Stop the cron scheduler and wait for running jobs to finish
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("scheduler stopped")

	// Create a context with a timeout for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	logger.Info("server stopped gracefully")
}
