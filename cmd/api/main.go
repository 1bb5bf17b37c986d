package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/craftparty/emerald-market/internal/api"
	"github.com/craftparty/emerald-market/internal/cache"
	"github.com/craftparty/emerald-market/internal/cleanup"
	"github.com/craftparty/emerald-market/internal/database"
	"github.com/craftparty/emerald-market/internal/events"
	"github.com/craftparty/emerald-market/internal/telemetry"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	telemetryConfig := telemetry.NewConfigFromEnv()
	if err := telemetry.InitLogger(telemetryConfig); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := telemetry.L()

	if err := telemetry.InitTracing(telemetryConfig); err != nil {
		log.WithError(err).Warn("failed to initialize tracing, continuing without it")
	}

	cfg, err := api.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	log.WithField("environment", telemetryConfig.Environment).Info("Emerald Market API starting")

	// PostgreSQL
	dbConfig, err := database.NewConfigFromEnv()
	if err != nil {
		log.WithError(err).Fatal("failed to load database configuration")
	}

	db, err := database.NewDB(dbConfig)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to PostgreSQL")
	}
	defer db.Close()
	log.Info("connected to PostgreSQL")

	repo := database.NewListingRepository(db)

	// Background sweep of expired listings
	janitor := cleanup.NewJanitor(repo, cleanup.LoadConfig(), log)
	janitor.Start()
	defer janitor.Stop()

	// Valkey
	cacheConfig, err := cache.NewConfigFromEnv()
	if err != nil {
		log.WithError(err).Fatal("failed to load cache configuration")
	}

	valkey, err := cache.NewValkeyCache(cacheConfig)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to Valkey")
	}
	defer valkey.Close()
	log.Info("connected to Valkey")

	// NATS JetStream
	eventsConfig, err := events.NewConfigFromEnv()
	if err != nil {
		log.WithError(err).Fatal("failed to load events configuration")
	}

	publisher, err := events.NewPublisher(eventsConfig, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to NATS")
	}
	defer publisher.Close()
	log.Info("connected to NATS")

	handler := api.NewHandler(repo, db, valkey, publisher, cacheConfig.DefaultTTL)

	app := fiber.New(fiber.Config{
		AppName:               "Emerald Market API",
		ReadTimeout:           time.Duration(cfg.RequestTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.RequestTimeout) * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
	})

	api.SetupMiddleware(app)
	api.SetupRoutes(app, handler, cfg)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down gracefully")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.WithError(err).Error("server forced to shutdown")
		}

		if err := telemetry.CloseTracing(shutdownCtx); err != nil {
			log.WithError(err).Warn("failed to shut down tracing")
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.WithField("addr", addr).Info("Emerald Market API listening")

	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}
