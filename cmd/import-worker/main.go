package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gradebook-engine/internal/app"
	"gradebook-engine/internal/config"
	"gradebook-engine/internal/logger"
	"gradebook-engine/internal/queue"
	"gradebook-engine/internal/worker"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting import worker")

	backends, err := app.New(context.Background(), cfg, true)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize backends")
	}
	defer backends.Close()

	producer := queue.NewProducer(backends.Redis, cfg)
	consumer := queue.NewConsumer(backends.Redis, cfg)
	importWorker := worker.NewImportWorker(cfg, backends.Storage, backends.Engine, producer)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := importWorker.Start(ctx, consumer); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Import worker failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down import worker...")

	cancel()
	<-done
	importWorker.Stop()

	log.Info().Msg("Import worker exited")
}
