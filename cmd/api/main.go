package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gradebook-engine/internal/api"
	"gradebook-engine/internal/app"
	"gradebook-engine/internal/config"
	"gradebook-engine/internal/logger"
	"gradebook-engine/internal/queue"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Local .env is optional
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting API server")

	backends, err := app.New(context.Background(), cfg, false)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize backends")
	}
	defer backends.Close()

	// Queued imports need Redis; without it the endpoint answers 503
	var jobs api.JobQueue
	if backends.Redis != nil {
		jobs = queue.NewProducer(backends.Redis, cfg)
	} else if rc, err := queue.NewRedisClient(cfg); err == nil {
		defer rc.Close()
		jobs = queue.NewProducer(rc, cfg)
	} else {
		log.Warn().Err(err).Msg("Redis unavailable, queued imports disabled")
	}

	handler := api.NewHandler(cfg, backends.Engine, backends.Grades, jobs, backends.Storage)

	// Setup Gin router
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(handler)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
