// Package app assembles the backends both binaries share from config.
package app

import (
	"context"
	"fmt"

	"gradebook-engine/internal/config"
	"gradebook-engine/internal/db"
	"gradebook-engine/internal/db/memdb"
	"gradebook-engine/internal/gradebook"
	"gradebook-engine/internal/lock"
	"gradebook-engine/internal/logger"
	"gradebook-engine/internal/queue"
	"gradebook-engine/internal/reconcile"
	"gradebook-engine/internal/storage"
)

// App holds the process-wide backends. Redis is nil when neither the
// lock nor the queue needs it.
type App struct {
	Config  *config.Config
	Store   db.Store
	Locker  lock.Locker
	Storage storage.Storage
	Redis   *queue.RedisClient

	Engine *reconcile.Engine
	Grades *gradebook.Service

	closers []func() error
}

// New opens the configured backends. needRedis forces a Redis connection
// even when the lock backend is in-memory.
func New(ctx context.Context, cfg *config.Config, needRedis bool) (*App, error) {
	log := logger.Get()
	a := &App{Config: cfg}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if needRedis || cfg.Lock.Backend == "redis" {
		rc, err := queue.NewRedisClient(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = rc
		a.closers = append(a.closers, rc.Close)
	}

	switch cfg.Lock.Backend {
	case "redis":
		a.Locker = lock.NewRedisLocker(a.Redis.Client(), cfg.Lock.TTL, cfg.Lock.WaitTimeout, cfg.Lock.PollInterval)
	case "memory":
		a.Locker = lock.NewMemoryLocker(cfg.Lock.WaitTimeout)
	default:
		a.Close()
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Lock.Backend)
	}

	if cfg.Storage.S3.Enabled() {
		s3, err := storage.NewS3Storage(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Storage = s3
	} else {
		log.Warn().Msg("No S3 bucket configured, keeping uploads in memory")
		a.Storage = storage.NewMemoryStorage()
	}

	a.Engine = reconcile.NewEngine(a.Store, a.Locker,
		reconcile.WithPlaceholderDomain(cfg.Reconcile.PlaceholderEmailDomain))
	a.Grades = gradebook.NewService(a.Store, nil, nil)

	log.Info().
		Str("database", cfg.Database.Driver).
		Str("lock", cfg.Lock.Backend).
		Bool("s3", cfg.Storage.S3.Enabled()).
		Bool("redis", a.Redis != nil).
		Msg("Backends ready")
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.Config.Database.Driver {
	case "memory":
		a.Store = memdb.Open()
		return nil
	case "mysql":
		conn, err := db.NewConnection(a.Config)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		if a.Config.Database.AutoMigrate {
			if err := db.Migrate(ctx, conn); err != nil {
				return err
			}
		}
		a.Store = db.NewStore(conn)
		return nil
	default:
		return fmt.Errorf("unknown database driver %q", a.Config.Database.Driver)
	}
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	log := logger.Get()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("Failed to close backend")
		}
	}
	a.closers = nil
}
