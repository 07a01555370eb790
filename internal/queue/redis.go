package queue

import (
	"context"
	"fmt"
	"time"

	"gradebook-engine/internal/config"

	"github.com/go-redis/redis/v8"
)

const dialTimeout = 5 * time.Second

// RedisClient is the connection shared by the import queue and the
// distributed class lock.
type RedisClient struct {
	client *redis.Client
	cfg    *config.Config
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", cfg.RedisAddr(), err)
	}

	return &RedisClient{
		client: rdb,
		cfg:    cfg,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) Client() *redis.Client {
	return r.client
}

// Depth reports how many import jobs are waiting and how many were
// dead-lettered.
func (r *RedisClient) Depth(ctx context.Context) (pending, dead int64, err error) {
	pipe := r.client.Pipeline()
	p := pipe.LLen(ctx, r.cfg.Redis.ImportQueue)
	d := pipe.LLen(ctx, r.cfg.Redis.ImportQueue+r.cfg.Redis.DLQSuffix)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return p.Val(), d.Val(), nil
}
