package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gradebook-engine/internal/logger"
)

// releaseScript deletes the key only while it still holds our token, so a
// lease that expired and was taken by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a lease lock shared by every process using the same Redis.
type RedisLocker struct {
	client  redis.UniversalClient
	ttl     time.Duration
	timeout time.Duration
	poll    time.Duration
	log     zerolog.Logger
}

func NewRedisLocker(client redis.UniversalClient, ttl, waitTimeout, pollInterval time.Duration) *RedisLocker {
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	return &RedisLocker{
		client:  client,
		ttl:     ttl,
		timeout: waitTimeout,
		poll:    pollInterval,
		log:     logger.Component("lock"),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	token := uuid.NewString()
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, waitError(ctx, key)
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.release(key, token), nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, waitError(ctx, key)
		}
	}
}

func (l *RedisLocker) release(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
				l.log.Warn().Err(err).Str("key", key).Msg("Failed to release lock")
			}
		})
	}
}
