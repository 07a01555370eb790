package queue

import (
	"context"
	"sync"
	"time"

	"gradebook-engine/internal/config"
	"gradebook-engine/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const (
	pollTimeout    = 5 * time.Second
	errorBackoff   = time.Second
	processingList = ":processing"
)

type Consumer struct {
	client *redis.Client
	cfg    *config.Config
	log    zerolog.Logger
}

// Message is one delivery from a queue. It stays on the processing list
// until Done is called; Done with a non-nil error also dead-letters it.
// A handler that returns an error has its message finished for it.
type Message struct {
	Data []byte
	once *sync.Once
	done func(err error)
}

// Done finishes the message. Calls after the first are ignored.
func (m Message) Done(err error) {
	m.once.Do(func() { m.done(err) })
}

type MessageHandler func(ctx context.Context, msg Message) error

func NewConsumer(redisClient *RedisClient, cfg *config.Config) *Consumer {
	return &Consumer{
		client: redisClient.Client(),
		cfg:    cfg,
		log:    logger.Component("queue"),
	}
}

// ConsumeImportQueue feeds import jobs to handler until ctx is done. Jobs
// left in flight by a previous consumer are put back first.
func (c *Consumer) ConsumeImportQueue(ctx context.Context, handler MessageHandler) error {
	queueName := c.cfg.Redis.ImportQueue
	if err := c.requeueInFlight(ctx, queueName); err != nil {
		return err
	}
	return c.consume(ctx, queueName, handler)
}

// consume moves each message onto the processing list until it is done,
// so work lost to a crash or shutdown is requeued on the next start.
func (c *Consumer) consume(ctx context.Context, queueName string, handler MessageHandler) error {
	inFlight := queueName + processingList
	dlqName := queueName + c.cfg.Redis.DLQSuffix

	for ctx.Err() == nil {
		message, err := c.client.BRPopLPush(ctx, queueName, inFlight, pollTimeout).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.log.Error().Err(err).Str("queue", queueName).Msg("Failed to consume message")
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
			continue
		}

		msg := c.message(message, inFlight, dlqName)
		if err := handler(ctx, msg); err != nil {
			msg.Done(err)
		}
	}
	return ctx.Err()
}

func (c *Consumer) message(payload, inFlight, dlqName string) Message {
	return Message{
		Data: []byte(payload),
		once: &sync.Once{},
		done: func(err error) {
			ctx := context.Background()
			if err != nil {
				c.log.Error().Err(err).Str("queue", inFlight).Msg("Failed to process message")
				if dlqErr := c.client.LPush(ctx, dlqName, payload).Err(); dlqErr != nil {
					c.log.Error().Err(dlqErr).Str("dlq", dlqName).Msg("Failed to move message to DLQ")
				}
			}
			if remErr := c.client.LRem(ctx, inFlight, 1, payload).Err(); remErr != nil {
				c.log.Warn().Err(remErr).Str("queue", inFlight).Msg("Failed to clear processed message")
			}
		},
	}
}

// NewMessage builds a message finished by done, for feeding handlers
// outside a Redis consumer.
func NewMessage(data []byte, done func(err error)) Message {
	return Message{Data: data, once: &sync.Once{}, done: done}
}

func (c *Consumer) requeueInFlight(ctx context.Context, queueName string) error {
	inFlight := queueName + processingList
	moved := 0
	for {
		err := c.client.RPopLPush(ctx, inFlight, queueName).Err()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return err
		}
		moved++
	}
	if moved > 0 {
		c.log.Warn().Int("count", moved).Str("queue", queueName).Msg("Requeued in-flight import jobs")
	}
	return nil
}
