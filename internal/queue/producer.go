package queue

import (
	"context"
	"encoding/json"
	"time"

	"gradebook-engine/internal/config"
	"gradebook-engine/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

type Producer struct {
	redis  *RedisClient
	client *redis.Client
	cfg    *config.Config
}

func NewProducer(redisClient *RedisClient, cfg *config.Config) *Producer {
	return &Producer{
		redis:  redisClient,
		client: redisClient.Client(),
		cfg:    cfg,
	}
}

// EnqueueImportJob pushes job onto the import queue, assigning a job id
// and queue time when they are unset.
func (p *Producer) EnqueueImportJob(ctx context.Context, job *model.ImportJob) error {
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	job.QueuedAt = time.Now().UTC()

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return p.client.LPush(ctx, p.cfg.Redis.ImportQueue, data).Err()
}

// DeadLetter parks a payload that will not be retried.
func (p *Producer) DeadLetter(ctx context.Context, payload []byte) error {
	return p.client.LPush(ctx, p.cfg.Redis.ImportQueue+p.cfg.Redis.DLQSuffix, payload).Err()
}

func (p *Producer) Depth(ctx context.Context) (pending, dead int64, err error) {
	return p.redis.Depth(ctx)
}
