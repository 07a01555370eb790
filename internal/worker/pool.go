package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gradebook-engine/internal/logger"

	"github.com/rs/zerolog"
)

// WorkerPool runs submitted jobs on a fixed number of goroutines. A job
// that panics is logged and does not take its worker down. Accepted jobs
// always run: cancelling the start context does not cancel them, and Stop
// waits for the queue to drain.
type WorkerPool struct {
	workerCount int
	jobChan     chan func(context.Context) error
	wg          sync.WaitGroup
	log         zerolog.Logger
}

func NewWorkerPool(workerCount, queueSize int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = workerCount * 2
	}
	return &WorkerPool{
		workerCount: workerCount,
		jobChan:     make(chan func(context.Context) error, queueSize),
		log:         logger.Component("worker_pool"),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	wp.log.Info().Int("worker_count", wp.workerCount).Msg("Starting worker pool")

	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Stop closes the pool to new jobs and waits for queued ones to finish.
func (wp *WorkerPool) Stop() {
	wp.log.Info().Msg("Stopping worker pool")
	close(wp.jobChan)
	wp.wg.Wait()
	wp.log.Info().Msg("Worker pool stopped")
}

// Submit queues job, waiting for room until ctx is done. It reports
// whether the job was accepted.
func (wp *WorkerPool) Submit(ctx context.Context, job func(context.Context) error) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case wp.jobChan <- job:
		return true
	case <-ctx.Done():
		wp.log.Warn().Msg("Worker pool job not accepted before shutdown")
		return false
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	log := wp.log.With().Int("worker_id", id).Logger()
	log.Debug().Msg("Worker started")

	jobCtx := context.WithoutCancel(ctx)
	for job := range wp.jobChan {
		start := time.Now()
		if err := run(jobCtx, job); err != nil {
			log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Job execution failed")
			continue
		}
		log.Debug().Dur("elapsed", time.Since(start)).Msg("Job finished")
	}
	log.Debug().Msg("Worker stopping due to closed job channel")
}

func run(ctx context.Context, job func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job(ctx)
}
