package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"gradebook-engine/internal/config"
	"gradebook-engine/internal/logger"
	"gradebook-engine/internal/model"
	"gradebook-engine/internal/queue"
	"gradebook-engine/internal/reconcile"
	"gradebook-engine/internal/storage"
	"gradebook-engine/pkg/errors"

	"github.com/rs/zerolog"
)

// Reconciler applies an upload to a class.
type Reconciler interface {
	Reconcile(ctx context.Context, mode model.ImportMode, classID int64, upload reconcile.Upload, teacherID int64) (*model.ClassSpreadsheet, error)
}

// JobQueue is where retried and abandoned jobs go.
type JobQueue interface {
	EnqueueImportJob(ctx context.Context, job *model.ImportJob) error
	DeadLetter(ctx context.Context, payload []byte) error
}

// JobSource delivers queued import job payloads to a handler.
type JobSource interface {
	ConsumeImportQueue(ctx context.Context, handler queue.MessageHandler) error
}

// ImportWorker fetches linked sheets from object storage and reconciles
// them. Retryable failures are queued again until the attempt limit;
// everything else is dead-lettered.
type ImportWorker struct {
	storage     storage.Storage
	engine      Reconciler
	queue       JobQueue
	workerPool  *WorkerPool
	maxAttempts int
	log         zerolog.Logger
}

func NewImportWorker(cfg *config.Config, store storage.Storage, engine Reconciler, jobs JobQueue) *ImportWorker {
	return &ImportWorker{
		storage:     store,
		engine:      engine,
		queue:       jobs,
		workerPool:  NewWorkerPool(cfg.Workers.Import.Count, cfg.Workers.Import.QueueSize),
		maxAttempts: cfg.Workers.Import.MaxAttempts,
		log:         logger.Component("import_worker"),
	}
}

func (w *ImportWorker) Start(ctx context.Context, source JobSource) error {
	w.log.Info().Msg("Starting import worker")

	w.workerPool.Start(ctx)

	return source.ConsumeImportQueue(ctx, w.HandleMessage)
}

func (w *ImportWorker) Stop() {
	w.log.Info().Msg("Stopping import worker")
	w.workerPool.Stop()
}

// HandleMessage decodes a job and hands it to the pool, which finishes the
// message once the job has run. Payloads that are not valid jobs are
// returned as errors so the consumer dead-letters them. A job the pool does
// not accept is left unfinished and comes back when the queue restarts.
func (w *ImportWorker) HandleMessage(ctx context.Context, msg queue.Message) error {
	var job model.ImportJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal import job")
		return err
	}
	if err := validateJob(job); err != nil {
		return err
	}

	w.log.Info().Str("job_id", job.JobID).Str("object_key", job.ObjectKey).Str("mode", string(job.Mode)).Msg("Processing import job")

	accepted := w.workerPool.Submit(ctx, func(ctx context.Context) error {
		defer msg.Done(nil)
		return w.Process(ctx, job)
	})
	if !accepted {
		w.log.Warn().Str("job_id", job.JobID).Msg("Import job left in flight for shutdown")
	}
	return nil
}

// Process runs one job to completion, routing any failure to a retry or
// the dead-letter queue.
func (w *ImportWorker) Process(ctx context.Context, job model.ImportJob) error {
	log := w.log.With().Str("job_id", job.JobID).Int64("class_id", job.ClassID).Int("attempt", job.Attempt).Logger()

	sheet, err := w.run(ctx, job)
	if err != nil {
		log.Error().Err(err).Msg("Import job failed")
		return w.fail(ctx, job, err)
	}

	log.Info().Int64("spreadsheet_id", sheet.ID).Int("records", len(sheet.Records)).Msg("Import job completed")
	return nil
}

func (w *ImportWorker) run(ctx context.Context, job model.ImportJob) (*model.ClassSpreadsheet, error) {
	reader, err := w.storage.Download(ctx, job.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", job.ObjectKey, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewRetryableError(err, "read "+job.ObjectKey)
	}

	fileName := job.FileName
	if fileName == "" {
		fileName = path.Base(job.ObjectKey)
	}
	return w.engine.Reconcile(ctx, job.Mode, job.ClassID, reconcile.Upload{FileName: fileName, Data: data}, job.TeacherID)
}

func (w *ImportWorker) fail(ctx context.Context, job model.ImportJob, cause error) error {
	ctx = context.WithoutCancel(ctx)
	retryable := errors.IsRetryable(cause) || errors.Is(cause, errors.ErrLockTimeout)
	if retryable && job.Attempt+1 < w.maxAttempts {
		return w.retry(ctx, job)
	}

	payload, err := json.Marshal(model.FailedImport{Job: job, Error: cause.Error(), FailedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := w.queue.DeadLetter(ctx, payload); err != nil {
		return fmt.Errorf("dead-letter job %s: %w", job.JobID, err)
	}
	w.log.Warn().Str("job_id", job.JobID).Bool("retryable", retryable).Msg("Import job moved to DLQ")
	return cause
}

func (w *ImportWorker) retry(ctx context.Context, job model.ImportJob) error {
	job.Attempt++
	if err := w.queue.EnqueueImportJob(ctx, &job); err != nil {
		return fmt.Errorf("requeue job %s: %w", job.JobID, err)
	}
	w.log.Info().Str("job_id", job.JobID).Int("attempt", job.Attempt).Msg("Import job requeued")
	return nil
}

func validateJob(job model.ImportJob) error {
	switch {
	case job.ObjectKey == "":
		return errors.ValidationError{Field: "object_key", Value: job.ObjectKey, Message: "is required"}
	case job.TeacherID == 0:
		return errors.ValidationError{Field: "teacher_id", Value: job.TeacherID, Message: "is required"}
	case !job.Mode.Valid():
		return errors.ValidationError{Field: "mode", Value: job.Mode, Message: "must be create, merge or replace"}
	case job.Mode != model.ImportModeCreate && job.ClassID == 0:
		return errors.ValidationError{Field: "class_id", Value: job.ClassID, Message: "is required for merge and replace"}
	}
	return nil
}
