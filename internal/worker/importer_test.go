package worker

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gradebook-engine/internal/config"
	"gradebook-engine/internal/db"
	"gradebook-engine/internal/db/memdb"
	"gradebook-engine/internal/model"
	"gradebook-engine/internal/queue"
	"gradebook-engine/internal/reconcile"
	"gradebook-engine/internal/storage"
	"gradebook-engine/pkg/errors"
)

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []model.ImportJob
	dead     [][]byte
}

func (q *fakeQueue) EnqueueImportJob(_ context.Context, job *model.ImportJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, *job)
	return nil
}

func (q *fakeQueue) DeadLetter(_ context.Context, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, payload)
	return nil
}

type reconcilerFunc func(ctx context.Context, mode model.ImportMode, classID int64, upload reconcile.Upload, teacherID int64) (*model.ClassSpreadsheet, error)

func (f reconcilerFunc) Reconcile(ctx context.Context, mode model.ImportMode, classID int64, upload reconcile.Upload, teacherID int64) (*model.ClassSpreadsheet, error) {
	return f(ctx, mode, classID, upload, teacherID)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Workers.Import = config.ImportWorkerConfig{Count: 2, QueueSize: 4, MaxAttempts: 3}
	return cfg
}

func TestImportWorkerProcessesLinkedSheet(t *testing.T) {
	ctx := context.Background()
	store := memdb.Open()
	objects := storage.NewMemoryStorage()
	jobs := &fakeQueue{}
	engine := reconcile.NewEngine(store, nil, reconcile.WithHashCost(bcrypt.MinCost))
	w := NewImportWorker(testConfig(), objects, engine, jobs)

	var teacher model.User
	require.NoError(t, store.InTx(ctx, func(ctx context.Context, repo db.Repository) error {
		teacher = model.User{Role: model.RoleTeacher, Name: "T", Email: "t@school.edu"}
		return repo.CreateUser(ctx, &teacher)
	}))
	require.NoError(t, objects.Upload(ctx, "linked/chem.csv", strings.NewReader("Student Number,Q1\n,10\n2021-0001,9\n")))

	job := model.ImportJob{JobID: "j1", TeacherID: teacher.ID, ObjectKey: "linked/chem.csv", Mode: model.ImportModeCreate}
	require.NoError(t, w.Process(ctx, job))
	assert.Empty(t, jobs.dead)

	require.NoError(t, store.View(ctx, func(ctx context.Context, repo db.Repository) error {
		student, err := repo.GetStudentByNumber(ctx, "2021-0001")
		require.NoError(t, err)
		assert.True(t, student.Placeholder)
		return nil
	}))
}

func TestImportWorkerDeadLettersPermanentFailures(t *testing.T) {
	jobs := &fakeQueue{}
	w := NewImportWorker(testConfig(), storage.NewMemoryStorage(), reconcilerFunc(nil), jobs)

	job := model.ImportJob{JobID: "j2", TeacherID: 1, ObjectKey: "missing.csv", Mode: model.ImportModeCreate}
	err := w.Process(context.Background(), job)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	require.Len(t, jobs.dead, 1)
	assert.Empty(t, jobs.enqueued)

	var failed model.FailedImport
	require.NoError(t, json.Unmarshal(jobs.dead[0], &failed))
	assert.Equal(t, "j2", failed.Job.JobID)
	assert.Contains(t, failed.Error, "not found")
}

func TestImportWorkerRetriesUntilMaxAttempts(t *testing.T) {
	ctx := context.Background()
	objects := storage.NewMemoryStorage()
	require.NoError(t, objects.Upload(ctx, "k.csv", strings.NewReader("x")))

	conflict := reconcilerFunc(func(context.Context, model.ImportMode, int64, reconcile.Upload, int64) (*model.ClassSpreadsheet, error) {
		return nil, errors.NewRetryableError(errors.ErrConflict, "spreadsheet changed")
	})
	jobs := &fakeQueue{}
	w := NewImportWorker(testConfig(), objects, conflict, jobs)

	job := model.ImportJob{JobID: "j3", ClassID: 5, TeacherID: 1, ObjectKey: "k.csv", Mode: model.ImportModeMerge, Attempt: 1}
	require.NoError(t, w.Process(ctx, job))
	require.Len(t, jobs.enqueued, 1)
	assert.Equal(t, 2, jobs.enqueued[0].Attempt)

	err := w.Process(ctx, jobs.enqueued[0])
	assert.True(t, errors.Is(err, errors.ErrConflict))
	assert.Len(t, jobs.enqueued, 1)
	assert.Len(t, jobs.dead, 1)
}

func TestImportWorkerHandleMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	done := make(chan struct{})
	rec := reconcilerFunc(func(_ context.Context, mode model.ImportMode, classID int64, upload reconcile.Upload, _ int64) (*model.ClassSpreadsheet, error) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, model.ImportModeReplace, mode)
		assert.Equal(t, int64(9), classID)
		assert.Equal(t, "sheet.csv", upload.FileName)
		close(done)
		return &model.ClassSpreadsheet{ID: 1}, nil
	})

	objects := storage.NewMemoryStorage()
	require.NoError(t, objects.Upload(ctx, "uploads/1/sheet.csv", strings.NewReader("x")))
	w := NewImportWorker(testConfig(), objects, rec, &fakeQueue{})
	w.workerPool.Start(ctx)

	unfinished := func(data string) queue.Message {
		return queue.NewMessage([]byte(data), func(error) { t.Errorf("message %s finished by handler", data) })
	}
	assert.Error(t, w.HandleMessage(ctx, unfinished("{not json")))
	assert.True(t, errors.Is(w.HandleMessage(ctx, unfinished(`{"teacher_id":1,"object_key":"k","mode":"merge"}`)), errors.ErrSchemaValidation))

	finished := make(chan error, 1)
	payload := []byte(`{"job_id":"j4","class_id":9,"teacher_id":1,"object_key":"uploads/1/sheet.csv","mode":"replace"}`)
	require.NoError(t, w.HandleMessage(ctx, queue.NewMessage(payload, func(err error) { finished <- err })))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
	select {
	case err := <-finished:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not finished")
	}
	w.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestImportWorkerFinishesAcceptedJobsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	objects := storage.NewMemoryStorage()
	require.NoError(t, objects.Upload(ctx, "k.csv", strings.NewReader("x")))

	release := make(chan struct{})
	var calls int32
	rec := reconcilerFunc(func(ctx context.Context, _ model.ImportMode, _ int64, _ reconcile.Upload, _ int64) (*model.ClassSpreadsheet, error) {
		<-release
		atomic.AddInt32(&calls, 1)
		return &model.ClassSpreadsheet{ID: 1}, ctx.Err()
	})

	cfg := testConfig()
	cfg.Workers.Import = config.ImportWorkerConfig{Count: 1, QueueSize: 10, MaxAttempts: 3}
	jobs := &fakeQueue{}
	w := NewImportWorker(cfg, objects, rec, jobs)
	w.workerPool.Start(ctx)

	var finished int32
	payload := []byte(`{"job_id":"j5","class_id":9,"teacher_id":1,"object_key":"k.csv","mode":"merge"}`)
	for i := 0; i < 6; i++ {
		msg := queue.NewMessage(payload, func(error) { atomic.AddInt32(&finished, 1) })
		require.NoError(t, w.HandleMessage(ctx, msg))
	}

	cancel()
	close(release)
	w.Stop()

	assert.Equal(t, int32(6), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(6), atomic.LoadInt32(&finished))
	assert.Empty(t, jobs.dead)
}

func TestImportWorkerLeavesRefusedJobUnfinished(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewImportWorker(testConfig(), storage.NewMemoryStorage(), reconcilerFunc(nil), &fakeQueue{})
	payload := []byte(`{"job_id":"j6","class_id":9,"teacher_id":1,"object_key":"k.csv","mode":"merge"}`)
	msg := queue.NewMessage(payload, func(error) { t.Error("refused job was finished") })

	assert.NoError(t, w.HandleMessage(ctx, msg))
}
