package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradebook-engine/internal/config"
	"gradebook-engine/internal/db/memdb"
	"gradebook-engine/internal/lock"
	"gradebook-engine/internal/storage"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Database.Driver = "memory"
	cfg.Lock.Backend = "memory"
	cfg.Reconcile.PlaceholderEmailDomain = "temp.edu"
	return cfg
}

func TestNewWithInMemoryBackends(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), false)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &memdb.DB{}, a.Store)
	assert.IsType(t, &lock.MemoryLocker{}, a.Locker)
	assert.IsType(t, &storage.MemoryStorage{}, a.Storage)
	assert.Nil(t, a.Redis)
	assert.NotNil(t, a.Engine)
	assert.NotNil(t, a.Grades)
}

func TestNewRejectsUnknownBackends(t *testing.T) {
	cfg := memoryConfig()
	cfg.Database.Driver = "sqlite"
	_, err := New(context.Background(), cfg, false)
	assert.ErrorContains(t, err, "unknown database driver")

	cfg = memoryConfig()
	cfg.Lock.Backend = "etcd"
	_, err = New(context.Background(), cfg, false)
	assert.ErrorContains(t, err, "unknown lock backend")
}
