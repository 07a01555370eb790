package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("GRADEBOOK_DB_PASSWORD", "s3cret")
	path := writeConfig(t, `
app:
  name: gradebook
database:
  host: db
  port: 3306
  user: grades
  password: ${GRADEBOOK_DB_PASSWORD}
  name: gradebook
lock:
  backend: redis
`)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "redis", cfg.Lock.Backend)
	assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
	assert.Equal(t, "temp.edu", cfg.Reconcile.PlaceholderEmailDomain)
	assert.Equal(t, 3, cfg.Workers.Import.MaxAttempts)
	assert.Equal(t, "grades:s3cret@tcp(db:3306)/gradebook?charset=utf8mb4&parseTime=true&loc=UTC", cfg.DatabaseDSN())
	assert.False(t, cfg.Storage.S3.Enabled())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "server: [unterminated"))
	assert.Error(t, err)
}
