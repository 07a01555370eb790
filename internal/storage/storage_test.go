package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradebook-engine/pkg/errors"
)

func TestArchiveKey(t *testing.T) {
	key := ArchiveKey(7, `C:\Users\reyes\Math 101.xlsx`)
	assert.True(t, strings.HasPrefix(key, "uploads/7/"), key)
	assert.True(t, strings.HasSuffix(key, "-Math_101.xlsx"), key)
	assert.NotEqual(t, key, ArchiveKey(7, "Math 101.xlsx"))
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	var s Storage = NewMemoryStorage()

	require.NoError(t, s.Upload(ctx, "a/b.csv", strings.NewReader("Student Number\n")))
	ok, err := s.Exists(ctx, "a/b.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	r, err := s.Download(ctx, "a/b.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Student Number\n", string(data))

	require.NoError(t, s.Delete(ctx, "a/b.csv"))
	_, err = s.Download(ctx, "a/b.csv")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
