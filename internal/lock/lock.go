package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gradebook-engine/pkg/errors"
)

// Locker serializes work on a key. Lock blocks until the key is free, ctx
// is done, or the locker's wait timeout expires; the returned func releases
// the key and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// ClassKey is the lock key guarding a class's spreadsheet.
func ClassKey(classID int64) string {
	return fmt.Sprintf("gradebook:lock:class:%d", classID)
}

// MemoryLocker is a keyed mutex for a single process.
type MemoryLocker struct {
	mu      sync.Mutex
	held    map[string]chan struct{}
	timeout time.Duration
}

func NewMemoryLocker(waitTimeout time.Duration) *MemoryLocker {
	return &MemoryLocker{
		held:    make(map[string]chan struct{}),
		timeout: waitTimeout,
	}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	for {
		l.mu.Lock()
		released, busy := l.held[key]
		if !busy {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()
			return l.release(key, done), nil
		}
		l.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return nil, waitError(ctx, key)
		}
	}
}

func (l *MemoryLocker) release(key string, done chan struct{}) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			if l.held[key] == done {
				delete(l.held, key)
			}
			l.mu.Unlock()
			close(done)
		})
	}
}

func waitError(ctx context.Context, key string) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: %s", errors.ErrLockTimeout, key)
	}
	return ctx.Err()
}
