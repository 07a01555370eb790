package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradebook-engine/pkg/errors"
)

func TestMemoryLockerSerializes(t *testing.T) {
	l := NewMemoryLocker(time.Second)
	key := ClassKey(1)

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak)
}

func TestMemoryLockerTimeout(t *testing.T) {
	l := NewMemoryLocker(20 * time.Millisecond)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	_, err = l.Lock(context.Background(), "k")
	assert.True(t, errors.Is(err, errors.ErrLockTimeout))

	// other keys are independent
	other, err := l.Lock(context.Background(), "other")
	require.NoError(t, err)
	other()

	unlock()
	unlock()

	again, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	again()
}

func TestMemoryLockerCancelled(t *testing.T) {
	l := NewMemoryLocker(0)
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassKey(t *testing.T) {
	assert.Equal(t, "gradebook:lock:class:42", ClassKey(42))
}
