package concurrency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/batchsync/api"
)

func TestTimedMutex_TryLock(t *testing.T) {
	t.Parallel()

	var m TimedMutex
	require.True(t, m.TryLock())
	assert.False(t, m.TryLock())
	m.Unlock()
	assert.True(t, m.TryLock())
	m.Unlock()
}

func TestTimedMutex_LockTimeout(t *testing.T) {
	t.Parallel()

	var m TimedMutex
	m.Lock()

	start := time.Now()
	err := m.LockTimeout(30 * time.Millisecond)
	require.ErrorIs(t, err, api.ErrWaitTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	m.Unlock()
	require.NoError(t, m.LockTimeout(30*time.Millisecond))
	m.Unlock()
}

func TestTimedMutex_LockContextCancelled(t *testing.T) {
	t.Parallel()

	var m TimedMutex
	m.Lock()
	defer m.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.LockContext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, api.ErrWaitTimeout)
}

func TestTimedMutex_SerializesAccess(t *testing.T) {
	t.Parallel()

	var (
		m       TimedMutex
		counter int
		wg      sync.WaitGroup
	)
	const n = 100
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			m.Lock()
			defer m.Unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, n, counter)
}

func TestTimedMutex_UnlockUnlockedPanics(t *testing.T) {
	t.Parallel()

	var m TimedMutex
	assert.Panics(t, func() { m.Unlock() })
}

func TestTimedMutex_TimeoutLeavesLockUsable(t *testing.T) {
	t.Parallel()

	var m TimedMutex
	m.Lock()
	require.ErrorIs(t, m.LockTimeout(20*time.Millisecond), context.DeadlineExceeded)

	// the expired waiter must not hold a share of the lock
	m.Unlock()
	require.True(t, m.TryLock())
	assert.Panics(t, func() {
		m.Unlock()
		m.Unlock()
	})
}
