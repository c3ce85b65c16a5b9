// File: internal/concurrency/timed_mutex.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TimedMutex is a mutex whose acquisition can be bounded by a deadline.

package concurrency

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// TimedMutex is a mutex on a weight-1 semaphore. The zero value is
// unlocked and ready to use.
type TimedMutex struct {
	once sync.Once
	sem  *semaphore.Weighted
}

func (m *TimedMutex) init() {
	m.once.Do(func() {
		m.sem = semaphore.NewWeighted(1)
	})
}

// Lock blocks until the mutex is acquired.
func (m *TimedMutex) Lock() {
	m.init()
	// a background context never ends, so Acquire cannot fail
	_ = m.sem.Acquire(context.Background(), 1)
}

// TryLock acquires the mutex only if it is free.
func (m *TimedMutex) TryLock() bool {
	m.init()
	return m.sem.TryAcquire(1)
}

// LockContext acquires the mutex or gives up when ctx ends. An expired
// deadline is reported as api.ErrWaitTimeout.
func (m *TimedMutex) LockContext(ctx context.Context) error {
	m.init()
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return waitError(err)
	}
	return nil
}

// LockTimeout acquires the mutex within d.
func (m *TimedMutex) LockTimeout(d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return m.LockContext(ctx)
}

// Unlock releases the mutex. Unlocking an unlocked mutex panics.
func (m *TimedMutex) Unlock() {
	m.init()
	m.sem.Release(1)
}
