// File: internal/concurrency/turnstile.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Turnstile lets goroutines run strictly in ticket order. Every advance
// broadcasts to all waiters; each one re-checks whether its ticket is up.

package concurrency

import (
	"context"
	"log/slog"
	"sync"
)

// Turnstile serves tickets in increasing order starting at a base ticket.
type Turnstile struct {
	mu      sync.Mutex
	cond    *sync.Cond
	current int
	wakeups uint64 // wake-ups that found another ticket up
	logger  *slog.Logger
}

// NewTurnstile creates a turnstile whose first served ticket is start.
func NewTurnstile(start int, logger *slog.Logger) *Turnstile {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Turnstile{
		current: start,
		logger:  logger.With(slog.String("component", "turnstile")),
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Wait blocks until ticket is being served or ctx ends.
func (t *Turnstile) Wait(ctx context.Context, ticket int) error {
	stop := context.AfterFunc(ctx, func() {
		t.mu.Lock()
		t.cond.Broadcast()
		t.mu.Unlock()
	})
	defer stop()

	t.mu.Lock()
	defer t.mu.Unlock()
	for t.current != ticket {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.logger.Debug("waiting", slog.Int("ticket", ticket), slog.Int("current", t.current))
		t.cond.Wait()
		if t.current != ticket {
			t.wakeups++
			t.logger.Debug("woke up, not my turn", slog.Int("ticket", ticket))
		}
	}
	return nil
}

// Advance serves the next ticket and wakes every waiter. It returns the
// ticket now being served.
func (t *Turnstile) Advance() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current++
	t.cond.Broadcast()
	return t.current
}

// Enter waits for ticket, runs fn and advances to the next ticket.
func (t *Turnstile) Enter(ctx context.Context, ticket int, fn func()) error {
	if err := t.Wait(ctx, ticket); err != nil {
		return err
	}
	defer t.Advance()
	fn()
	return nil
}

// Current returns the ticket being served.
func (t *Turnstile) Current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// StaleWakeups counts wake-ups where the woken goroutine was not next.
func (t *Turnstile) StaleWakeups() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wakeups
}
