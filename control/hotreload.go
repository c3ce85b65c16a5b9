// control/hotreload.go
// Manages hot-reload hooks for config changes.
// TriggerSync is used by ConfigStore for deterministic notification.

package control

import (
	"log/slog"
	"sync"
)

// Reloader is an ordered list of reload hooks.
type Reloader struct {
	mu    sync.Mutex
	hooks []func()
}

// NewReloader creates an empty hook list.
func NewReloader() *Reloader {
	return &Reloader{}
}

// Register adds a new component reload listener.
func (r *Reloader) Register(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, fn)
}

func (r *Reloader) snapshot() []func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]func(){}, r.hooks...)
}

// Trigger dispatches all reload hooks asynchronously.
func (r *Reloader) Trigger() {
	for _, fn := range r.snapshot() {
		go r.run(fn)
	}
}

// TriggerSync invokes all reload hooks in registration order.
func (r *Reloader) TriggerSync() {
	for _, fn := range r.snapshot() {
		r.run(fn)
	}
}

// run shields the caller from a panicking hook.
func (r *Reloader) run(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("reload hook panicked", slog.Any("panic", p))
		}
	}()
	fn()
}
