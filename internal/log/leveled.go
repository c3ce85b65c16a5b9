// File: internal/log/leveled.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package log

import (
	"context"
	"log/slog"
)

// LeveledHandler gates an inner handler with a level that can change at
// runtime. The inner handler should be configured at its lowest level.
type LeveledHandler struct {
	inner slog.Handler
	level *slog.LevelVar
}

// NewLeveled wraps h. A nil lv starts at info.
func NewLeveled(h slog.Handler, lv *slog.LevelVar) *LeveledHandler {
	if lv == nil {
		lv = new(slog.LevelVar)
	}
	return &LeveledHandler{inner: h, level: lv}
}

// Level exposes the variable for hot reload.
func (h *LeveledHandler) Level() *slog.LevelVar {
	return h.level
}

func (h *LeveledHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level.Level() && h.inner.Enabled(ctx, l)
}

func (h *LeveledHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *LeveledHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LeveledHandler{inner: h.inner.WithAttrs(attrs), level: h.level}
}

func (h *LeveledHandler) WithGroup(name string) slog.Handler {
	return &LeveledHandler{inner: h.inner.WithGroup(name), level: h.level}
}
