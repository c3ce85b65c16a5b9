// File: internal/concurrency/task_local.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "context"

type taskLocalKey struct {
	name string
}

// TaskLocal is a per-task variable carried in a context.Context. Values set
// for one task are never visible to a sibling task.
type TaskLocal[T any] struct {
	key *taskLocalKey
}

// NewTaskLocal creates a distinct task-local variable.
func NewTaskLocal[T any](name string) *TaskLocal[T] {
	return &TaskLocal[T]{key: &taskLocalKey{name: name}}
}

// With returns a child of ctx in which the variable holds v.
func (l *TaskLocal[T]) With(ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, l.key, v)
}

// Get returns the task's value, if set.
func (l *TaskLocal[T]) Get(ctx context.Context) (T, bool) {
	v, ok := ctx.Value(l.key).(T)
	return v, ok
}

// GetOr returns the task's value or def.
func (l *TaskLocal[T]) GetOr(ctx context.Context, def T) T {
	if v, ok := l.Get(ctx); ok {
		return v
	}
	return def
}

// Name returns the variable name.
func (l *TaskLocal[T]) Name() string {
	return l.key.name
}
