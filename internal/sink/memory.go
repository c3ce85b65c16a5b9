// File: internal/sink/memory.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sink

import (
	"context"
	"slices"
	"sync"

	"github.com/momentics/batchsync/api"
)

var _ api.ResultSink = (*MemorySink)(nil)

// MemorySink stores results in a slice.
type MemorySink struct {
	mu      sync.Mutex
	results []api.Result
	closed  bool
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write appends a copy of r.
func (m *MemorySink) Write(ctx context.Context, r api.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.Values = slices.Clone(r.Values)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return api.ErrClosed
	}
	m.results = append(m.results, r)
	return nil
}

// List returns the stored results for pipeline in write order. An empty
// pipeline name returns everything.
func (m *MemorySink) List(ctx context.Context, pipeline string) ([]api.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]api.Result, 0, len(m.results))
	for _, r := range m.results {
		if pipeline == "" || r.Pipeline == pipeline {
			out = append(out, r)
		}
	}
	return out, nil
}

// Close rejects further writes. Stored results remain listable.
func (m *MemorySink) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
