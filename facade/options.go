// File: facade/options.go
// Package facade defines functional options for the Pipeline facade.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package facade

import (
	"log/slog"

	"github.com/momentics/batchsync/api"
	"github.com/momentics/batchsync/internal/concurrency"
)

// Option customizes pipeline initialization.
type Option func(*Pipeline)

// WithLogger sets the base logger. Its handler should accept debug records;
// the pipeline applies its own runtime level on top.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.baseLogger = l
		}
	}
}

// WithSink adds a result sink. Sinks are closed by Stop.
func WithSink(s api.ResultSink) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.sinks = append(p.sinks, s)
		}
	}
}

// WithResultHandler registers fn on the dispatcher in FIFO order.
func WithResultHandler(fn func(api.Result)) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.handlers = append(p.handlers, concurrency.ResultHandlerFunc(fn))
		}
	}
}

// WithOnDrain registers fn to run on the consumer goroutine right after a
// batch is reduced, before dispatch. fn must not block.
func WithOnDrain(fn func(api.Result)) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.onDrain = append(p.onDrain, fn)
		}
	}
}

// WithReducer overrides Config.Reducer with a custom reduction.
func WithReducer(r concurrency.Reducer) Option {
	return func(p *Pipeline) {
		p.reducer = r
	}
}

// WithOnFull registers fn to run each time a batch fills, on the producer
// goroutine and under the buffer lock. fn must not block or push.
func WithOnFull(fn func(seq uint64)) Option {
	return func(p *Pipeline) {
		p.onFull = fn
	}
}
