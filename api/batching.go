// Package api
// Author: momentics@gmail.com
//
// Batch handoff contracts shared by buffers, consumers and sinks.

package api

import (
	"context"
	"fmt"
	"time"
)

// Batch is one full drain of a batch buffer, copied out under the lock.
type Batch struct {
	Seq    uint64  // 1-based drain sequence number
	Values []int64 // exactly Cap values unless Partial
	// Partial marks the short final batch handed out after CloseWrite.
	Partial bool
}

// Len returns the number of values in the batch.
func (b Batch) Len() int {
	return len(b.Values)
}

// Outcome tells whether a consumer wait produced a batch.
type Outcome int

const (
	OutcomeSignaled Outcome = iota
	OutcomeTimeout
)

func (o Outcome) String() string {
	if o == OutcomeTimeout {
		return "timeout"
	}
	return "signaled"
}

// MarshalText encodes the outcome by name for journals and CLI output.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses "signaled" or "timeout".
func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "signaled":
		*o = OutcomeSignaled
	case "timeout":
		*o = OutcomeTimeout
	default:
		return fmt.Errorf("%w: outcome %q", ErrInvalidArgument, b)
	}
	return nil
}

// Result is what the consumer reports for every wait cycle.
type Result struct {
	Pipeline  string    `msgpack:"pipeline" json:"pipeline" yaml:"pipeline"`
	Run       string    `msgpack:"run" json:"run,omitempty" yaml:"run,omitempty"` // pipeline instance ID
	Seq       uint64    `msgpack:"seq" json:"seq" yaml:"seq"`
	Values    []int64   `msgpack:"values" json:"values" yaml:"values"`
	Sum       int64     `msgpack:"sum" json:"sum" yaml:"sum"`
	Partial   bool      `msgpack:"partial" json:"partial,omitempty" yaml:"partial,omitempty"`
	Outcome   Outcome   `msgpack:"outcome" json:"outcome" yaml:"outcome"`
	DrainedAt time.Time `msgpack:"drained_at" json:"drained_at" yaml:"drained_at"`
}

// Producer appends values to a shared batch buffer.
type Producer interface {
	// Push appends v. The behavior when the buffer is full depends on the
	// buffer's overflow policy.
	Push(v int64) error
	// PushContext is Push bounded by ctx for policies that may block.
	PushContext(ctx context.Context, v int64) error
}

// Drainer hands full batches to a single consumer.
type Drainer interface {
	// WaitFull blocks until the buffer is full, then drains it.
	WaitFull(ctx context.Context) (Batch, error)
	Len() int
	Cap() int
}

// BufferView is the read-only side of a batch buffer.
type BufferView interface {
	Len() int
	Cap() int
}

// ResultSink records consumer results.
type ResultSink interface {
	Write(ctx context.Context, r Result) error
	Close() error
}

// ResultHandler is invoked by the consumer for every result, in order.
type ResultHandler func(r Result)
