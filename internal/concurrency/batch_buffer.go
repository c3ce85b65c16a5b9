// File: internal/concurrency/batch_buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// BatchBuffer is a fixed-capacity batch handoff between any number of
// producers and a single consumer. One mutex serializes every access to the
// values; the consumer parks on a condition variable until the buffer is
// full, drains it as one batch and resets the length.

package concurrency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/cpu"

	"github.com/momentics/batchsync/api"
)

// Ensure compile-time interface compliance.
var (
	_ api.Producer = (*BatchBuffer)(nil)
	_ api.Drainer  = (*BatchBuffer)(nil)
)

// BufferStats is a point-in-time view of buffer counters.
type BufferStats struct {
	Len      int    `json:"len" yaml:"len"`
	Cap      int    `json:"cap" yaml:"cap"`
	Pushed   uint64 `json:"pushed" yaml:"pushed"`     // values accepted (buffer or backlog)
	Drained  uint64 `json:"drained" yaml:"drained"`   // batches handed to the consumer
	Dropped  uint64 `json:"dropped" yaml:"dropped"`   // OverflowDrop
	Rejected uint64 `json:"rejected" yaml:"rejected"` // OverflowReject
	Backlog  int    `json:"backlog" yaml:"backlog"`   // OverflowSpill queue length
	Policy   string `json:"policy" yaml:"policy"`
	Closed   bool   `json:"closed" yaml:"closed"`
}

// bufferCounters are read lock-free by Stats while producers run.
type bufferCounters struct {
	pushed   atomic.Uint64
	_        cpu.CacheLinePad
	drained  atomic.Uint64
	_        cpu.CacheLinePad
	dropped  atomic.Uint64
	rejected atomic.Uint64
}

// BatchBuffer couples the shared values with their lock and condition
// variables. It is created before any goroutine touches it and must not be
// reused across unrelated producer/consumer pairs.
type BatchBuffer struct {
	mu    sync.Mutex
	full  *sync.Cond // consumer waits for n == len(values)
	space *sync.Cond // OverflowBlock producers wait for a drain

	values      []int64
	n           int
	seq         uint64
	writeClosed bool
	closed      bool

	policy  OverflowPolicy
	spill   *backlog
	onFull  func(seq uint64)
	logger  *slog.Logger
	counter bufferCounters
}

// BufferOption customizes BatchBuffer construction.
type BufferOption func(*BatchBuffer)

// WithOverflowPolicy selects the push-when-full behavior.
func WithOverflowPolicy(p OverflowPolicy) BufferOption {
	return func(b *BatchBuffer) {
		b.policy = p
	}
}

// WithBufferLogger sets the logger used for overflow diagnostics.
func WithBufferLogger(l *slog.Logger) BufferOption {
	return func(b *BatchBuffer) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithFullHook sets fn to run, under the buffer lock, each time a batch
// fills. seq is the sequence number the batch will carry. fn must not
// block or touch the buffer.
func WithFullHook(fn func(seq uint64)) BufferOption {
	return func(b *BatchBuffer) {
		b.onFull = fn
	}
}

// NewBatchBuffer allocates a buffer holding batches of exactly capacity
// values. A non-positive capacity is a fatal initialization error.
func NewBatchBuffer(capacity int, opts ...BufferOption) (*BatchBuffer, error) {
	if capacity <= 0 {
		return nil, api.NewError(api.ErrCodeInitFailed, "batch buffer init").
			Wrap(fmt.Errorf("%w: capacity %d", api.ErrInvalidArgument, capacity)).
			WithContext("capacity", capacity)
	}
	b := &BatchBuffer{
		values: make([]int64, capacity),
		logger: slog.Default(),
	}
	b.full = sync.NewCond(&b.mu)
	b.space = sync.NewCond(&b.mu)
	for _, opt := range opts {
		opt(b)
	}
	switch b.policy {
	case OverflowReject, OverflowBlock, OverflowDrop:
	case OverflowSpill:
		b.spill = newBacklog()
	default:
		return nil, api.NewError(api.ErrCodeInitFailed, "batch buffer init").
			Wrap(fmt.Errorf("%w: overflow policy %v", api.ErrInvalidArgument, b.policy))
	}
	b.logger = b.logger.With(slog.String("component", "batchbuffer"))
	return b, nil
}

// Push appends v without a deadline.
func (b *BatchBuffer) Push(v int64) error {
	return b.PushContext(context.Background(), v)
}

// PushContext appends v. When the append completes a batch the consumer is
// signaled. ctx only matters for OverflowBlock, where it bounds the wait.
func (b *BatchBuffer) PushContext(ctx context.Context, v int64) error {
	if b.policy == OverflowBlock && ctx.Done() != nil {
		stop := context.AfterFunc(ctx, b.wakeAll)
		defer stop()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.writeClosed {
		return api.ErrClosed
	}

	for b.n == len(b.values) {
		switch b.policy {
		case OverflowReject:
			b.counter.rejected.Add(1)
			b.logger.Debug("push rejected", slog.Int64("value", v), slog.Uint64("seq", b.seq))
			return api.ErrBufferFull
		case OverflowDrop:
			b.counter.dropped.Add(1)
			b.logger.Debug("push dropped", slog.Int64("value", v), slog.Uint64("seq", b.seq))
			return nil
		case OverflowSpill:
			b.spill.push(v)
			b.counter.pushed.Add(1)
			return nil
		case OverflowBlock:
			if err := ctx.Err(); err != nil {
				return err
			}
			b.space.Wait()
			if b.closed || b.writeClosed {
				return api.ErrClosed
			}
		}
	}

	b.appendLocked(v)
	b.counter.pushed.Add(1)
	return nil
}

// appendLocked stores v and signals the consumer on a full batch.
func (b *BatchBuffer) appendLocked(v int64) {
	if b.n >= len(b.values) {
		panic("concurrency: append to full batch buffer")
	}
	b.values[b.n] = v
	b.n++
	if b.n == len(b.values) {
		b.notifyFullLocked()
		b.full.Signal()
	}
}

func (b *BatchBuffer) notifyFullLocked() {
	if b.onFull != nil {
		b.onFull(b.seq + 1)
	}
}

// WaitFull blocks until the buffer holds a full batch and drains it.
//
// The wait re-checks the predicate after every wake-up, so spurious or
// stale wake-ups are harmless. On a ctx deadline the error wraps both
// api.ErrWaitTimeout and context.DeadlineExceeded; on cancellation it is
// ctx.Err(). After CloseWrite the remaining values, if any, are returned
// once as a Partial batch; afterwards WaitFull returns api.ErrClosed. After
// Close it returns api.ErrClosed even when a full batch is buffered.
func (b *BatchBuffer) WaitFull(ctx context.Context) (api.Batch, error) {
	stop := context.AfterFunc(ctx, b.wakeAll)
	defer stop()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return api.Batch{}, api.ErrClosed
	}
	for b.n < len(b.values) {
		if b.closed {
			return api.Batch{}, api.ErrClosed
		}
		if b.writeClosed {
			if b.n > 0 {
				batch := b.drainLocked()
				batch.Partial = true
				return batch, nil
			}
			return api.Batch{}, api.ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return api.Batch{}, waitError(err)
		}
		b.full.Wait()
	}
	return b.drainLocked(), nil
}

// WaitFullTimeout is WaitFull bounded by a relative deadline.
func (b *BatchBuffer) WaitFullTimeout(d time.Duration) (api.Batch, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return b.WaitFull(ctx)
}

// drainLocked copies the batch out, resets the length and refills from the
// spill backlog in FIFO order.
func (b *BatchBuffer) drainLocked() api.Batch {
	out := make([]int64, b.n)
	copy(out, b.values[:b.n])
	b.n = 0
	b.seq++
	b.counter.drained.Add(1)

	for b.n < len(b.values) {
		v, ok := b.spill.pop()
		if !ok {
			break
		}
		b.values[b.n] = v
		b.n++
	}
	if b.n == len(b.values) {
		b.notifyFullLocked()
	}
	b.space.Broadcast()
	return api.Batch{Seq: b.seq, Values: out}
}

// wakeAll wakes every waiter so it can re-check its predicate and context.
func (b *BatchBuffer) wakeAll() {
	b.mu.Lock()
	b.full.Broadcast()
	b.space.Broadcast()
	b.mu.Unlock()
}

// CloseWrite stops accepting values. The consumer still receives the
// remaining full batches and a final partial one.
func (b *BatchBuffer) CloseWrite() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeClosed {
		return nil
	}
	b.writeClosed = true
	b.full.Broadcast()
	b.space.Broadcast()
	return nil
}

// Close shuts both sides down immediately. Values still buffered are
// discarded. Calling Close more than once is a no-op.
func (b *BatchBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.writeClosed = true
	b.full.Broadcast()
	b.space.Broadcast()
	return nil
}

// Len returns the number of values waiting for the next drain.
func (b *BatchBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

// Cap returns the fixed batch size.
func (b *BatchBuffer) Cap() int {
	return len(b.values)
}

// Policy returns the overflow policy.
func (b *BatchBuffer) Policy() OverflowPolicy {
	return b.policy
}

// Stats returns a snapshot of buffer counters.
func (b *BatchBuffer) Stats() BufferStats {
	b.mu.Lock()
	n, backlogLen, closed := b.n, b.spill.len(), b.closed
	b.mu.Unlock()
	return BufferStats{
		Len:      n,
		Cap:      len(b.values),
		Pushed:   b.counter.pushed.Load(),
		Drained:  b.counter.drained.Load(),
		Dropped:  b.counter.dropped.Load(),
		Rejected: b.counter.rejected.Load(),
		Backlog:  backlogLen,
		Policy:   b.policy.String(),
		Closed:   closed,
	}
}

func waitError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", api.ErrWaitTimeout, err)
	}
	return err
}
