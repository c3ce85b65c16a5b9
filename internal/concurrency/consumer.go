// File: internal/concurrency/consumer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Consumer is the background worker of a BatchBuffer: it waits for a full
// batch, reduces it, reports the result and loops until stopped.

package concurrency

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/batchsync/api"
)

// Consumer drains one BatchBuffer in a dedicated goroutine.
type Consumer struct {
	buf     *BatchBuffer
	handler api.ResultHandler
	reduce  Reducer
	name    string
	run     string
	logger  *slog.Logger

	waitTimeout   time.Duration // per-wait deadline, 0 waits forever
	stopOnTimeout bool

	cancel  context.CancelFunc
	doneCh  chan struct{}
	running atomic.Bool
	mu      sync.Mutex // guards cancel, doneCh, err
	err     error
	now     func() time.Time
}

// ConsumerOption customizes a Consumer.
type ConsumerOption func(*Consumer)

// WithReducer replaces the default Sum reduction.
func WithReducer(r Reducer) ConsumerOption {
	return func(c *Consumer) {
		if r != nil {
			c.reduce = r
		}
	}
}

// WithWaitTimeout bounds every wait for a full batch. An expired wait is
// reported as an OutcomeTimeout result.
func WithWaitTimeout(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.waitTimeout = d
	}
}

// WithStopOnTimeout makes the consumer exit after the first timed-out wait.
func WithStopOnTimeout() ConsumerOption {
	return func(c *Consumer) {
		c.stopOnTimeout = true
	}
}

// WithConsumerName tags results and log lines with a pipeline name.
func WithConsumerName(name string) ConsumerOption {
	return func(c *Consumer) {
		c.name = name
	}
}

// WithRunID tags results with the ID of the pipeline instance, so journals
// can tell runs of the same pipeline apart.
func WithRunID(id string) ConsumerOption {
	return func(c *Consumer) {
		c.run = id
	}
}

// WithConsumerLogger sets the consumer logger.
func WithConsumerLogger(l *slog.Logger) ConsumerOption {
	return func(c *Consumer) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewConsumer binds a consumer to buf. handler may be nil.
func NewConsumer(buf *BatchBuffer, handler api.ResultHandler, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		buf:     buf,
		handler: handler,
		reduce:  Sum,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "consumer"))
	if c.name != "" {
		c.logger = c.logger.With(slog.String("pipeline", c.name))
	}
	return c
}

// Start launches the consume loop. Starting a running consumer fails with
// api.ErrAlreadyExists.
func (c *Consumer) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return api.ErrAlreadyExists
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.doneCh = done
	c.err = nil
	c.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			c.running.Store(false)
			close(done)
		}()
		err := c.Run(runCtx)
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
	}()
	return nil
}

// Run executes the consume loop in the calling goroutine. It returns nil
// when the buffer is closed, ctx.Err() when ctx ends, and the wait error
// when WithStopOnTimeout is set and a wait expires.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Debug("consumer started", slog.Int("capacity", c.buf.Cap()))
	for {
		waitCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.waitTimeout > 0 {
			waitCtx, cancel = context.WithTimeout(ctx, c.waitTimeout)
		}
		c.logger.Debug("consumer waiting")
		batch, err := c.buf.WaitFull(waitCtx)
		cancel()

		switch {
		case err == nil:
			c.emit(api.Result{
				Pipeline:  c.name,
				Run:       c.run,
				Seq:       batch.Seq,
				Values:    batch.Values,
				Sum:       c.reduce(batch.Values),
				Partial:   batch.Partial,
				Outcome:   api.OutcomeSignaled,
				DrainedAt: c.now(),
			})
		case errors.Is(err, api.ErrWaitTimeout) && ctx.Err() == nil:
			c.logger.Info("consumer wait timed out", slog.Duration("timeout", c.waitTimeout))
			c.emit(api.Result{
				Pipeline:  c.name,
				Run:       c.run,
				Outcome:   api.OutcomeTimeout,
				DrainedAt: c.now(),
			})
			if c.stopOnTimeout {
				return err
			}
		case errors.Is(err, api.ErrClosed):
			c.logger.Debug("buffer closed, consumer exiting")
			return nil
		default:
			return err
		}
	}
}

func (c *Consumer) emit(r api.Result) {
	if r.Outcome == api.OutcomeSignaled {
		c.logger.Debug("batch drained",
			slog.Uint64("seq", r.Seq),
			slog.Int("size", len(r.Values)),
			slog.Int64("sum", r.Sum))
	}
	if c.handler != nil {
		c.handler(r)
	}
}

// Stop cancels the loop and waits for it to exit. Cancellation itself is
// not reported as an error.
func (c *Consumer) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.doneCh
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return c.Err()
}

// Wait blocks until the loop exits on its own (buffer closed, timeout with
// WithStopOnTimeout, parent context done) and returns its error.
func (c *Consumer) Wait() error {
	c.mu.Lock()
	done := c.doneCh
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	return c.Err()
}

// Done returns a channel closed when the loop exits; nil before Start.
func (c *Consumer) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doneCh
}

// Err returns the loop's terminal error, ignoring context.Canceled.
func (c *Consumer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if errors.Is(c.err, context.Canceled) {
		return nil
	}
	return c.err
}

// Running reports whether the loop goroutine is alive.
func (c *Consumer) Running() bool {
	return c.running.Load()
}
