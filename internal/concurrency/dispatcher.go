// File: internal/concurrency/dispatcher.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dispatcher fans consumer results out to registered handlers from its own
// goroutine, so slow sinks never hold the batch buffer's consumer. Results
// are delivered in posting order, in batches of up to batchSize.
//
// Handler list updates are copy-on-write under a mutex; the run loop reads
// a snapshot per batch.

package concurrency

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/momentics/batchsync/api"
)

// ResultHandler consumes dispatched results.
type ResultHandler interface {
	HandleResult(r api.Result)
}

// ResultHandlerFunc adapts a function to ResultHandler.
type ResultHandlerFunc func(r api.Result)

// HandleResult calls f(r).
func (f ResultHandlerFunc) HandleResult(r api.Result) { f(r) }

// Dispatcher delivers results to handlers in order.
type Dispatcher struct {
	handlers   atomic.Value // []ResultHandler
	handlersMu sync.Mutex
	inbox      chan api.Result
	batchSize  int
	quitCh     chan struct{}
	doneCh     chan struct{}
	quitOnce   sync.Once
	running    atomic.Bool
	delivered  atomic.Uint64
	logger     *slog.Logger
}

// NewDispatcher creates a dispatcher with an inbox of queueSize results.
func NewDispatcher(batchSize, queueSize int, logger *slog.Logger) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 16
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		inbox:     make(chan api.Result, queueSize),
		batchSize: batchSize,
		quitCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		logger:    logger.With(slog.String("component", "dispatcher")),
	}
	d.handlers.Store([]ResultHandler{})
	return d
}

// RegisterHandler appends h to the handler list.
func (d *Dispatcher) RegisterHandler(h ResultHandler) {
	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()
	old := d.handlers.Load().([]ResultHandler)
	next := make([]ResultHandler, len(old)+1)
	copy(next, old)
	next[len(old)] = h
	d.handlers.Store(next)
}

// Post enqueues r, blocking while the inbox is full. It fails with
// api.ErrClosed after Stop and with ctx.Err() when ctx ends first.
func (d *Dispatcher) Post(ctx context.Context, r api.Result) error {
	select {
	case <-d.quitCh:
		return api.ErrClosed
	default:
	}
	select {
	case d.inbox <- r:
		return nil
	case <-d.quitCh:
		return api.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPost enqueues r without blocking; false if the inbox is full or the
// dispatcher is stopped.
func (d *Dispatcher) TryPost(r api.Result) bool {
	select {
	case <-d.quitCh:
		return false
	default:
	}
	select {
	case d.inbox <- r:
		return true
	default:
		return false
	}
}

// Start runs the delivery loop in a new goroutine.
func (d *Dispatcher) Start() {
	if d.running.CompareAndSwap(false, true) {
		go d.loop()
	}
}

// Run delivers results in the calling goroutine until Stop. Results still
// queued at Stop are delivered before Run returns.
func (d *Dispatcher) Run() {
	if d.running.CompareAndSwap(false, true) {
		d.loop()
	}
}

func (d *Dispatcher) loop() {
	defer close(d.doneCh)

	batch := make([]api.Result, 0, d.batchSize)
	for {
		batch = batch[:0]
		select {
		case r := <-d.inbox:
			batch = append(batch, r)
		case <-d.quitCh:
			d.drainRemaining(batch)
			return
		}
	drain:
		for len(batch) < d.batchSize {
			select {
			case r := <-d.inbox:
				batch = append(batch, r)
			default:
				break drain
			}
		}
		d.deliver(batch)
	}
}

func (d *Dispatcher) drainRemaining(batch []api.Result) {
	for {
		select {
		case r := <-d.inbox:
			batch = append(batch, r)
			if len(batch) == d.batchSize {
				d.deliver(batch)
				batch = batch[:0]
			}
		default:
			d.deliver(batch)
			return
		}
	}
}

func (d *Dispatcher) deliver(batch []api.Result) {
	if len(batch) == 0 {
		return
	}
	handlers := d.handlers.Load().([]ResultHandler)
	for _, r := range batch {
		for _, h := range handlers {
			h.HandleResult(r)
		}
	}
	d.delivered.Add(uint64(len(batch)))
	d.logger.Debug("results delivered", slog.Int("count", len(batch)))
}

// Pending returns the number of queued results.
func (d *Dispatcher) Pending() int {
	return len(d.inbox)
}

// Delivered returns the number of results handed to handlers so far.
func (d *Dispatcher) Delivered() uint64 {
	return d.delivered.Load()
}

// Stop signals Run to flush and exit, and waits for it if it was started.
func (d *Dispatcher) Stop() {
	d.quitOnce.Do(func() { close(d.quitCh) })
	if d.running.Load() {
		<-d.doneCh
	}
}
