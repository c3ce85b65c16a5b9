// File: facade/pipeline.go
// Unified facade over one batch buffer and its consumer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Pipeline owns a BatchBuffer, the Consumer draining it, a Dispatcher
// fanning results out to sinks and handlers, and a Control surface with
// config, metrics and debug probes. Producers call Push from any goroutine.

package facade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/momentics/batchsync/adapters"
	"github.com/momentics/batchsync/api"
	"github.com/momentics/batchsync/internal/concurrency"
	"github.com/momentics/batchsync/internal/log"
	"github.com/momentics/batchsync/internal/sink"
)

// Metric keys published through Control.
const (
	MetricBufferLen      = "buffer.len"
	MetricBatchesDrained = "batches.drained"
	MetricValuesPushed   = "values.pushed"
	MetricValuesDropped  = "values.dropped"
	MetricValuesRejected = "values.rejected"
	MetricLastSum        = "batch.last_sum"
	MetricTimeouts       = "waits.timed_out"
	MetricResultsLost    = "results.lost"
	MetricSinkErrors     = "sink.errors"

	ConfigLogLevel = "log.level"
)

var pipelineName = concurrency.NewTaskLocal[string]("pipeline")

// PipelineName returns the pipeline name carried by ctx, as seen by sinks
// and handlers running on the pipeline's behalf.
func PipelineName(ctx context.Context) (string, bool) {
	return pipelineName.Get(ctx)
}

// Pipeline is the main facade type. It implements api.GracefulShutdown.
type Pipeline struct {
	id   string
	cfg  Config
	ctrl *adapters.ControlAdapter

	buf        *concurrency.BatchBuffer
	consumer   *concurrency.Consumer
	dispatcher *concurrency.Dispatcher
	results    chan api.Result

	sinks    []api.ResultSink
	handlers []concurrency.ResultHandler
	onDrain  []func(api.Result)
	onFull   func(seq uint64)
	reducer  concurrency.Reducer

	baseLogger *slog.Logger
	level      *slog.LevelVar
	logger     *slog.Logger

	ctx     context.Context
	mu      sync.Mutex // guards started, stopped
	started bool
	stopped bool
}

var (
	_ api.GracefulShutdown = (*Pipeline)(nil)
	_ api.Producer         = (*Pipeline)(nil)
)

// New constructs a pipeline. A nil cfg means DefaultConfig. Construction
// failures are api.Error values with ErrCodeInitFailed.
func New(cfg *Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, api.NewError(api.ErrCodeInitFailed, "pipeline config").Wrap(err)
	}

	// v7 IDs sort by creation time, which keeps journal runs in order.
	id, err := uuid.NewV7()
	if err != nil {
		return nil, api.NewError(api.ErrCodeInitFailed, "pipeline id").Wrap(err)
	}
	p := &Pipeline{
		id:         id.String(),
		cfg:        *cfg,
		baseLogger: slog.Default(),
		level:      new(slog.LevelVar),
	}
	for _, opt := range opts {
		opt(p)
	}
	lvl, _ := log.SlogLevel(cfg.LogLevel)
	p.level.Set(lvl)
	p.logger = slog.New(log.NewLeveled(p.baseLogger.Handler(), p.level)).With(
		slog.String("pipeline", cfg.Name),
		slog.String("id", p.id),
	)

	if p.reducer == nil {
		p.reducer, _ = concurrency.ReducerByName(cfg.Reducer)
	}
	policy, _ := concurrency.ParseOverflowPolicy(cfg.Policy)

	if err := p.openJournal(); err != nil {
		return nil, err
	}

	bufOpts := []concurrency.BufferOption{
		concurrency.WithOverflowPolicy(policy),
		concurrency.WithBufferLogger(p.logger),
	}
	if p.onFull != nil {
		bufOpts = append(bufOpts, concurrency.WithFullHook(p.onFull))
	}
	buf, err := concurrency.NewBatchBuffer(cfg.Capacity, bufOpts...)
	if err != nil {
		p.closeSinks()
		return nil, err
	}
	p.buf = buf

	consumerOpts := []concurrency.ConsumerOption{
		concurrency.WithReducer(p.reducer),
		concurrency.WithConsumerName(cfg.Name),
		concurrency.WithRunID(p.id),
		concurrency.WithConsumerLogger(p.logger),
	}
	if cfg.WaitTimeout > 0 {
		consumerOpts = append(consumerOpts, concurrency.WithWaitTimeout(cfg.WaitTimeout))
	}
	if cfg.StopOnTimeout {
		consumerOpts = append(consumerOpts, concurrency.WithStopOnTimeout())
	}
	p.consumer = concurrency.NewConsumer(buf, p.handleResult, consumerOpts...)

	p.results = make(chan api.Result, max(cfg.DispatchQueue, 1))
	p.dispatcher = concurrency.NewDispatcher(cfg.DispatchBatch, cfg.DispatchQueue, p.logger)
	for _, s := range p.sinks {
		p.dispatcher.RegisterHandler(p.sinkHandler(s))
	}
	for _, h := range p.handlers {
		p.dispatcher.RegisterHandler(h)
	}
	p.dispatcher.RegisterHandler(concurrency.ResultHandlerFunc(p.publishResult))

	p.setupControl()
	return p, nil
}

// openJournal appends a badger sink when cfg.Journal is set.
func (p *Pipeline) openJournal() error {
	if p.cfg.Journal == "" {
		return nil
	}
	opts := sink.BadgerOptions{Dir: p.cfg.Journal, Logger: p.logger}
	if p.cfg.Journal == InMemoryJournal {
		opts = sink.BadgerOptions{InMemory: true, Logger: p.logger}
	}
	j, err := sink.OpenBadger(opts)
	if err != nil {
		p.closeSinks()
		return err
	}
	p.sinks = append(p.sinks, j)
	return nil
}

func (p *Pipeline) setupControl() {
	p.ctrl = adapters.NewControlAdapter()
	_ = p.ctrl.SetConfig(map[string]any{
		"pipeline.name":     p.cfg.Name,
		"pipeline.id":       p.id,
		"buffer.capacity":   p.cfg.Capacity,
		"buffer.policy":     p.buf.Policy().String(),
		"consumer.reducer":  p.cfg.Reducer,
		"consumer.timeout":  p.cfg.WaitTimeout.String(),
		"metrics.enabled":   p.cfg.EnableMetrics,
		ConfigLogLevel:      p.cfg.LogLevel,
	})
	p.ctrl.OnReload(p.reloadLogLevel)

	if p.cfg.EnableDebug {
		p.ctrl.RegisterDebugProbe("buffer.stats", func() any { return p.buf.Stats() })
		p.ctrl.RegisterDebugProbe("dispatcher.pending", func() any { return p.dispatcher.Pending() })
		p.ctrl.RegisterDebugProbe("dispatcher.delivered", func() any { return p.dispatcher.Delivered() })
		p.ctrl.RegisterDebugProbe("consumer.running", func() any { return p.consumer.Running() })
	}
}

func (p *Pipeline) reloadLogLevel() {
	v, ok := p.ctrl.GetConfig()[ConfigLogLevel].(string)
	if !ok {
		return
	}
	lvl, err := log.SlogLevel(v)
	if err != nil {
		p.logger.Warn("ignoring invalid log level", slog.String("level", v))
		return
	}
	if p.level.Level() != lvl {
		p.level.Set(lvl)
		p.logger.Info("log level changed", slog.String("level", strings.ToLower(lvl.String())))
	}
}

// ID returns the pipeline's unique identifier.
func (p *Pipeline) ID() string {
	return p.id
}

// Name returns the configured pipeline name.
func (p *Pipeline) Name() string {
	return p.cfg.Name
}

// Config returns a copy of the construction config.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Control returns the config/metrics/debug surface.
func (p *Pipeline) Control() api.Control {
	return p.ctrl
}

// BufferView is the read-only buffer view returned by Pipeline.Buffer.
type BufferView interface {
	api.BufferView
	Stats() concurrency.BufferStats
}

// Buffer exposes the underlying buffer for inspection. Draining stays with
// the pipeline's own consumer.
func (p *Pipeline) Buffer() BufferView {
	return bufferView{p.buf}
}

// bufferView hides WaitFull and the write side of the buffer.
type bufferView struct {
	b *concurrency.BatchBuffer
}

func (v bufferView) Len() int { return v.b.Len() }

func (v bufferView) Cap() int { return v.b.Cap() }

func (v bufferView) Stats() concurrency.BufferStats { return v.b.Stats() }

// Results delivers every result after sinks and handlers have seen it.
// Results are discarded, and counted, when the reader falls behind by more
// than DispatchQueue. The channel is closed by Stop.
func (p *Pipeline) Results() <-chan api.Result {
	return p.results
}

// Start launches the dispatcher and the consumer. ctx bounds the consumer;
// cancel it or call Stop to end the pipeline. Starting twice is a no-op.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return api.ErrClosed
	}
	if p.started {
		return nil
	}
	p.ctx = pipelineName.With(ctx, p.cfg.Name)
	p.dispatcher.Start()
	if err := p.consumer.Start(p.ctx); err != nil {
		p.dispatcher.Stop()
		return err
	}
	p.started = true
	p.logger.Debug("pipeline started",
		slog.Int("capacity", p.cfg.Capacity),
		slog.String("policy", p.cfg.Policy))
	return nil
}

// Push appends v to the buffer.
func (p *Pipeline) Push(v int64) error {
	return p.PushContext(context.Background(), v)
}

// PushContext appends v, honouring ctx under the block policy.
func (p *Pipeline) PushContext(ctx context.Context, v int64) error {
	err := p.buf.PushContext(ctx, v)
	if p.cfg.EnableMetrics {
		p.publishBufferStats()
	}
	return err
}

// Done is closed once the consumer has exited; nil before Start.
func (p *Pipeline) Done() <-chan struct{} {
	return p.consumer.Done()
}

// Err returns the consumer's terminal error, if any.
func (p *Pipeline) Err() error {
	return p.consumer.Err()
}

// CloseWrite stops accepting values and lets the consumer flush the final
// partial batch and exit.
func (p *Pipeline) CloseWrite() error {
	return p.buf.CloseWrite()
}

// Stop flushes buffered values as a final partial batch, waits up to
// ShutdownTimeout for the consumer, delivers pending results and closes
// sinks. All teardown errors are returned together. Stop is idempotent.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	started := p.started
	p.mu.Unlock()

	var result *multierror.Error
	if started {
		_ = p.buf.CloseWrite()
		select {
		case <-p.consumer.Done():
		case <-time.After(p.shutdownTimeout()):
			p.logger.Warn("consumer did not flush in time, cancelling",
				slog.Duration("timeout", p.shutdownTimeout()))
		}
		if err := p.consumer.Stop(); err != nil && !errors.Is(err, api.ErrWaitTimeout) {
			result = multierror.Append(result, fmt.Errorf("consumer: %w", err))
		}
		p.dispatcher.Stop()
	}
	if err := p.buf.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("buffer: %w", err))
	}
	if err := p.closeSinks(); err != nil {
		result = multierror.Append(result, err)
	}
	close(p.results)
	if p.cfg.EnableMetrics {
		p.publishBufferStats()
	}
	p.logger.Debug("pipeline stopped")
	return result.ErrorOrNil()
}

// Shutdown implements api.GracefulShutdown by delegating to Stop.
func (p *Pipeline) Shutdown() error {
	return p.Stop()
}

// Close lets a registry own the pipeline.
func (p *Pipeline) Close() error {
	return p.Stop()
}

func (p *Pipeline) shutdownTimeout() time.Duration {
	if p.cfg.ShutdownTimeout <= 0 {
		return DefaultConfig().ShutdownTimeout
	}
	return p.cfg.ShutdownTimeout
}

func (p *Pipeline) closeSinks() error {
	var result *multierror.Error
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("sink: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// handleResult runs on the consumer goroutine.
func (p *Pipeline) handleResult(r api.Result) {
	if p.cfg.EnableMetrics {
		if r.Outcome == api.OutcomeTimeout {
			p.ctrl.AddMetric(MetricTimeouts, 1)
		} else {
			p.ctrl.AddMetric(MetricBatchesDrained, 1)
			p.ctrl.SetMetric(MetricLastSum, r.Sum)
		}
		p.publishBufferStats()
	}
	for _, fn := range p.onDrain {
		fn(r)
	}
	if err := p.dispatcher.Post(p.ctx, r); err != nil {
		p.logger.Warn("result not dispatched", slog.Uint64("seq", r.Seq), slog.Any("error", err))
	}
}

func (p *Pipeline) sinkHandler(s api.ResultSink) concurrency.ResultHandler {
	return concurrency.ResultHandlerFunc(func(r api.Result) {
		// the consumer context may already be cancelled during Stop
		ctx := context.WithoutCancel(p.ctx)
		if err := s.Write(ctx, r); err != nil {
			p.logger.Error("sink write failed", slog.Uint64("seq", r.Seq), slog.Any("error", err))
			if p.cfg.EnableMetrics {
				p.ctrl.AddMetric(MetricSinkErrors, 1)
			}
		}
	})
}

func (p *Pipeline) publishResult(r api.Result) {
	select {
	case p.results <- r:
	default:
		if p.cfg.EnableMetrics {
			p.ctrl.AddMetric(MetricResultsLost, 1)
		}
	}
}

func (p *Pipeline) publishBufferStats() {
	st := p.buf.Stats()
	p.ctrl.SetMetric(MetricBufferLen, st.Len)
	p.ctrl.SetMetric(MetricValuesPushed, int64(st.Pushed))
	p.ctrl.SetMetric(MetricValuesDropped, int64(st.Dropped))
	p.ctrl.SetMetric(MetricValuesRejected, int64(st.Rejected))
}
