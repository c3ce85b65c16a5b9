// File: internal/sink/badger.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sink

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/momentics/batchsync/api"
)

const keyPrefix = "batchsync/"

var _ api.ResultSink = (*BadgerSink)(nil)

// BadgerOptions configures the journal.
type BadgerOptions struct {
	// Dir holds the data files. Required unless InMemory is set.
	Dir string

	// InMemory runs badger without disk persistence.
	InMemory bool

	// Logger receives badger warnings and errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// BadgerSink journals signaled results. Timeout results carry no batch and
// are not written.
type BadgerSink struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadger opens or creates a journal.
func OpenBadger(opts BadgerOptions) (*BadgerSink, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "journal dir is required for on-disk mode").
			Wrap(api.ErrInvalidArgument)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "journal"))

	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{logger})
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(badgerLogger{logger})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, api.NewError(api.ErrCodeInitFailed, "open journal").
			WithContext("dir", opts.Dir).
			Wrap(err)
	}
	logger.Debug("journal opened", slog.String("dir", opts.Dir), slog.Bool("in_memory", opts.InMemory))
	return &BadgerSink{db: db, logger: logger}, nil
}

// Write stores r under its pipeline, run and sequence number. Sequence
// numbers restart with every run, so the run ID keeps earlier runs intact.
// Rewriting the same run and sequence replaces the record.
func (b *BadgerSink) Write(ctx context.Context, r api.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Outcome != api.OutcomeSignaled {
		return nil
	}
	if strings.Contains(r.Pipeline, "/") {
		return fmt.Errorf("%w: pipeline name %q contains '/'", api.ErrInvalidArgument, r.Pipeline)
	}
	run := uuid.Nil
	if r.Run != "" {
		id, err := uuid.Parse(r.Run)
		if err != nil {
			return fmt.Errorf("%w: run id %q: %w", api.ErrInvalidArgument, r.Run, err)
		}
		run = id
	}
	data, err := msgpack.Marshal(&r)
	if err != nil {
		return fmt.Errorf("encode result %d: %w", r.Seq, err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(r.Pipeline, run, r.Seq), data)
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return api.ErrClosed
	}
	return err
}

// List decodes the journal for pipeline, run by run in run ID order, then by
// sequence. Time-ordered (v7) run IDs therefore list oldest run first. An
// empty pipeline name lists every pipeline, grouped by name.
func (b *BadgerSink) List(ctx context.Context, pipeline string) ([]api.Result, error) {
	prefix := []byte(keyPrefix)
	if pipeline != "" {
		prefix = pipelinePrefix(pipeline)
	}

	var out []api.Result
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r api.Result
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &r)
			})
			if err != nil {
				return fmt.Errorf("decode %q: %w", it.Item().Key(), err)
			}
			out = append(out, r)
		}
		return nil
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return nil, api.ErrClosed
	}
	return out, err
}

// Close flushes and closes the database.
func (b *BadgerSink) Close() error {
	return b.db.Close()
}

// pipelinePrefix is "batchsync/<name>/".
func pipelinePrefix(pipeline string) []byte {
	return []byte(keyPrefix + pipeline + "/")
}

// recordKey is the pipeline prefix, the 16 run ID bytes, then the big-endian
// sequence number.
func recordKey(pipeline string, run uuid.UUID, seq uint64) []byte {
	key := append(pipelinePrefix(pipeline), run[:]...)
	return binary.BigEndian.AppendUint64(key, seq)
}

// badgerLogger forwards badger output to slog. Info and debug chatter is
// demoted to debug.
type badgerLogger struct {
	l *slog.Logger
}

func (b badgerLogger) Errorf(f string, v ...any) {
	b.l.Error(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (b badgerLogger) Warningf(f string, v ...any) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (b badgerLogger) Infof(f string, v ...any) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (b badgerLogger) Debugf(f string, v ...any) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(f, v...)))
}
