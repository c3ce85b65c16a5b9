package sink_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/batchsync/api"
	"github.com/momentics/batchsync/internal/sink"
)

func result(pipeline string, seq uint64, values ...int64) api.Result {
	var sum int64
	for _, v := range values {
		sum += v
	}
	return api.Result{
		Pipeline:  pipeline,
		Seq:       seq,
		Values:    values,
		Sum:       sum,
		Outcome:   api.OutcomeSignaled,
		DrainedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemorySink(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := sink.NewMemorySink()

	values := []int64{1, 2, 3, 4, 5}
	require.NoError(t, s.Write(ctx, result("a", 1, values...)))
	require.NoError(t, s.Write(ctx, result("b", 1, 7)))
	values[0] = 100

	got, err := s.List(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, got[0].Values)
	assert.Equal(t, int64(15), got[0].Sum)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Write(ctx, result("a", 2, 1)), api.ErrClosed)
}

func TestMemorySink_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := sink.NewMemorySink()
	assert.ErrorIs(t, s.Write(ctx, result("a", 1, 1)), context.Canceled)
}

func openInMemory(t *testing.T) *sink.BadgerSink {
	t.Helper()
	s, err := sink.OpenBadger(sink.BadgerOptions{InMemory: true})
	require.NoError(t, err)
	return s
}

func TestBadgerSink_WriteList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openInMemory(t)
	t.Cleanup(func() { _ = s.Close() })

	// out of order on purpose; keys sort by big-endian sequence
	for _, seq := range []uint64{3, 1, 256, 2} {
		require.NoError(t, s.Write(ctx, result("orders", seq, int64(seq), int64(seq))))
	}
	require.NoError(t, s.Write(ctx, result("audit", 1, 9)))
	require.NoError(t, s.Write(ctx, api.Result{Pipeline: "orders", Outcome: api.OutcomeTimeout}))

	got, err := s.List(ctx, "orders")
	require.NoError(t, err)
	require.Len(t, got, 4)
	seqs := make([]uint64, 0, len(got))
	for _, r := range got {
		seqs = append(seqs, r.Seq)
		assert.Equal(t, int64(2*r.Seq), r.Sum)
		assert.Equal(t, api.OutcomeSignaled, r.Outcome)
	}
	assert.Equal(t, []uint64{1, 2, 3, 256}, seqs)
	assert.True(t, got[0].DrainedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "audit", all[0].Pipeline)
}

func TestBadgerSink_PrefixIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openInMemory(t)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Write(ctx, result("ab", 1, 1)))
	require.NoError(t, s.Write(ctx, result("a", 1, 2)))

	got, err := s.List(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].Sum)

	assert.ErrorIs(t, s.Write(ctx, result("a/b", 1, 1)), api.ErrInvalidArgument)
}

func TestBadgerSink_Persists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	s, err := sink.OpenBadger(sink.BadgerOptions{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, result("p", 1, 1, 2, 3, 4, 5)))
	require.NoError(t, s.Close())

	s, err = sink.OpenBadger(sink.BadgerOptions{Dir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.List(ctx, "p")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(15), got[0].Sum)
}

func TestOpenBadger_RequiresDir(t *testing.T) {
	t.Parallel()

	_, err := sink.OpenBadger(sink.BadgerOptions{})
	require.ErrorIs(t, err, api.ErrInvalidArgument)
	assert.Equal(t, api.ErrCodeInvalidArgument, api.CodeOf(err))
}

func TestBadgerSink_RunsDoNotOverwrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	writeRun := func(sums ...int64) string {
		t.Helper()
		run, err := uuid.NewV7()
		require.NoError(t, err)

		s, err := sink.OpenBadger(sink.BadgerOptions{Dir: dir})
		require.NoError(t, err)
		for i, sum := range sums {
			r := result("default", uint64(i+1), sum)
			r.Run = run.String()
			require.NoError(t, s.Write(ctx, r))
		}
		require.NoError(t, s.Close())
		return run.String()
	}

	first := writeRun(101, 102, 103)
	second := writeRun(7)

	s, err := sink.OpenBadger(sink.BadgerOptions{Dir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.List(ctx, "default")
	require.NoError(t, err)
	require.Len(t, got, 4)

	sums := make([]int64, 0, len(got))
	for _, r := range got {
		sums = append(sums, r.Sum)
	}
	assert.Equal(t, []int64{101, 102, 103, 7}, sums)
	assert.Equal(t, first, got[0].Run)
	assert.Equal(t, second, got[3].Run)
	assert.Equal(t, uint64(1), got[3].Seq)
}

func TestBadgerSink_RejectsMalformedRun(t *testing.T) {
	t.Parallel()

	s := openInMemory(t)
	t.Cleanup(func() { _ = s.Close() })

	r := result("p", 1, 1)
	r.Run = "not-a-uuid"
	assert.ErrorIs(t, s.Write(context.Background(), r), api.ErrInvalidArgument)
}
