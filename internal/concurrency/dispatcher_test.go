package concurrency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/batchsync/api"
)

func TestDispatcher_DeliversInOrder(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(4, 8, nil)
	var (
		mu   sync.Mutex
		seqs []uint64
	)
	d.RegisterHandler(ResultHandlerFunc(func(r api.Result) {
		mu.Lock()
		seqs = append(seqs, r.Seq)
		mu.Unlock()
	}))
	d.Start()

	for i := uint64(1); i <= 100; i++ {
		require.NoError(t, d.Post(context.Background(), api.Result{Seq: i}))
	}
	d.Stop()

	require.Len(t, seqs, 100)
	for i, s := range seqs {
		assert.Equal(t, uint64(i+1), s)
	}
	assert.Equal(t, uint64(100), d.Delivered())
}

func TestDispatcher_FansOutToEveryHandler(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(0, 0, nil)
	var a, b int
	d.RegisterHandler(ResultHandlerFunc(func(api.Result) { a++ }))
	d.RegisterHandler(ResultHandlerFunc(func(api.Result) { b++ }))
	d.Start()

	for i := 0; i < 10; i++ {
		require.True(t, d.TryPost(api.Result{Seq: uint64(i)}))
	}
	d.Stop()

	assert.Equal(t, 10, a)
	assert.Equal(t, 10, b)
}

func TestDispatcher_PostAfterStop(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(1, 1, nil)
	d.Start()
	d.Stop()
	d.Stop()

	assert.ErrorIs(t, d.Post(context.Background(), api.Result{}), api.ErrClosed)
	assert.False(t, d.TryPost(api.Result{}))
}

func TestDispatcher_PostRespectsContext(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(1, 1, nil)
	require.True(t, d.TryPost(api.Result{Seq: 1}))
	assert.False(t, d.TryPost(api.Result{Seq: 2}))
	assert.Equal(t, 1, d.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Post(ctx, api.Result{Seq: 2}), context.DeadlineExceeded)
	d.Stop()
}
