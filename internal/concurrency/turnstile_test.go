package concurrency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Goroutines started in reverse order still run in ticket order.
func TestTurnstile_RunsInTicketOrder(t *testing.T) {
	t.Parallel()

	const workers = 5
	ts := NewTurnstile(0, nil)

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for _, id := range []int{4, 3, 2, 1, 0} {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			err := ts.Enter(context.Background(), id, func() {
				mu.Lock()
				order = append(order, id)
				mu.Unlock()
			})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, workers, ts.Current())
}

func TestTurnstile_WaitCancelled(t *testing.T) {
	t.Parallel()

	ts := NewTurnstile(0, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := ts.Wait(ctx, 3)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, ts.Current())
}

func TestTurnstile_StaleWakeupsCounted(t *testing.T) {
	t.Parallel()

	ts := NewTurnstile(0, nil)
	done := make(chan error, 1)
	go func() { done <- ts.Wait(context.Background(), 2) }()

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, ts.Advance())
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 2, ts.Advance())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter not released")
	}
	assert.GreaterOrEqual(t, ts.StaleWakeups(), uint64(1))
}
