package concurrency

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskLocal_IsolatedPerTask(t *testing.T) {
	t.Parallel()

	const tasks = 15
	label := NewTaskLocal[string]("label")

	var wg sync.WaitGroup
	got := make([]string, tasks)
	for i := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := label.With(context.Background(), fmt.Sprintf("task %d", i))
			got[i] = describe(ctx, label)
		}()
	}
	wg.Wait()

	for i := range tasks {
		assert.Equal(t, fmt.Sprintf("task %d", i), got[i])
	}
}

func describe(ctx context.Context, l *TaskLocal[string]) string {
	return l.GetOr(ctx, "unset")
}

func TestTaskLocal_DistinctVariables(t *testing.T) {
	t.Parallel()

	a := NewTaskLocal[int]("id")
	b := NewTaskLocal[int]("id")

	ctx := a.With(context.Background(), 7)
	v, ok := a.Get(ctx)
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	_, ok = b.Get(ctx)
	assert.False(t, ok, "same name must not alias another variable")
	assert.Equal(t, "id", b.Name())
	assert.Equal(t, -1, b.GetOr(ctx, -1))
}
