package concurrency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/batchsync/api"
)

func TestReducers(t *testing.T) {
	t.Parallel()

	values := []int64{3, -2, 10, 4}
	assert.Equal(t, int64(15), Sum(values))
	assert.Equal(t, int64(-2), Min(values))
	assert.Equal(t, int64(10), Max(values))

	assert.Zero(t, Sum(nil))
	assert.Zero(t, Min(nil))
	assert.Zero(t, Max(nil))
}

func TestReducerByName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "sum", "SUM", "min", "max"} {
		r, err := ReducerByName(name)
		require.NoError(t, err, name)
		assert.NotNil(t, r)
	}
	_, err := ReducerByName("avg")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}
