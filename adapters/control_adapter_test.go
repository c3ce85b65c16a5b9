package adapters_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/batchsync/adapters"
	"github.com/momentics/batchsync/api"
)

func TestControlAdapterBasic(t *testing.T) {
	ctrl := adapters.NewControlAdapter()
	assert.Empty(t, ctrl.GetConfig(), "expected empty config on init")

	require.NoError(t, ctrl.SetConfig(map[string]any{"k": 1}))
	assert.Equal(t, 1, ctrl.Stats()["k"])

	called := 0
	ctrl.OnReload(func() { called++ })
	require.NoError(t, ctrl.SetConfig(map[string]any{"x": 2}))
	assert.Equal(t, 1, called)

	// unchanged values do not fire hooks
	require.NoError(t, ctrl.SetConfig(map[string]any{"x": 2}))
	assert.Equal(t, 1, called)

	assert.ErrorIs(t, ctrl.SetConfig(nil), api.ErrInvalidArgument)
}

func TestControlAdapterMetricsAndProbes(t *testing.T) {
	ctrl := adapters.NewControlAdapter()
	ctrl.SetMetric("batch.last_sum", int64(15))
	ctrl.AddMetric("batches.drained", 1)
	ctrl.AddMetric("batches.drained", 2)
	ctrl.RegisterDebugProbe("buffer.len", func() any { return 3 })

	stats := ctrl.Stats()
	assert.Equal(t, int64(15), stats["batch.last_sum"])
	assert.Equal(t, int64(3), stats["batches.drained"])
	assert.Equal(t, 3, stats["debug.buffer.len"])
	assert.Contains(t, stats, "debug.platform.cpus")
}
