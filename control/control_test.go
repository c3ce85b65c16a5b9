package control_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/batchsync/control"
)

func TestMetricsRegistry_Basic(t *testing.T) {
	reg := control.NewMetricsRegistry()
	reg.Set("foo.count", int64(42))
	reg.Set("bar.status", "ok")

	metrics := reg.GetSnapshot()
	assert.Equal(t, int64(42), metrics["foo.count"])
	assert.Equal(t, "ok", metrics["bar.status"])
	assert.WithinDuration(t, time.Now(), reg.Updated(), time.Second)
}

func TestMetricsRegistry_ConcurrentAdd(t *testing.T) {
	reg := control.NewMetricsRegistry()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				reg.Add("values.pushed", 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(5000), reg.GetSnapshot()["values.pushed"])
}

func TestConfigStore_SnapshotIsCopy(t *testing.T) {
	cs := control.NewConfigStore()
	cs.SetConfig(map[string]any{"log.level": "info"})

	snap := cs.GetSnapshot()
	snap["log.level"] = "debug"

	v, ok := cs.Get("log.level")
	assert.True(t, ok)
	assert.Equal(t, "info", v)
}

func TestConfigStore_ReloadHooksSeeNewValues(t *testing.T) {
	cs := control.NewConfigStore()
	var seen any
	cs.OnReload(func() { seen, _ = cs.Get("capacity") })

	cs.SetConfig(map[string]any{"capacity": 5})
	assert.Equal(t, 5, seen)

	// non-comparable values are compared deeply
	cs.SetConfig(map[string]any{"tags": []string{"a"}})
	cs.SetConfig(map[string]any{"tags": []string{"a"}})
}

func TestReloader_PanickingHookIsContained(t *testing.T) {
	r := control.NewReloader()
	ran := false
	r.Register(func() { panic("boom") })
	r.Register(func() { ran = true })

	assert.NotPanics(t, r.TriggerSync)
	assert.True(t, ran)
}

func TestReloader_TriggerAsync(t *testing.T) {
	r := control.NewReloader()
	done := make(chan struct{})
	r.Register(func() { close(done) })
	r.Trigger()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async hook not run")
	}
}

func TestDebugProbes_DumpState(t *testing.T) {
	dp := control.NewDebugProbes()
	control.RegisterPlatformProbes(dp)
	dp.RegisterProbe("answer", func() any { return 42 })

	state := dp.DumpState()
	assert.Equal(t, 42, state["answer"])
	assert.Contains(t, state, "platform.cpus")
	assert.Contains(t, state, "platform.goroutines")
}
