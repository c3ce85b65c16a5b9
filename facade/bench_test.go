package facade_test

import (
	"context"
	"testing"

	"github.com/momentics/batchsync/facade"
)

// BenchmarkPipelinePush measures end-to-end pushes through a started
// pipeline with metrics enabled.
func BenchmarkPipelinePush(b *testing.B) {
	cfg := facade.DefaultConfig()
	cfg.Capacity = 64
	cfg.LogLevel = "error"
	p, err := facade.New(cfg)
	if err != nil {
		b.Fatal(err)
	}
	defer p.Stop()
	if err := p.Start(context.Background()); err != nil {
		b.Fatal(err)
	}
	go func() {
		for range p.Results() {
		}
	}()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		var v int64
		for pb.Next() {
			v++
			if err := p.Push(v); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
