// File: facade/hub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package facade

import (
	"context"

	"github.com/momentics/batchsync/internal/registry"
)

// Hub runs several independent pipelines keyed by name.
type Hub struct {
	pipelines *registry.Registry[*Pipeline]
	opts      []Option
}

// NewHub creates a hub whose pipelines all receive opts.
func NewHub(shards int, opts ...Option) *Hub {
	return &Hub{
		pipelines: registry.New[*Pipeline](shards),
		opts:      opts,
	}
}

// Create builds and starts a pipeline named cfg.Name. Names are unique
// within the hub; a duplicate fails with api.ErrAlreadyExists.
func (h *Hub) Create(ctx context.Context, cfg *Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	all := append(append([]Option(nil), h.opts...), opts...)
	return h.pipelines.Create(cfg.Name, func() (*Pipeline, error) {
		p, err := New(cfg, all...)
		if err != nil {
			return nil, err
		}
		if err := p.Start(ctx); err != nil {
			_ = p.Stop()
			return nil, err
		}
		return p, nil
	})
}

// Get returns the named pipeline.
func (h *Hub) Get(name string) (*Pipeline, bool) {
	return h.pipelines.Get(name)
}

// Delete stops and removes the named pipeline.
func (h *Hub) Delete(name string) error {
	return h.pipelines.Delete(name)
}

// Names lists pipelines in sorted order.
func (h *Hub) Names() []string {
	return h.pipelines.Names()
}

// Len returns the number of pipelines.
func (h *Hub) Len() int {
	return h.pipelines.Len()
}

// Stats collects every pipeline's Control stats by name.
func (h *Hub) Stats() map[string]map[string]any {
	out := make(map[string]map[string]any)
	h.pipelines.Range(func(name string, p *Pipeline) bool {
		out[name] = p.Control().Stats()
		return true
	})
	return out
}

// Shutdown stops every pipeline and reports all failures together.
func (h *Hub) Shutdown() error {
	return h.pipelines.Close()
}
