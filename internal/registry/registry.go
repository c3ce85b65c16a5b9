// File: internal/registry/registry.go
// Package registry
// Author: momentics <momentics@gmail.com>
//
// Sharded, thread-safe registry of named pipelines.

package registry

import (
	"fmt"
	"hash/fnv"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/momentics/batchsync/api"
)

// Entry is anything the registry owns and must close on removal.
type Entry interface {
	Close() error
}

// Registry maps names to entries across power-of-two shards.
type Registry[T Entry] struct {
	shards []*shard[T]
	mask   uint32
}

type shard[T Entry] struct {
	mu      sync.RWMutex
	entries map[string]T
}

// New constructs a registry with shardCount shards, rounded up to a power
// of two. Non-positive counts default to 16.
func New[T Entry](shardCount int) *Registry[T] {
	if shardCount <= 0 {
		shardCount = 16
	}
	m := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*shard[T], m)
	for i := range shards {
		shards[i] = &shard[T]{entries: make(map[string]T)}
	}
	return &Registry[T]{shards: shards, mask: m - 1}
}

func (r *Registry[T]) shard(name string) *shard[T] {
	return r.shards[fnv32(name)&r.mask]
}

// Create builds and stores a new entry under name. The build function runs
// under the shard lock, so concurrent Create calls for one name build once.
func (r *Registry[T]) Create(name string, build func() (T, error)) (T, error) {
	var zero T
	if name == "" {
		return zero, fmt.Errorf("%w: empty name", api.ErrInvalidArgument)
	}
	sh := r.shard(name)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.entries[name]; ok {
		return zero, fmt.Errorf("%w: %q", api.ErrAlreadyExists, name)
	}
	v, err := build()
	if err != nil {
		return zero, err
	}
	sh.entries[name] = v
	return v, nil
}

// Get fetches an entry if present.
func (r *Registry[T]) Get(name string) (T, bool) {
	sh := r.shard(name)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	v, ok := sh.entries[name]
	return v, ok
}

// Delete removes the entry and closes it outside the shard lock.
func (r *Registry[T]) Delete(name string) error {
	sh := r.shard(name)
	sh.mu.Lock()
	v, ok := sh.entries[name]
	delete(sh.entries, name)
	sh.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", api.ErrNotFound, name)
	}
	return v.Close()
}

// Range calls fn for every entry until fn returns false. fn must not call
// back into the registry.
func (r *Registry[T]) Range(fn func(name string, v T) bool) {
	for _, sh := range r.shards {
		sh.mu.RLock()
		for name, v := range sh.entries {
			if !fn(name, v) {
				sh.mu.RUnlock()
				return
			}
		}
		sh.mu.RUnlock()
	}
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	var names []string
	r.Range(func(name string, _ T) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}

// Len counts the registered entries.
func (r *Registry[T]) Len() int {
	n := 0
	for _, sh := range r.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// Close removes and closes every entry, returning all close errors.
func (r *Registry[T]) Close() error {
	var result *multierror.Error
	for _, sh := range r.shards {
		sh.mu.Lock()
		entries := sh.entries
		sh.entries = make(map[string]T)
		sh.mu.Unlock()
		for name, v := range entries {
			if err := v.Close(); err != nil {
				result = multierror.Append(result, fmt.Errorf("close %q: %w", name, err))
			}
		}
	}
	return result.ErrorOrNil()
}

func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// nextPowerOfTwo returns the next power-of-two >= v.
func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
