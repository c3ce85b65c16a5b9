// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update and hot-reload propagation.

package control

import (
	"maps"
	"reflect"
	"sync"
)

// ConfigStore is a dynamic key/value map with snapshot reads and reload hooks.
type ConfigStore struct {
	mu     sync.RWMutex
	config map[string]any
	hooks  *Reloader
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config: make(map[string]any),
		hooks:  NewReloader(),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return maps.Clone(cs.config)
}

// Get returns a single value.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// SetConfig merges new values and runs the reload hooks once the write lock
// is released, so hooks may read the store.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	changed := false
	for k, v := range newCfg {
		if old, ok := cs.config[k]; !ok || !reflect.DeepEqual(old, v) {
			changed = true
		}
		cs.config[k] = v
	}
	cs.mu.Unlock()
	if changed {
		cs.hooks.TriggerSync()
	}
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.hooks.Register(fn)
}
