// File: facade/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pipeline configuration: defaults, YAML file and BATCHSYNC_* environment
// overrides, applied in that order.

package facade

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/momentics/batchsync/api"
	"github.com/momentics/batchsync/internal/concurrency"
	"github.com/momentics/batchsync/internal/log"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BATCHSYNC_"

// InMemoryJournal selects an in-memory badger journal.
const InMemoryJournal = ":memory:"

// Config holds parameters immutable per run. Only LogLevel may change
// afterwards, through the Control interface.
type Config struct {
	Name            string        `yaml:"name"`             // pipeline name, tags results and log lines
	Capacity        int           `yaml:"capacity"`         // values per batch
	Policy          string        `yaml:"policy"`           // reject, block, drop or spill
	Reducer         string        `yaml:"reducer"`          // sum, min or max
	WaitTimeout     time.Duration `yaml:"wait_timeout"`     // per-wait consumer deadline, 0 waits forever
	StopOnTimeout   bool          `yaml:"stop_on_timeout"`  // consumer exits after the first timeout
	DispatchBatch   int           `yaml:"dispatch_batch"`   // results per handler delivery
	DispatchQueue   int           `yaml:"dispatch_queue"`   // buffered results before the consumer blocks
	Journal         string        `yaml:"journal"`          // badger dir, InMemoryJournal, or empty
	EnableMetrics   bool          `yaml:"enable_metrics"`   // publish counters through Control
	EnableDebug     bool          `yaml:"enable_debug"`     // register debug probes
	LogLevel        string        `yaml:"log_level"`        // initial pipeline log level
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // wait for the final flush on Stop
}

// DefaultConfig returns the five-slot demo configuration. Producers block
// while the buffer is full so no value is lost.
func DefaultConfig() *Config {
	return &Config{
		Name:            "default",
		Capacity:        5,
		Policy:          concurrency.OverflowBlock.String(),
		Reducer:         "sum",
		DispatchBatch:   16,
		DispatchQueue:   1024,
		EnableMetrics:   true,
		EnableDebug:     true,
		LogLevel:        "info",
		ShutdownTimeout: 5 * time.Second,
	}
}

// LoadConfig reads path over the defaults, then applies environment
// overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from BATCHSYNC_<FIELD> variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	str("NAME", &c.Name)
	str("POLICY", &c.Policy)
	str("REDUCER", &c.Reducer)
	str("JOURNAL", &c.Journal)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup(EnvPrefix + "CAPACITY"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %sCAPACITY=%q", api.ErrInvalidArgument, EnvPrefix, v)
		}
		c.Capacity = n
	}
	for key, dst := range map[string]*time.Duration{
		"WAIT_TIMEOUT":     &c.WaitTimeout,
		"SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
	} {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%w: %s%s=%q", api.ErrInvalidArgument, EnvPrefix, key, v)
			}
			*dst = d
		}
	}
	if v, ok := lookup(EnvPrefix + "STOP_ON_TIMEOUT"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %sSTOP_ON_TIMEOUT=%q", api.ErrInvalidArgument, EnvPrefix, v)
		}
		c.StopOnTimeout = b
	}
	return nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", api.ErrInvalidArgument, c.Capacity)
	}
	if strings.Contains(c.Name, "/") {
		return fmt.Errorf("%w: name %q contains '/'", api.ErrInvalidArgument, c.Name)
	}
	if _, err := concurrency.ParseOverflowPolicy(c.Policy); err != nil {
		return err
	}
	if _, err := concurrency.ReducerByName(c.Reducer); err != nil {
		return err
	}
	if c.WaitTimeout < 0 {
		return fmt.Errorf("%w: negative wait_timeout", api.ErrInvalidArgument)
	}
	if _, err := log.SlogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", api.ErrInvalidArgument, err)
	}
	return nil
}
