// Package control
// Author: momentics <momentics@gmail.com>
//
// Hot-reload, runtime metrics, configuration control, and debug introspection
// layer for batchsync pipelines.
//
// Provides concurrent-safe state handling primitives including:
//   - Snapshot config reads and merged updates
//   - Reload hooks fired on config change
//   - Metrics counters published by pipelines
//   - Debug probe registration and state export
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
