// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown groups the orderly teardown of a component.
type GracefulShutdown interface {
	// Shutdown stops all internal workers and releases resources.
	// Returns an error if any part of the teardown failed.
	Shutdown() error
}
