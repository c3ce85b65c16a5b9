// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Synchronization primitives for batchsync: the BatchBuffer producer/consumer
// handoff and its Consumer worker, an ordered result Dispatcher, and small
// building blocks (Turnstile, TimedMutex, TaskLocal).
//
// Every blocking call takes a context.Context; condition-variable waits are
// woken on cancellation and always re-check their predicate in a loop.
package concurrency
