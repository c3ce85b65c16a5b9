// Package sink records drained batches.
//
// MemorySink keeps results in process memory. BadgerSink journals them to
// a BadgerDB instance, msgpack-encoded, keyed by pipeline and drain
// sequence so a prefix scan returns one pipeline's batches in order.
package sink
