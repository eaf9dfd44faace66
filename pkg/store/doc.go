// Package store persists the device registry, per-device message counters,
// and encrypted sensor records in SQLite.
//
// It is the only shared mutable resource in the processing pipeline.
// NextCounter is a single-statement atomic read-modify-write and is
// linearizable per device; this is a cryptographic precondition for the
// dual-cipher nonces, not a bookkeeping detail. See pkg/dualcipher.
//
// Uses modernc.org/sqlite (pure Go, no cgo). WAL mode lets read-only
// observers (the liveness listener) see committed state without ever
// blocking counter allocation.
package store
