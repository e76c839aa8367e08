// Package store provides the field-partitioned SQLite key-value store.
//
// Every field lives in its own shard file, <root>/<field>.sqlite, holding a
// single table:
//
//	items(uid INTEGER PRIMARY KEY, value)
//
// # Access modes
//
//   - ReadOnly: short-lived connections for lookups. WAL journaling means a
//     reader is never blocked by a writer on the same shard.
//   - ReadWriteCreate: write-capable connections. Transactions begin
//     IMMEDIATE, so SQLite itself guarantees at most one writer per shard.
//
// Open always creates the shard file and table first, whatever the mode,
// so a lookup against a field that was never written returns ErrNotFound
// rather than failing to open.
//
// # Database configuration
//
//   - journal_mode=WAL: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//
// Writes replace: putting an existing uid overwrites its value. There are
// no cross-shard transactions; a batch touching several fields commits each
// shard on its own.
package store
