// Package loader bulk-loads items into field shards.
//
// ARCHITECTURE:
//
// One Writer Per Field:
// Items are partitioned by field as they are enqueued. The first item for a
// field opens that field's shard read-write, begins an IMMEDIATE
// transaction (taking the shard's write lock) and starts the field's worker
// goroutine. Workers for different fields run in parallel; within a field
// the worker applies puts strictly in enqueue order, so the later of two
// items for the same (field, uid) wins.
//
// Close Signal, Not Idle Timeout:
// Once every item has been enqueued each field queue is closed. A worker
// exits when its queue is closed and empty, never because it looked idle.
//
// Commit Barrier:
// Load waits for every worker to drain, then commits and closes every
// shard. Shards commit independently; there is no cross-shard atomicity.
//
// Failures:
// Nothing aborts a batch. Each input item gets an Outcome: value
// conversion, put, shard open and commit failures are logged and reported
// against the items they affect.
package loader
