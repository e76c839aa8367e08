// Package graph resolves node fields against field shards.
//
// Nodes (Transaction, Claim, Party) are view objects: a variant name and an
// id. Every field is resolved lazily by its own point lookup, dispatched on
// a bounded pool; callers get a *pool.Future and suspend only in Await.
// Resolving a field never resolves its siblings or the nodes it references:
// single references come back as stub nodes, list references as Refs.
//
// Select resolves a nested selection in one pass per depth, launching every
// lookup at a depth before awaiting any of them. Failures are scoped to the
// field that failed and reported beside the partial data, in the manner of
// GraphQL responses.
package graph
