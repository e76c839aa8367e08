// Package schema describes the node variants exposed by the graph and the
// shard behind each of their fields.
//
// A catalog is written in CUE. The embedded default describes the claims
// graph (Transaction, Claim, Party); Load reads a replacement from disk. Every
// catalog is unified with the constraints in defs.cue before use, so field
// kinds, reference targets and shard names are checked once at load time
// rather than on every lookup.
//
// Each field maps to exactly one shard and no two fields share a shard.
package schema
