package testutil

import "sync"

// FixedBatchID names every batch with the same id.
//
// Stateless and safe for concurrent use.
type FixedBatchID struct {
	id string
}

// NewFixedBatchID returns a generator yielding id.
// If id is empty, Generate returns "test-batch-default".
func NewFixedBatchID(id string) *FixedBatchID {
	if id == "" {
		id = "test-batch-default"
	}
	return &FixedBatchID{id: id}
}

// Generate returns the fixed id.
func (g *FixedBatchID) Generate() string {
	return g.id
}

// SequenceBatchIDs yields ids in order, one per batch.
//
// Safe for concurrent use. Panics once every id has been handed out, so a
// test that loads more batches than it expected fails loudly.
type SequenceBatchIDs struct {
	mu    sync.Mutex
	ids   []string
	index int
}

// NewSequenceBatchIDs returns a generator yielding ids in order.
func NewSequenceBatchIDs(ids ...string) *SequenceBatchIDs {
	return &SequenceBatchIDs{ids: ids}
}

// Generate returns the next id.
func (g *SequenceBatchIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.index >= len(g.ids) {
		panic("SequenceBatchIDs: all ids exhausted")
	}
	id := g.ids[g.index]
	g.index++
	return id
}
