package vector

import "fmt"

// NewSnapshot pairs an index with its chunk sequence. Both must have the same
// length and chunk indexes must match positions.
func NewSnapshot(idx *FlatIndex, chunks []Chunk) (*Snapshot, error) {
	if idx.Len() != len(chunks) {
		return nil, fmt.Errorf("%w: index holds %d vectors but %d chunks were loaded",
			ErrCorruptSnapshot, idx.Len(), len(chunks))
	}

	snap := &Snapshot{
		Dimension: idx.Dimension(),
		Records:   make([]Record, len(chunks)),
	}
	for i, c := range chunks {
		snap.Records[i] = Record{
			ID:        uint64(i),
			Chunk:     c,
			Embedding: idx.Row(i),
		}
	}

	return snap, snap.Validate()
}

// Validate checks the snapshot invariants: sequential IDs matching chunk
// indexes, a single embedding dimension and finite components.
func (s *Snapshot) Validate() error {
	if len(s.Records) > 0 && s.Dimension <= 0 {
		return fmt.Errorf("%w: %d records without a dimension", ErrCorruptSnapshot, len(s.Records))
	}
	for i, r := range s.Records {
		if r.ID != uint64(i) {
			return fmt.Errorf("%w: record %d has id %d", ErrCorruptSnapshot, i, r.ID)
		}
		if r.Chunk.ChunkIndex != i {
			return fmt.Errorf("%w: record %d has chunk index %d", ErrCorruptSnapshot, i, r.Chunk.ChunkIndex)
		}
		if len(r.Embedding) != s.Dimension {
			return fmt.Errorf("%w: record %d has %d dimensions, snapshot has %d",
				ErrCorruptSnapshot, i, len(r.Embedding), s.Dimension)
		}
		if j := nonFinite(r.Embedding); j >= 0 {
			return fmt.Errorf("%w: record %d component %d is not finite", ErrCorruptSnapshot, i, j)
		}
	}
	return nil
}

// Index builds a FlatIndex from the snapshot's embeddings.
func (s *Snapshot) Index() *FlatIndex {
	idx := NewFlatIndex(s.Dimension)
	for _, r := range s.Records {
		idx.data = append(idx.data, r.Embedding...)
	}
	return idx
}
