// Package vector provides the document vector store: an append-only exact
// nearest-neighbor index over chunk embeddings, persisted as whole snapshots
// through pluggable persistence drivers.
package vector

import "context"

// Chunk is a unit of extracted, embeddable text.
type Chunk struct {
	// Text is the trimmed paragraph text.
	Text string `msgpack:"text" json:"text"`

	// Source is the name of the document the chunk was extracted from.
	Source string `msgpack:"source" json:"source"`

	// ChunkIndex is the global running position of the chunk in the store,
	// not its position within the source document.
	ChunkIndex int `msgpack:"chunk_index" json:"chunk_index"`
}

// Metadata is the per-chunk metadata returned alongside search results.
type Metadata struct {
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
}

// Metadata returns the metadata view of the chunk.
func (c Chunk) Metadata() Metadata {
	return Metadata{
		Source:     c.Source,
		ChunkIndex: c.ChunkIndex,
	}
}

// Record is a stored chunk together with its embedding.
// ID is stable and equal to the chunk's global index.
type Record struct {
	ID        uint64
	Chunk     Chunk
	Embedding []float32
}

// Snapshot is the full persisted state of a store.
type Snapshot struct {
	// Dimension is the embedding dimensionality, 0 for an empty snapshot.
	Dimension int

	// Records are ordered by ID, starting at 0.
	Records []Record
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Chunks returns the ordered chunk sequence of the snapshot.
func (s *Snapshot) Chunks() []Chunk {
	chunks := make([]Chunk, len(s.Records))
	for i, r := range s.Records {
		chunks[i] = r.Chunk
	}
	return chunks
}

// Result is a single search hit.
type Result struct {
	Chunk    Chunk    `json:"chunk"`
	Metadata Metadata `json:"metadata"`

	// Distance is the Euclidean distance to the query (lower = closer).
	Distance float32 `json:"distance"`
}

// Persister saves and loads whole store snapshots.
type Persister interface {
	// Save replaces the persisted snapshot with snap.
	// Implementations must either persist the whole snapshot or leave the
	// previously persisted one intact.
	Save(ctx context.Context, snap *Snapshot) error

	// Load reads the persisted snapshot. It returns ErrSnapshotNotFound when
	// nothing has been saved yet.
	Load(ctx context.Context) (*Snapshot, error)

	// Close releases any resources held by the persister.
	Close() error
}
