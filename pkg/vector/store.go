package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Config is the vector store configuration.
type Config struct {
	// Persister saves the whole snapshot after every successful add.
	Persister Persister

	// Logger is the configured zap logger
	Logger *zap.Logger
}

// Store is the document vector store.
//
// Writers (AddDocuments, Persist, Reload) are serialized by writeMu. Readers
// load the current immutable state without locking; a new state is only
// published after its snapshot has been persisted, so a failed save leaves
// both memory and disk at the previous snapshot.
type Store struct {
	writeMu   sync.Mutex
	current   atomic.Pointer[state]
	persister Persister
	logger    *zap.Logger
}

// state is an immutable view of the store contents.
type state struct {
	index  *FlatIndex
	chunks []Chunk
}

func (s *state) len() int {
	return len(s.chunks)
}

// Stats summarizes the store contents.
type Stats struct {
	Records   int            `json:"records"`
	Dimension int            `json:"dimension"`
	Documents int            `json:"documents"`
	Sources   map[string]int `json:"sources"`
}

// NewStore creates an empty store. Call Reload to load a persisted snapshot.
func NewStore(c Config) (*Store, error) {
	if c.Persister == nil {
		return nil, errors.New("persister is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s := &Store{
		persister: c.Persister,
		logger:    c.Logger,
	}
	s.current.Store(&state{})

	return s, nil
}

// Len returns the number of stored chunks.
func (s *Store) Len() int {
	return s.current.Load().len()
}

// Dimension returns the embedding dimension, or 0 while the store is empty.
func (s *Store) Dimension() int {
	return s.current.Load().index.Dimension()
}

// AddDocuments appends one record per chunk text and persists the resulting
// snapshot before making it visible. The returned records carry the global
// chunk indexes that were assigned.
func (s *Store) AddDocuments(ctx context.Context, texts []string, embeddings [][]float32, source string) ([]Record, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(texts) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d chunks, %d embeddings", ErrLengthMismatch, len(texts), len(embeddings))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.current.Load()

	idx := cur.index
	if idx == nil {
		// Empty store: the first embedding fixes the dimension.
		if len(embeddings[0]) == 0 {
			return nil, fmt.Errorf("%w: zero-length embedding", ErrDimensionMismatch)
		}
		idx = NewFlatIndex(len(embeddings[0]))
	}

	nextIdx, err := idx.Append(embeddings)
	if err != nil {
		return nil, err
	}

	base := cur.len()
	chunks := make([]Chunk, base, base+len(texts))
	copy(chunks, cur.chunks)

	records := make([]Record, len(texts))
	for i, text := range texts {
		c := Chunk{
			Text:       text,
			Source:     source,
			ChunkIndex: base + i,
		}
		chunks = append(chunks, c)
		records[i] = Record{
			ID:        uint64(base + i),
			Chunk:     c,
			Embedding: nextIdx.Row(base + i),
		}
	}

	next := &state{index: nextIdx, chunks: chunks}
	if err := s.save(ctx, next); err != nil {
		return nil, err
	}
	s.current.Store(next)

	s.logger.Debug("added documents to vector store",
		zap.String("source", source),
		zap.Int("count", len(texts)),
		zap.Int("store_size", next.len()),
	)

	return records, nil
}

// Search returns up to k chunks nearest to query by Euclidean distance,
// closest first. Ties keep insertion order.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}

	cur := s.current.Load()
	if cur.len() == 0 {
		return nil, ErrStoreEmpty
	}

	neighbors, err := cur.index.Search(query, k)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(neighbors))
	for i, n := range neighbors {
		c := cur.chunks[n.Position]
		results[i] = Result{
			Chunk:    c,
			Metadata: c.Metadata(),
			Distance: n.Distance,
		}
	}

	return results, nil
}

// Snapshot returns the current contents. Embedding slices are shared with the
// store and must not be modified.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load().snapshot()
}

// Stats returns record and per-source counts.
func (s *Store) Stats() Stats {
	cur := s.current.Load()

	sources := make(map[string]int)
	for _, c := range cur.chunks {
		sources[c.Source]++
	}

	return Stats{
		Records:   cur.len(),
		Dimension: cur.index.Dimension(),
		Documents: len(sources),
		Sources:   sources,
	}
}

// SourceNames returns the distinct source names in first-seen order.
func (s *Store) SourceNames() []string {
	cur := s.current.Load()

	seen := make(map[string]int)
	for _, c := range cur.chunks {
		if _, ok := seen[c.Source]; !ok {
			seen[c.Source] = c.ChunkIndex
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return seen[names[i]] < seen[names[j]]
	})

	return names
}

// Persist saves the current snapshot.
func (s *Store) Persist(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.save(ctx, s.current.Load())
}

// Reload replaces the in-memory contents with the persisted snapshot. A
// missing snapshot resets the store to empty.
func (s *Store) Reload(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap, err := s.persister.Load(ctx)
	if errors.Is(err, ErrSnapshotNotFound) {
		s.current.Store(&state{})
		s.logger.Info("no persisted snapshot found, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: loading snapshot: %w", ErrPersistence, err)
	}

	if err := snap.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	next := &state{}
	if snap.Len() > 0 {
		next = &state{
			index:  snap.Index(),
			chunks: snap.Chunks(),
		}
	}
	s.current.Store(next)

	s.logger.Info("loaded vector store snapshot",
		zap.Int("records", next.len()),
		zap.Int("dimension", snap.Dimension),
	)

	return nil
}

// Close closes the underlying persister.
func (s *Store) Close() error {
	return s.persister.Close()
}

func (s *Store) save(ctx context.Context, st *state) error {
	if err := s.persister.Save(ctx, st.snapshot()); err != nil {
		s.logger.Error("failed to persist vector store snapshot",
			zap.Int("records", st.len()),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func (st *state) snapshot() *Snapshot {
	snap := &Snapshot{
		Dimension: st.index.Dimension(),
		Records:   make([]Record, st.len()),
	}
	for i, c := range st.chunks {
		snap.Records[i] = Record{
			ID:        uint64(i),
			Chunk:     c,
			Embedding: st.index.Row(i),
		}
	}
	return snap
}
