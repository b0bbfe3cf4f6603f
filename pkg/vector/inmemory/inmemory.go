// Package inmemory provides a vector.Persister that keeps the last saved
// snapshot in process memory.
package inmemory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/papercomputeco/pdfqa/pkg/vector"
)

// ErrInjected is returned by Save while failure injection is enabled.
var ErrInjected = errors.New("injected save failure")

// Persister implements vector.Persister using an in-memory copy.
type Persister struct {
	// mu guards the saved snapshot and the failure flag
	mu sync.RWMutex

	snap     *vector.Snapshot
	saves    int
	failSave bool
}

// NewPersister creates an empty in-memory persister.
func NewPersister() *Persister {
	return &Persister{}
}

// Save stores a deep copy of snap.
func (p *Persister) Save(_ context.Context, snap *vector.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failSave {
		return ErrInjected
	}

	p.snap = clone(snap)
	p.saves++
	return nil
}

// Load returns a copy of the last saved snapshot.
func (p *Persister) Load(_ context.Context) (*vector.Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.snap == nil {
		return nil, vector.ErrSnapshotNotFound
	}
	return clone(p.snap), nil
}

// FailSaves makes subsequent Save calls fail (or succeed again) for testing
// persistence failure handling.
func (p *Persister) FailSaves(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failSave = fail
}

// Saves returns the number of successful saves.
func (p *Persister) Saves() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.saves
}

// Close is a no-op.
func (p *Persister) Close() error {
	return nil
}

func clone(snap *vector.Snapshot) *vector.Snapshot {
	out := &vector.Snapshot{
		Dimension: snap.Dimension,
		Records:   make([]vector.Record, len(snap.Records)),
	}
	for i, r := range snap.Records {
		out.Records[i] = vector.Record{
			ID:        r.ID,
			Chunk:     r.Chunk,
			Embedding: slices.Clone(r.Embedding),
		}
	}
	return out
}

var _ vector.Persister = (*Persister)(nil)
