// Package file provides a vector.Persister that stores snapshots as two files
// in a directory: a binary index and a msgpack chunk sequence.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/pkg/vector"
)

const (
	// IndexFile holds the binary nearest-neighbor index.
	IndexFile = "index.bin"

	// ChunksFile holds the ordered chunk texts and metadata.
	ChunksFile = "chunks.msgpack"
)

// Config holds configuration for the file persister.
type Config struct {
	// Dir is the directory holding the snapshot files. It is created if missing.
	Dir string
}

// Persister implements vector.Persister on the local filesystem.
type Persister struct {
	dir    string
	logger *zap.Logger
}

// NewPersister creates a file persister rooted at c.Dir.
func NewPersister(c Config, logger *zap.Logger) (*Persister, error) {
	if c.Dir == "" {
		return nil, errors.New("snapshot directory is required")
	}

	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory %s: %w", c.Dir, err)
	}

	logger.Debug("file snapshot persister initialized", zap.String("dir", c.Dir))

	return &Persister{
		dir:    c.Dir,
		logger: logger,
	}, nil
}

// Save writes both snapshot files to temporary names and renames them into
// place, index first.
func (p *Persister) Save(ctx context.Context, snap *vector.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx := snap.Index()
	if err := p.writeAtomic(IndexFile, func(w io.Writer) error {
		return vector.EncodeIndex(w, idx)
	}); err != nil {
		return err
	}

	if err := p.writeAtomic(ChunksFile, func(w io.Writer) error {
		return vector.EncodeChunks(w, snap.Chunks())
	}); err != nil {
		return err
	}

	p.logger.Debug("saved snapshot",
		zap.String("dir", p.dir),
		zap.Int("records", snap.Len()),
	)

	return nil
}

// Load reads the snapshot files. Both files missing means no snapshot was
// ever saved.
//
// Index and chunks are append-only, so a crash between the two renames leaves
// one file longer than the other; Load then recovers the common prefix.
func (p *Persister) Load(ctx context.Context) (*vector.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	indexFile, indexErr := os.Open(filepath.Join(p.dir, IndexFile))
	chunksFile, chunksErr := os.Open(filepath.Join(p.dir, ChunksFile))
	if indexFile != nil {
		defer indexFile.Close()
	}
	if chunksFile != nil {
		defer chunksFile.Close()
	}

	switch {
	case errors.Is(indexErr, os.ErrNotExist) && errors.Is(chunksErr, os.ErrNotExist):
		return nil, vector.ErrSnapshotNotFound
	case indexErr != nil:
		return nil, fmt.Errorf("opening index file: %w", indexErr)
	case chunksErr != nil:
		return nil, fmt.Errorf("opening chunks file: %w", chunksErr)
	}

	idx, err := vector.DecodeIndex(indexFile)
	if err != nil {
		return nil, err
	}

	chunks, err := vector.DecodeChunks(chunksFile)
	if err != nil {
		return nil, err
	}

	if idx.Len() != len(chunks) {
		n := min(idx.Len(), len(chunks))
		p.logger.Warn("snapshot files disagree, recovering common prefix",
			zap.Int("index_records", idx.Len()),
			zap.Int("chunk_records", len(chunks)),
			zap.Int("recovered", n),
		)
		idx = truncate(idx, n)
		chunks = chunks[:n]
	}

	return vector.NewSnapshot(idx, chunks)
}

// Close is a no-op.
func (p *Persister) Close() error {
	return nil
}

func (p *Persister) writeAtomic(name string, encode func(io.Writer) error) error {
	tmp, err := os.CreateTemp(p.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err := encode(tmp); err != nil {
		cleanup()
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("syncing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", name, err)
	}

	if err := os.Rename(tmpName, filepath.Join(p.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming %s into place: %w", name, err)
	}

	return nil
}

func truncate(idx *vector.FlatIndex, n int) *vector.FlatIndex {
	rows := make([][]float32, n)
	for i := range n {
		rows[i] = idx.Row(i)
	}
	out, _ := vector.NewFlatIndex(idx.Dimension()).Append(rows)
	return out
}

var _ vector.Persister = (*Persister)(nil)
