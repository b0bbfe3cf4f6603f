// Package sqlitevec provides a SQLite-backed snapshot persister using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/pkg/vector"
)

// Persister implements vector.Persister using SQLite with sqlite-vec.
// Chunks live in a regular table and embeddings in a vec0 virtual table
// sharing the chunk id as rowid.
type Persister struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite vec persister.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

// NewPersister creates a new SQLite snapshot persister backed by sqlite-vec.
func NewPersister(c Config, logger *zap.Logger) (*Persister, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive between calls and
	// serializes snapshot rewrites.
	db.SetMaxOpenConns(1)

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot_meta (
			id INTEGER PRIMARY KEY CHECK (id = 0),
			dimension INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chunks (
			id INTEGER PRIMARY KEY,
			text TEXT NOT NULL,
			source TEXT NOT NULL,
			chunk_index INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot tables: %w", err)
	}

	logger.Info("sqlite-vec snapshot persister initialized",
		zap.String("db_path", c.DBPath),
		zap.String("vec_version", vecVersion),
	)

	return &Persister{
		db:     db,
		logger: logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Save rewrites the whole snapshot in a single transaction.
func (p *Persister) Save(ctx context.Context, snap *vector.Snapshot) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// vec0 tables have a fixed dimension, so the embeddings table is
	// recreated for every save.
	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS vec_chunks`); err != nil {
		return fmt.Errorf("dropping vec0 table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	if snap.Dimension > 0 {
		createVec := fmt.Sprintf(
			`CREATE VIRTUAL TABLE vec_chunks USING vec0(embedding float[%d])`,
			snap.Dimension,
		)
		if _, err := tx.ExecContext(ctx, createVec); err != nil {
			return fmt.Errorf("creating vec0 table: %w", err)
		}
	}

	for _, r := range snap.Records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks(id, text, source, chunk_index) VALUES (?, ?, ?, ?)`,
			int64(r.ID), r.Chunk.Text, r.Chunk.Source, r.Chunk.ChunkIndex,
		); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", r.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_chunks(rowid, embedding) VALUES (?, ?)`,
			int64(r.ID), serializeFloat32(r.Embedding),
		); err != nil {
			return fmt.Errorf("inserting embedding %d: %w", r.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshot_meta(id, dimension) VALUES (0, ?)
		 ON CONFLICT(id) DO UPDATE SET dimension = excluded.dimension`,
		snap.Dimension,
	); err != nil {
		return fmt.Errorf("writing snapshot metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	p.logger.Debug("saved snapshot to sqlite-vec",
		zap.Int("records", snap.Len()),
	)

	return nil
}

// Load reads the persisted snapshot.
func (p *Persister) Load(ctx context.Context) (*vector.Snapshot, error) {
	var dimension int
	err := p.db.QueryRowContext(ctx, `SELECT dimension FROM snapshot_meta WHERE id = 0`).Scan(&dimension)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, vector.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot metadata: %w", err)
	}

	snap := &vector.Snapshot{Dimension: dimension}
	if dimension == 0 {
		return snap, nil
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT c.id, c.text, c.source, c.chunk_index, v.embedding
		FROM chunks c
		INNER JOIN vec_chunks v ON v.rowid = c.id
		ORDER BY c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r    vector.Record
			id   int64
			blob []byte
		)
		if err := rows.Scan(&id, &r.Chunk.Text, &r.Chunk.Source, &r.Chunk.ChunkIndex, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		r.ID = uint64(id)
		r.Embedding, err = deserializeFloat32(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", vector.ErrCorruptSnapshot, id, err)
		}

		snap.Records = append(snap.Records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot: %w", err)
	}

	p.logger.Debug("loaded snapshot from sqlite-vec",
		zap.Int("records", snap.Len()),
	)

	return snap, nil
}

// Close releases resources held by the persister.
func (p *Persister) Close() error {
	return p.db.Close()
}

var _ vector.Persister = (*Persister)(nil)
