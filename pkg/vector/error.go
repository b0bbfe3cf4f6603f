package vector

import "errors"

var (
	// ErrDimensionMismatch is returned when an embedding does not match the
	// dimension fixed by the first add.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidEmbedding is returned when a vector holds NaN or infinite
	// components.
	ErrInvalidEmbedding = errors.New("embedding has non-finite components")

	// ErrEmptyBatch is returned when AddDocuments is called without chunks.
	ErrEmptyBatch = errors.New("empty batch")

	// ErrLengthMismatch is returned when chunk and embedding counts differ.
	ErrLengthMismatch = errors.New("chunk and embedding counts differ")

	// ErrStoreEmpty is returned when searching a store with no records.
	ErrStoreEmpty = errors.New("vector store is empty")

	// ErrInvalidK is returned for a non-positive result count.
	ErrInvalidK = errors.New("k must be a positive integer")

	// ErrPersistence is returned when a snapshot cannot be saved or loaded.
	ErrPersistence = errors.New("snapshot persistence failed")

	// ErrSnapshotNotFound is returned by persisters when no snapshot exists.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrCorruptSnapshot is returned when a persisted snapshot fails validation.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)
