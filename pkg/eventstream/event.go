package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIngested is emitted after a document's chunks are persisted.
	EventTypeDocumentIngested = "pdfqa.document.ingested"
)

// DocumentIngestedEvent is a transport-neutral event payload for an ingested document.
type DocumentIngestedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	// Source is the document name the chunks were stored under.
	Source string `json:"source"`

	ChunkCount      int `json:"chunk_count"`
	FirstChunkIndex int `json:"first_chunk_index"`

	// StoreSize is the number of chunks in the store after the ingestion.
	StoreSize int `json:"store_size"`
}

// NewDocumentIngestedEvent builds a v1 event with a fresh ID and timestamp.
func NewDocumentIngestedEvent(source string, chunkCount, firstChunkIndex, storeSize int) *DocumentIngestedEvent {
	return &DocumentIngestedEvent{
		SchemaVersion:   SchemaVersionV1,
		EventType:       EventTypeDocumentIngested,
		EventID:         "evt_" + uuid.NewString(),
		EmittedAt:       time.Now().UTC(),
		Source:          source,
		ChunkCount:      chunkCount,
		FirstChunkIndex: firstChunkIndex,
		StoreSize:       storeSize,
	}
}
