// Package api provides the HTTP API server for uploading documents and
// asking questions about them.
package api

import (
	"github.com/papercomputeco/pdfqa/pkg/ingest"
	"github.com/papercomputeco/pdfqa/pkg/query"
	"github.com/papercomputeco/pdfqa/pkg/vector"
)

// DefaultBodyLimit caps upload request bodies.
const DefaultBodyLimit = 32 * 1024 * 1024

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// UploadDir is where uploaded files are saved before ingestion.
	UploadDir string

	// BodyLimit is the maximum request body size in bytes.
	BodyLimit int

	// KeepUploads keeps uploaded files on disk after ingestion.
	KeepUploads bool

	Store    *vector.Store
	Ingester *ingest.Ingester
	Answerer *query.Answerer
}
