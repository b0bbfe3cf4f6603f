package api

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/pkg/extract"
	"github.com/papercomputeco/pdfqa/pkg/query"
	"github.com/papercomputeco/pdfqa/pkg/vector"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UploadResponse is returned after a document is ingested.
type UploadResponse struct {
	ChunkCount int    `json:"chunkCount"`
	Source     string `json:"source"`
}

// QueryRequest is the body of POST /query. Both JSON and form encodings are
// accepted.
type QueryRequest struct {
	Query string `json:"query" form:"query"`
	TopK  int    `json:"top_k" form:"top_k"`
}

// QueryResponse is the templated answer with its retrieved context.
type QueryResponse struct {
	Answer  string      `json:"answer" yaml:"answer"`
	Context string      `json:"context" yaml:"context"`
	Sources []SourceRef `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// SourceRef identifies a retrieved chunk.
type SourceRef struct {
	Source     string  `json:"source" yaml:"source"`
	ChunkIndex int     `json:"chunkIndex" yaml:"chunkIndex"`
	Distance   float32 `json:"distance" yaml:"distance"`
}

// NewQueryResponse converts an answer into its wire representation.
func NewQueryResponse(ans *query.Answer) *QueryResponse {
	sources := make([]SourceRef, len(ans.Sources))
	for i, r := range ans.Sources {
		sources[i] = SourceRef{
			Source:     r.Metadata.Source,
			ChunkIndex: r.Metadata.ChunkIndex,
			Distance:   r.Distance,
		}
	}

	return &QueryResponse{
		Answer:  ans.Text,
		Context: ans.Context,
		Sources: sources,
	}
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStats returns statistics about the store.
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.config.Store.Stats())
}

// handleUploadDocument saves the multipart "file" field and ingests it.
func (s *Server) handleUploadDocument(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "multipart field \"file\" is required"})
	}

	name := sanitizeFilename(file.Filename)
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "file name is required"})
	}

	dest := filepath.Join(s.config.UploadDir, uuid.NewString()+"_"+name)
	if err := c.SaveFile(file, dest); err != nil {
		s.logger.Error("failed to save upload",
			zap.String("source", name),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to save upload"})
	}

	res, err := s.config.Ingester.Ingest(c.Context(), dest, name)
	if err != nil || !s.config.KeepUploads {
		if rmErr := os.Remove(dest); rmErr != nil {
			s.logger.Warn("failed to remove upload", zap.String("path", dest), zap.Error(rmErr))
		}
	}
	if err != nil {
		s.logger.Error("ingestion failed",
			zap.String("source", name),
			zap.Error(err),
		)
		return c.Status(ingestStatus(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(UploadResponse{
		ChunkCount: res.ChunkCount,
		Source:     res.Source,
	})
}

// handleQuery answers a question from the stored chunks.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	var req QueryRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
		}
	}
	if req.Query == "" {
		req.Query = c.Query("query")
	}
	if req.TopK < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "top_k must be a positive integer"})
	}

	ans, err := s.config.Answerer.Answer(c.Context(), req.Query, req.TopK)
	switch {
	case errors.Is(err, query.ErrEmptyQuery):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, query.ErrNoResults):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: query.ErrNoResults.Error()})
	case err != nil:
		s.logger.Error("query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(NewQueryResponse(ans))
}

// ingestStatus maps ingestion errors to HTTP status codes.
func ingestStatus(err error) int {
	switch {
	case errors.Is(err, extract.ErrExtraction), errors.Is(err, vector.ErrInvalidEmbedding):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, vector.ErrDimensionMismatch):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// sanitizeFilename keeps only the base name of an uploaded file.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return strings.TrimSpace(name)
}
