// Package ingest turns documents into stored, embedded chunks.
//
// Ingester runs the synchronous extract, chunk, embed and store pipeline.
// Pool and Watcher run it in the background for files dropped into an
// inbox directory.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/pkg/chunker"
	"github.com/papercomputeco/pdfqa/pkg/embeddings"
	"github.com/papercomputeco/pdfqa/pkg/eventstream"
	"github.com/papercomputeco/pdfqa/pkg/extract"
	"github.com/papercomputeco/pdfqa/pkg/vector"
)

// Result summarizes one ingested document.
type Result struct {
	Source     string `json:"source"`
	ChunkCount int    `json:"chunkCount"`

	// FirstChunkIndex is the global index of the first stored chunk, or -1
	// when the document produced no chunks.
	FirstChunkIndex int `json:"firstChunkIndex"`
}

// Config is the ingester configuration.
type Config struct {
	Extractor extract.Extractor
	Embedder  embeddings.Embedder
	Store     *vector.Store

	// Publisher is optional. Publish failures are logged, never returned.
	Publisher eventstream.Publisher

	Logger *zap.Logger
}

// Ingester runs the ingestion pipeline for single documents.
type Ingester struct {
	extractor extract.Extractor
	embedder  embeddings.Embedder
	store     *vector.Store
	publisher eventstream.Publisher
	logger    *zap.Logger
}

// NewIngester creates an Ingester.
func NewIngester(c Config) (*Ingester, error) {
	if c.Extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if c.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if c.Store == nil {
		return nil, errors.New("store is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	return &Ingester{
		extractor: c.Extractor,
		embedder:  c.Embedder,
		store:     c.Store,
		publisher: c.Publisher,
		logger:    c.Logger,
	}, nil
}

// Ingest extracts the document at path, chunks it, embeds every chunk and
// appends the chunks to the store under source. Any failure leaves the store
// untouched. A document without text yields a zero-chunk result.
func (i *Ingester) Ingest(ctx context.Context, path, source string) (*Result, error) {
	pages, err := i.extractor.ExtractPages(ctx, path)
	if err != nil {
		return nil, err
	}

	chunks := chunker.Chunk(pages)
	if len(chunks) == 0 {
		i.logger.Warn("document contains no extractable text",
			zap.String("source", source),
			zap.Int("pages", len(pages)),
		)
		return &Result{Source: source, ChunkCount: 0, FirstChunkIndex: -1}, nil
	}

	vecs, err := i.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", source, err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d chunks",
			embeddings.ErrEmbedding, len(vecs), len(chunks))
	}

	records, err := i.store.AddDocuments(ctx, chunks, vecs, source)
	if err != nil {
		return nil, fmt.Errorf("storing %s: %w", source, err)
	}

	res := &Result{
		Source:          source,
		ChunkCount:      len(records),
		FirstChunkIndex: records[0].Chunk.ChunkIndex,
	}

	i.logger.Info("document ingested",
		zap.String("source", source),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", res.ChunkCount),
		zap.Int("first_chunk_index", res.FirstChunkIndex),
	)

	i.publish(ctx, res)

	return res, nil
}

func (i *Ingester) publish(ctx context.Context, res *Result) {
	if i.publisher == nil {
		return
	}

	event := eventstream.NewDocumentIngestedEvent(res.Source, res.ChunkCount, res.FirstChunkIndex, i.store.Len())
	if err := i.publisher.PublishIngested(ctx, event); err != nil {
		i.logger.Warn("failed to publish ingestion event",
			zap.String("source", res.Source),
			zap.Error(err),
		)
	}
}
