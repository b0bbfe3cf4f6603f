// Package query answers questions from the chunks nearest to the question
// embedding. Answers are a fixed template over the retrieved context; no
// generative model is involved.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/pkg/embeddings"
	"github.com/papercomputeco/pdfqa/pkg/vector"
)

const (
	// DefaultTopK is the number of chunks retrieved when k is not given.
	DefaultTopK = 5

	// ContextSeparator joins retrieved chunk texts.
	ContextSeparator = "\n---\n"

	// AnswerPrefix starts every answer.
	AnswerPrefix = "Based on the documents, here's what I found:\n"
)

var (
	// ErrEmptyQuery is returned for a blank question.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrNoResults is returned when nothing has been ingested yet.
	ErrNoResults = errors.New("no documents have been ingested")
)

// Answer is the response to a question.
type Answer struct {
	Text    string          `json:"answer"`
	Context string          `json:"context"`
	Sources []vector.Result `json:"sources,omitempty"`
}

// Answerer embeds questions and searches the store.
type Answerer struct {
	store    *vector.Store
	embedder embeddings.Embedder
	logger   *zap.Logger
}

// NewAnswerer creates an Answerer.
func NewAnswerer(store *vector.Store, embedder embeddings.Embedder, logger *zap.Logger) *Answerer {
	return &Answerer{
		store:    store,
		embedder: embedder,
		logger:   logger,
	}
}

// Answer retrieves up to k chunks for q. A k of zero or less uses DefaultTopK.
func (a *Answerer) Answer(ctx context.Context, q string, k int) (*Answer, error) {
	if strings.TrimSpace(q) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultTopK
	}

	if a.store.Len() == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoResults, vector.ErrStoreEmpty)
	}

	embedding, err := a.embedder.Embed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := a.store.Search(ctx, embedding, k)
	if errors.Is(err, vector.ErrStoreEmpty) {
		return nil, fmt.Errorf("%w: %w", ErrNoResults, err)
	}
	if err != nil {
		return nil, fmt.Errorf("searching store: %w", err)
	}

	a.logger.Debug("answered query",
		zap.Int("top_k", k),
		zap.Int("results", len(results)),
	)

	return Compose(results), nil
}

// Compose builds the templated answer for results.
func Compose(results []vector.Result) *Answer {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}
	joined := strings.Join(texts, ContextSeparator)

	return &Answer{
		Text:    AnswerPrefix + joined,
		Context: joined,
		Sources: results,
	}
}
