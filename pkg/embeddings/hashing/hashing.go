// Package hashing implements an offline, deterministic embedder based on
// feature hashing. It needs no model server and is the default provider.
package hashing

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/papercomputeco/pdfqa/pkg/embeddings"
)

const (
	// DefaultDimension is the default number of hash buckets.
	DefaultDimension = 384

	// ModelName identifies vectors produced by this embedder.
	ModelName = "hashing-v1"
)

// EmbedderConfig holds configuration for the hashing embedder.
type EmbedderConfig struct {
	// Dimension is the number of hash buckets. Defaults to DefaultDimension.
	Dimension int
}

// Embedder hashes lowercase word unigrams and bigrams into a fixed number of
// buckets. The sign of each contribution comes from a second hash bit so
// collisions tend to cancel out. Vectors are L2-normalized.
type Embedder struct {
	dim int
}

// NewEmbedder creates a hashing embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	dim := cfg.Dimension
	if dim == 0 {
		dim = DefaultDimension
	}
	if dim < 0 {
		return nil, errors.New("dimension must be positive")
	}
	return &Embedder{dim: dim}, nil
}

// Dimension returns the vector size produced by this embedder.
func (e *Embedder) Dimension() int {
	return e.dim
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text), nil
}

// EmbedBatch embeds every text independently.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(t)
	}
	return out, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

func (e *Embedder) embed(text string) []float32 {
	acc := make([]float64, e.dim)

	tokens := tokenize(text)
	for i, tok := range tokens {
		e.add(acc, tok, 1)
		if i > 0 {
			e.add(acc, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, e.dim)
	if norm == 0 {
		return vec
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (e *Embedder) add(acc []float64, feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	bucket := h % uint64(e.dim)
	if h&(1<<63) != 0 {
		weight = -weight
	}
	acc[bucket] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

var _ embeddings.Embedder = (*Embedder)(nil)
