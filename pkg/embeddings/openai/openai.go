// Package openai implements pkg/embeddings' Embedder for OpenAI-compatible
// embedding APIs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/pdfqa/pkg/embeddings"
)

const (
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = string(goopenai.SmallEmbedding3)

	// APIKeyEnv is read when no API key is configured.
	APIKeyEnv = "OPENAI_API_KEY"
)

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// BaseURL overrides the API base URL (e.g. a local OpenAI-compatible
	// server). Empty means the OpenAI API.
	BaseURL string

	// APIKey defaults to the OPENAI_API_KEY environment variable.
	APIKey string

	// Model defaults to DefaultEmbeddingModel.
	Model string
}

// Embedder wraps the OpenAI embeddings endpoint.
type Embedder struct {
	client *goopenai.Client
	model  string
}

// NewEmbedder creates an OpenAI embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv(APIKeyEnv)
	}
	if key == "" {
		return nil, errors.New(APIKeyEnv + " environment variable not set")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	clientConfig := goopenai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client: goopenai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts with a single request.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", embeddings.ErrEmbedding, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: requested %d embeddings, got %d",
			embeddings.ErrEmbedding, len(texts), len(resp.Data))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Index < data[j].Index
	})

	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}

	return out, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
