// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"github.com/papercomputeco/pdfqa/pkg/embeddings"
	"github.com/papercomputeco/pdfqa/pkg/embeddings/hashing"
	"github.com/papercomputeco/pdfqa/pkg/embeddings/ollama"
	"github.com/papercomputeco/pdfqa/pkg/embeddings/openai"
)

const (
	ProviderHashing = "hashing"
	ProviderOllama  = "ollama"
	ProviderOpenAI  = "openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string

	// APIKey is only used by the "openai" provider.
	APIKey string

	// Dimension is only used by the "hashing" provider.
	Dimension int
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case ProviderHashing, "":
		return hashing.NewEmbedder(hashing.EmbedderConfig{
			Dimension: o.Dimension,
		})
	case ProviderOllama:
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case ProviderOpenAI:
		return openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL: o.TargetURL,
			APIKey:  o.APIKey,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}

// ValidProviders lists the supported embedding provider names.
func ValidProviders() []string {
	return []string{ProviderHashing, ProviderOllama, ProviderOpenAI}
}
