// Package components builds the store, embedder and pipelines shared by the
// pdfqa commands from a resolved configuration.
package components

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/pkg/config"
	"github.com/papercomputeco/pdfqa/pkg/dotdir"
	"github.com/papercomputeco/pdfqa/pkg/embeddings"
	"github.com/papercomputeco/pdfqa/pkg/embeddings/hashing"
	embeddingutils "github.com/papercomputeco/pdfqa/pkg/embeddings/utils"
	"github.com/papercomputeco/pdfqa/pkg/eventstream"
	"github.com/papercomputeco/pdfqa/pkg/eventstream/kafka"
	"github.com/papercomputeco/pdfqa/pkg/eventstream/nop"
	"github.com/papercomputeco/pdfqa/pkg/extract"
	"github.com/papercomputeco/pdfqa/pkg/ingest"
	"github.com/papercomputeco/pdfqa/pkg/query"
	"github.com/papercomputeco/pdfqa/pkg/vector"
	vectorutils "github.com/papercomputeco/pdfqa/pkg/vector/utils"
)

const (
	EventsProviderNop   = "nop"
	EventsProviderKafka = "kafka"

	sqliteFileName = "pdfqa.sqlite"
)

// Dirs are the resolved local directories.
type Dirs struct {
	Data    string
	Uploads string
}

// Components holds everything needed to ingest documents and answer
// questions in-process.
type Components struct {
	Dirs      Dirs
	Store     *vector.Store
	Embedder  embeddings.Embedder
	Extractor *extract.Registry
	Publisher eventstream.Publisher
	Ingester  *ingest.Ingester
	Answerer  *query.Answerer

	logger *zap.Logger
}

// ResolveDirs returns the data and upload directories, falling back to
// data/ and uploads/ inside the .pdfqa/ directory.
func ResolveDirs(cfg *config.Config, configDir string) (Dirs, error) {
	ddm := dotdir.NewManager()
	dirs := Dirs{
		Data:    cfg.Storage.DataDir,
		Uploads: cfg.Storage.UploadDir,
	}

	var err error
	if dirs.Data == "" {
		if dirs.Data, err = ddm.Subdir(configDir, "data"); err != nil {
			return Dirs{}, fmt.Errorf("resolving data dir: %w", err)
		}
	}
	if dirs.Uploads == "" {
		if dirs.Uploads, err = ddm.Subdir(configDir, "uploads"); err != nil {
			return Dirs{}, fmt.Errorf("resolving upload dir: %w", err)
		}
	}

	return dirs, nil
}

// VectorTarget returns the persister target, defaulting local providers to
// paths inside the data directory.
func VectorTarget(cfg *config.Config, dataDir string) string {
	if cfg.VectorStore.Target != "" {
		return cfg.VectorStore.Target
	}

	switch cfg.VectorStore.Provider {
	case vectorutils.ProviderFile:
		return dataDir
	case vectorutils.ProviderSQLite:
		return filepath.Join(dataDir, sqliteFileName)
	default:
		return ""
	}
}

// New builds and wires all components and loads the persisted snapshot.
func New(ctx context.Context, cfg *config.Config, configDir string, logger *zap.Logger) (*Components, error) {
	dirs, err := ResolveDirs(cfg, configDir)
	if err != nil {
		return nil, err
	}

	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	persister, err := vectorutils.NewPersister(ctx, &vectorutils.NewPersisterOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       VectorTarget(cfg, dirs.Data),
		Collection:   cfg.VectorStore.Collection,
		Logger:       logger,
	})
	if err != nil {
		embedder.Close()
		return nil, fmt.Errorf("creating vector store persister: %w", err)
	}

	store, err := vector.NewStore(vector.Config{Persister: persister, Logger: logger})
	if err != nil {
		persister.Close()
		embedder.Close()
		return nil, err
	}

	c := &Components{
		Dirs:      dirs,
		Store:     store,
		Embedder:  embedder,
		Extractor: extract.NewRegistry(),
		logger:    logger,
	}

	if err := store.Reload(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("loading vector store: %w", err)
	}

	c.Publisher, err = NewPublisher(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Ingester, err = ingest.NewIngester(ingest.Config{
		Extractor: c.Extractor,
		Embedder:  c.Embedder,
		Store:     c.Store,
		Publisher: c.Publisher,
		Logger:    logger,
	})
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Answerer = query.NewAnswerer(c.Store, c.Embedder, logger)

	if cfg.Embedding.Provider == embeddingutils.ProviderHashing || cfg.Embedding.Provider == "" {
		logger.Info("using the offline hashing embedder: retrieval matches shared words, not meaning")
	}

	logger.Debug("components ready",
		zap.String("data_dir", dirs.Data),
		zap.String("vector_store", cfg.VectorStore.Provider),
		zap.String("embedding", cfg.Embedding.Provider),
		zap.String("events", cfg.Events.Provider),
		zap.Int("records", store.Len()),
	)

	return c, nil
}

// NewEmbedder builds the configured embedding provider.
func NewEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	if cfg.Embedding.Dimensions > math.MaxInt32 {
		return nil, fmt.Errorf("embedding dimensions %d out of range", cfg.Embedding.Dimensions)
	}

	// The hashing model name is a default, not a choice, for other providers.
	model := cfg.Embedding.Model
	if model == hashing.ModelName && cfg.Embedding.Provider != embeddingutils.ProviderHashing {
		model = ""
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        model,
		Dimension:    int(cfg.Embedding.Dimensions),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return embedder, nil
}

// NewPublisher builds the configured ingestion event publisher.
func NewPublisher(cfg *config.Config, logger *zap.Logger) (eventstream.Publisher, error) {
	switch cfg.Events.Provider {
	case EventsProviderNop, "":
		return nop.NewPublisher(), nil
	case EventsProviderKafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: SplitList(cfg.Events.Brokers),
			Topic:   cfg.Events.Topic,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", cfg.Events.Provider)
	}
}

// SplitList splits a comma separated list, dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Close releases every component. The store is closed last so pending
// publishes do not outlive it.
func (c *Components) Close() error {
	var errs []error

	if c.Publisher != nil {
		errs = append(errs, c.Publisher.Close())
	}
	if c.Embedder != nil {
		errs = append(errs, c.Embedder.Close())
	}
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}

	return errors.Join(errs...)
}
