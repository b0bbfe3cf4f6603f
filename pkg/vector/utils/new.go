// Package vectorutils builds snapshot persisters from configuration.
package vectorutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/pkg/vector"
	"github.com/papercomputeco/pdfqa/pkg/vector/file"
	"github.com/papercomputeco/pdfqa/pkg/vector/inmemory"
	"github.com/papercomputeco/pdfqa/pkg/vector/postgres"
	"github.com/papercomputeco/pdfqa/pkg/vector/qdrant"
	"github.com/papercomputeco/pdfqa/pkg/vector/sqlitevec"
)

const (
	ProviderFile     = "file"
	ProviderSQLite   = "sqlite"
	ProviderPostgres = "postgres"
	ProviderQdrant   = "qdrant"
	ProviderMemory   = "memory"
)

type NewPersisterOpts struct {
	// ProviderType selects the persister implementation.
	ProviderType string

	// Target is provider specific: a directory for "file", a database path
	// for "sqlite", a DSN for "postgres" and a host:port for "qdrant".
	Target string

	// Collection is the Qdrant collection name.
	Collection string

	Logger *zap.Logger
}

func NewPersister(ctx context.Context, o *NewPersisterOpts) (vector.Persister, error) {
	switch o.ProviderType {
	case ProviderFile:
		return file.NewPersister(file.Config{Dir: o.Target}, o.Logger)
	case ProviderSQLite:
		return sqlitevec.NewPersister(sqlitevec.Config{DBPath: o.Target}, o.Logger)
	case ProviderPostgres:
		return postgres.NewPersister(ctx, o.Target, o.Logger)
	case ProviderQdrant:
		return qdrant.NewPersister(qdrant.Config{
			Target:     o.Target,
			Collection: o.Collection,
		}, o.Logger)
	case ProviderMemory:
		return inmemory.NewPersister(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

// ValidProviders lists the supported persister names.
func ValidProviders() []string {
	return []string{ProviderFile, ProviderSQLite, ProviderPostgres, ProviderQdrant, ProviderMemory}
}
