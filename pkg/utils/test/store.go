package testutils

import (
	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/pkg/vector"
	"github.com/papercomputeco/pdfqa/pkg/vector/inmemory"
)

// NewStore returns an empty vector store backed by an in-memory persister.
func NewStore() (*vector.Store, *inmemory.Persister, error) {
	p := inmemory.NewPersister()
	s, err := vector.NewStore(vector.Config{
		Persister: p,
		Logger:    zap.NewNop(),
	})
	if err != nil {
		return nil, nil, err
	}
	return s, p, nil
}
