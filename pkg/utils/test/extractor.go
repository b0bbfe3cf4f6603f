package testutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/pdfqa/pkg/extract"
)

// MockExtractor returns fixed pages per path.
type MockExtractor struct {
	Pages map[string][]string
}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{Pages: make(map[string][]string)}
}

func (m *MockExtractor) ExtractPages(_ context.Context, path string) ([]string, error) {
	pages, ok := m.Pages[path]
	if !ok {
		return nil, fmt.Errorf("%w: no pages for %s", extract.ErrExtraction, path)
	}
	return pages, nil
}

var _ extract.Extractor = (*MockExtractor)(nil)
