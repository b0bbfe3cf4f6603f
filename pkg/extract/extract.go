// Package extract turns uploaded documents into per-page plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrExtraction wraps every failure to read text out of a document.
var ErrExtraction = errors.New("text extraction failed")

// Extractor returns the plain text of a document, one string per page.
// Formats without pages return a single string.
type Extractor interface {
	ExtractPages(ctx context.Context, path string) ([]string, error)
}

// Registry dispatches to an Extractor by lowercase file extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns a registry with the PDF, DOCX and plain text
// extractors registered.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(".pdf", &PDFExtractor{})
	r.Register(".docx", &DOCXExtractor{})
	r.Register(".txt", &TextExtractor{})
	r.Register(".md", &TextExtractor{})
	return r
}

// Register adds or replaces the extractor for ext (e.g. ".pdf").
func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ForPath returns the extractor registered for the extension of path.
func (r *Registry) ForPath(path string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported file format %q", ErrExtraction, ext)
	}
	return e, nil
}

// ExtractPages extracts path with the extractor matching its extension.
func (r *Registry) ExtractPages(ctx context.Context, path string) ([]string, error) {
	e, err := r.ForPath(path)
	if err != nil {
		return nil, err
	}
	return e.ExtractPages(ctx, path)
}

var _ Extractor = (*Registry)(nil)
