package extract

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"
)

// TextExtractor reads plain text and markdown files as a single page.
type TextExtractor struct{}

// ExtractPages returns the file content as a single page.
func (e *TextExtractor) ExtractPages(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrExtraction, path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", ErrExtraction, path)
	}

	return []string{string(data)}, nil
}
