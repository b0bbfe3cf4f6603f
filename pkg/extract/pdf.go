package extract

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads the plain text layer of every PDF page.
type PDFExtractor struct{}

// ExtractPages returns one string per page. Pages without a content stream
// yield an empty string.
func (e *PDFExtractor) ExtractPages(ctx context.Context, path string) (pages []string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %s: malformed pdf: %v", ErrExtraction, path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrExtraction, path, err)
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages = make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() || page.V.Key("Contents").IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s page %d: %v", ErrExtraction, path, i, err)
		}
		pages = append(pages, text)
	}

	return pages, nil
}
