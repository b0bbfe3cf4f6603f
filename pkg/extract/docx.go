package extract

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxLineBreak    = regexp.MustCompile(`<w:(br|cr)\s*/>`)
	docxTab          = regexp.MustCompile(`<w:tab\s*/>`)
	xmlTag           = regexp.MustCompile(`<[^>]*>`)
)

// DOCXExtractor reads the body text of a Word document. Paragraphs are
// separated by blank lines so the chunker splits them apart.
type DOCXExtractor struct{}

// ExtractPages returns the document text as a single page.
func (e *DOCXExtractor) ExtractPages(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrExtraction, path, err)
	}
	defer r.Close()

	return []string{docxText(r.Editable().GetContent())}, nil
}

// docxText strips WordprocessingML markup from document.xml content.
func docxText(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n\n")
	content = docxLineBreak.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = xmlTag.ReplaceAllString(content, "")
	return strings.TrimSpace(html.UnescapeString(content))
}
