// Package chunker splits extracted page text into paragraph chunks.
package chunker

import "strings"

// ParagraphSeparator separates paragraphs within a page.
const ParagraphSeparator = "\n\n"

// Chunk splits every page on blank lines and returns the trimmed, non-empty
// paragraphs in page order then paragraph order.
func Chunk(pages []string) []string {
	chunks := []string{}
	for _, page := range pages {
		for _, para := range strings.Split(page, ParagraphSeparator) {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			chunks = append(chunks, para)
		}
	}
	return chunks
}
