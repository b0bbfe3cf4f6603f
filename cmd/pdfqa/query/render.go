package querycmder

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/pdfqa/api"
	"github.com/papercomputeco/pdfqa/pkg/cliui"
	"github.com/papercomputeco/pdfqa/pkg/query"
)

const (
	OutputMarkdown = "markdown"
	OutputJSON     = "json"
	OutputYAML     = "yaml"
)

// ValidOutputs lists the supported --output formats.
func ValidOutputs() []string {
	return []string{OutputMarkdown, OutputJSON, OutputYAML}
}

// Render writes resp to w in the given output format.
func Render(w io.Writer, format, question string, resp *api.QueryResponse) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)

	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return err
		}
		return enc.Close()

	case OutputMarkdown, "":
		md := Markdown(question, resp)
		rendered, err := cliui.RenderMarkdown(md)
		if err != nil {
			// Fall back to the raw markdown.
			rendered = md
		}
		_, err = io.WriteString(w, rendered)
		return err

	default:
		return fmt.Errorf("unsupported output format %q (available: %s)", format, strings.Join(ValidOutputs(), ", "))
	}
}

// Markdown formats resp as a markdown document: the question, every retrieved
// passage as a quote and a source list.
func Markdown(question string, resp *api.QueryResponse) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s\n\n", question)
	b.WriteString(strings.TrimSuffix(query.AnswerPrefix, "\n"))
	b.WriteString("\n\n")

	passages := strings.Split(resp.Context, query.ContextSeparator)
	for i, p := range passages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		for _, line := range strings.Split(p, "\n") {
			fmt.Fprintf(&b, "> %s\n", line)
		}
		if i < len(resp.Sources) {
			src := resp.Sources[i]
			fmt.Fprintf(&b, "\n*%s, chunk %d*\n", src.Source, src.ChunkIndex)
		}
		b.WriteString("\n")
	}

	if len(resp.Sources) > 0 {
		b.WriteString("### Sources\n\n")
		for _, src := range resp.Sources {
			fmt.Fprintf(&b, "- `%s` chunk %d (distance %.4f)\n", src.Source, src.ChunkIndex, src.Distance)
		}
	}

	return b.String()
}
