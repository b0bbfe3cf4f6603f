// Package cliui holds the terminal output helpers shared by the pdfqa
// commands: per-document progress steps, key/value lines and markdown
// answers.
package cliui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	NameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// Same frames as the chat TUI spinner (spinner.Dot).
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const spinnerInterval = 80 * time.Millisecond

// Step runs fn behind a spinner and prints a ✓ or ✗ line with the elapsed
// time.
func Step(w io.Writer, msg string, fn func() error) error {
	return StepSummary(w, msg, func() (string, error) {
		return "", fn()
	})
}

// StepSummary is Step for work that reports a short result, such as the
// number of chunks a document produced. The summary is printed next to the
// label on success; on failure the error is printed on an indented line.
func StepSummary(w io.Writer, msg string, fn func() (string, error)) error {
	stop := spin(w, msg)

	start := time.Now()
	summary, err := fn()
	elapsed := time.Since(start)

	stop()

	line := msg
	if err == nil && summary != "" {
		line += "  " + ValueStyle.Render(summary)
	}
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		line,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	if err != nil {
		fmt.Fprintf(w, "    %s\n", DimStyle.Render(err.Error()))
	}

	return err
}

// spin animates a spinner on the current line until the returned func is
// called. The func returns once the animation goroutine has exited.
func spin(w io.Writer, msg string) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)

			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// KeyValue prints an indented "key value" line. An empty value prints as
// "<not set>".
func KeyValue(w io.Writer, key, value string) {
	rendered := ValueStyle.Render(value)
	if value == "" {
		rendered = DimStyle.Render("<not set>")
	}
	fmt.Fprintf(w, "  %s  %s\n", KeyStyle.Render(key), rendered)
}

// Notice prints a dimmed, indented line.
func Notice(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s\n", DimStyle.Render(msg))
}

// Chunks formats a chunk count ("1 chunk", "12 chunks").
func Chunks(n int) string {
	if n == 1 {
		return "1 chunk"
	}
	return fmt.Sprintf("%d chunks", n)
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders an answer for the terminal with glamour, wrapped at
// 80 columns. On failure the input is returned unchanged with the error.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}
