package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/pdfqa/api"
	querycmder "github.com/papercomputeco/pdfqa/cmd/pdfqa/query"
	"github.com/papercomputeco/pdfqa/pkg/dotdir"
	"github.com/papercomputeco/pdfqa/pkg/query"
	"github.com/papercomputeco/pdfqa/pkg/utils"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

const (
	// passagePreview caps how much of each retrieved passage is shown.
	passagePreview = 400

	headerHeight = 2
	footerHeight = 3
)

var (
	chatTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	chatMutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	chatUserStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	chatAnswerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	chatSourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	chatErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	chatDividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
)

type chatKeyMap struct {
	Send     key.Binding
	ScrollUp key.Binding
	ScrollDn key.Binding
	Quit     key.Binding
}

func (k chatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.ScrollUp, k.ScrollDn, k.Quit}
}

func (k chatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Send, k.ScrollUp, k.ScrollDn, k.Quit}}
}

func defaultKeyMap() chatKeyMap {
	return chatKeyMap{
		Send:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ask")),
		ScrollUp: key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDn: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

// exchange is one question with its answer or error.
type exchange struct {
	question string
	response *api.QueryResponse
	err      error
}

type answerMsg struct {
	question string
	response *api.QueryResponse
	err      error
}

type chatModelConfig struct {
	ctx      context.Context
	asker    querycmder.Asker
	topK     int
	target   string
	history  []dotdir.HistoryEntry
	onAnswer func(dotdir.HistoryEntry)
	now      func() time.Time
}

type chatModel struct {
	config chatModelConfig

	// previous holds exchanges loaded from history, which only keep the
	// answer text.
	previous  []dotdir.HistoryEntry
	exchanges []exchange
	pending   string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     chatKeyMap

	width  int
	height int
	ready  bool
}

func runChatTUI(ctx context.Context, model chatModel) error {
	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	_, err := program.Run()
	if errors.Is(err, bubbletea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func newChatModel(c chatModelConfig) chatModel {
	if c.now == nil {
		c.now = time.Now
	}

	input := textinput.New()
	input.Placeholder = "Ask a question about your documents"
	input.Prompt = chatUserStyle.Render("you> ")
	input.CharLimit = 1000
	input.Focus()

	return chatModel{
		config:   c,
		previous: c.history,
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     defaultKeyMap(),
	}
}

func (m chatModel) Init() bubbletea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	var cmds []bubbletea.Cmd

	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 1)
		m.input.Width = max(msg.Width-8, 10)
		m.ready = true
		m.refresh()
		return m, nil

	case answerMsg:
		m.pending = ""
		m.exchanges = append(m.exchanges, exchange(msg))
		if msg.err == nil && m.config.onAnswer != nil {
			m.config.onAnswer(dotdir.HistoryEntry{
				Question: msg.question,
				Answer:   msg.response.Answer,
				AskedAt:  m.config.now(),
			})
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.pending == "" {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case bubbletea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, bubbletea.Quit
		case key.Matches(msg, m.keys.Send):
			return m.submit()
		case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDn):
			var cmd bubbletea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, bubbletea.Batch(cmds...)
}

// submit sends the current input as a question unless one is in flight.
func (m chatModel) submit() (bubbletea.Model, bubbletea.Cmd) {
	question := strings.TrimSpace(m.input.Value())
	if question == "" || m.pending != "" {
		return m, nil
	}

	m.input.Reset()
	m.pending = question
	m.refresh()

	return m, bubbletea.Batch(m.spinner.Tick, askCmd(m.config.ctx, m.config.asker, question, m.config.topK))
}

func askCmd(ctx context.Context, asker querycmder.Asker, question string, topK int) bubbletea.Cmd {
	return func() bubbletea.Msg {
		resp, err := asker.Ask(ctx, question, topK)
		return answerMsg{question: question, response: resp, err: err}
	}
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (m *chatModel) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m chatModel) View() string {
	if !m.ready {
		return "\n  Loading..."
	}

	header := chatTitleStyle.Render("pdfqa chat") + "  " + chatMutedStyle.Render(m.config.target)
	divider := chatDividerStyle.Render(strings.Repeat("─", max(m.width, 1)))

	return strings.Join([]string{
		header,
		divider,
		m.viewport.View(),
		divider,
		m.input.View(),
		m.help.View(m.keys),
	}, "\n")
}

func (m chatModel) transcript() string {
	width := max(m.width-4, 20)
	var b strings.Builder

	if len(m.previous) > 0 {
		b.WriteString(chatMutedStyle.Render(fmt.Sprintf("%d earlier questions", len(m.previous))))
		b.WriteString("\n\n")
		for _, e := range m.previous {
			writeQuestion(&b, e.Question)
			b.WriteString(chatMutedStyle.Width(width).Render(utils.Truncate(e.Answer, passagePreview)))
			b.WriteString("\n\n")
		}
	}

	for _, e := range m.exchanges {
		writeQuestion(&b, e.question)
		b.WriteString(renderExchange(e, width))
		b.WriteString("\n\n")
	}

	if m.pending != "" {
		writeQuestion(&b, m.pending)
		b.WriteString(m.spinner.View() + " " + chatMutedStyle.Render("searching..."))
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		b.WriteString(chatMutedStyle.Render("Ask a question to get started."))
	}

	return b.String()
}

func writeQuestion(b *strings.Builder, question string) {
	b.WriteString(chatUserStyle.Render("you> "))
	b.WriteString(question)
	b.WriteString("\n")
}

// renderExchange formats an answer as its passages, each followed by its
// source, or the error that prevented it.
func renderExchange(e exchange, width int) string {
	if errors.Is(e.err, query.ErrNoResults) {
		return chatErrorStyle.Render("No documents have been ingested yet. Run pdfqa ingest first.")
	}
	if e.err != nil {
		return chatErrorStyle.Render("error: " + e.err.Error())
	}

	var b strings.Builder
	b.WriteString(chatMutedStyle.Render(strings.TrimSuffix(query.AnswerPrefix, "\n")))
	b.WriteString("\n")

	passages := strings.Split(e.response.Context, query.ContextSeparator)
	for i, p := range passages {
		b.WriteString("\n")
		b.WriteString(chatAnswerStyle.Width(width).Render(utils.Truncate(p, passagePreview)))
		b.WriteString("\n")
		if i < len(e.response.Sources) {
			src := e.response.Sources[i]
			b.WriteString(chatSourceStyle.Render(fmt.Sprintf("  %s · chunk %d · distance %.3f", src.Source, src.ChunkIndex, src.Distance)))
			b.WriteString("\n")
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}
