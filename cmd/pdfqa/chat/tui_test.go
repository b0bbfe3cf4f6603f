package chatcmder

import (
	"context"
	"errors"
	"time"

	bubbletea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pdfqa/api"
	"github.com/papercomputeco/pdfqa/pkg/dotdir"
	"github.com/papercomputeco/pdfqa/pkg/query"
)

type stubAsker struct {
	resp  *api.QueryResponse
	err   error
	asked []string
}

func (s *stubAsker) Ask(_ context.Context, question string, _ int) (*api.QueryResponse, error) {
	s.asked = append(s.asked, question)
	return s.resp, s.err
}

func typeText(m chatModel, text string) chatModel {
	for _, r := range text {
		next, _ := m.Update(bubbletea.KeyMsg{Type: bubbletea.KeyRunes, Runes: []rune{r}})
		m = next.(chatModel)
	}
	return m
}

var _ = Describe("chat model", func() {
	var (
		asker    *stubAsker
		answered []dotdir.HistoryEntry
		model    chatModel
		fixed    time.Time
	)

	BeforeEach(func() {
		fixed = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		answered = nil
		asker = &stubAsker{resp: &api.QueryResponse{
			Answer:  query.AnswerPrefix + "alpha passage" + query.ContextSeparator + "beta passage",
			Context: "alpha passage" + query.ContextSeparator + "beta passage",
			Sources: []api.SourceRef{
				{Source: "one.pdf", ChunkIndex: 0, Distance: 0.1},
				{Source: "two.pdf", ChunkIndex: 4, Distance: 0.2},
			},
		}}

		model = newChatModel(chatModelConfig{
			ctx:    context.Background(),
			asker:  asker,
			topK:   3,
			target: "local store",
			onAnswer: func(e dotdir.HistoryEntry) {
				answered = append(answered, e)
			},
			now: func() time.Time { return fixed },
		})

		next, _ := model.Update(bubbletea.WindowSizeMsg{Width: 100, Height: 30})
		model = next.(chatModel)
	})

	It("shows a loading view until the terminal size is known", func() {
		m := newChatModel(chatModelConfig{ctx: context.Background(), asker: asker})
		Expect(m.View()).To(ContainSubstring("Loading"))
	})

	It("renders the header with the target", func() {
		Expect(model.View()).To(ContainSubstring("pdfqa chat"))
		Expect(model.View()).To(ContainSubstring("local store"))
	})

	It("ignores an empty submission", func() {
		next, cmd := model.Update(bubbletea.KeyMsg{Type: bubbletea.KeyEnter})
		Expect(cmd).To(BeNil())
		Expect(next.(chatModel).pending).To(BeEmpty())
	})

	It("asks the typed question and records the answer", func() {
		model = typeText(model, "what is alpha?")

		next, cmd := model.Update(bubbletea.KeyMsg{Type: bubbletea.KeyEnter})
		model = next.(chatModel)
		Expect(cmd).NotTo(BeNil())
		Expect(model.pending).To(Equal("what is alpha?"))
		Expect(model.input.Value()).To(BeEmpty())
		Expect(model.transcript()).To(ContainSubstring("searching"))

		msg := askCmd(context.Background(), asker, "what is alpha?", 3)()
		Expect(asker.asked).To(Equal([]string{"what is alpha?"}))

		next, _ = model.Update(msg)
		model = next.(chatModel)
		Expect(model.pending).To(BeEmpty())
		Expect(model.exchanges).To(HaveLen(1))

		transcript := model.transcript()
		Expect(transcript).To(ContainSubstring("alpha passage"))
		Expect(transcript).To(ContainSubstring("beta passage"))
		Expect(transcript).To(ContainSubstring("two.pdf"))
		Expect(transcript).To(ContainSubstring("chunk 4"))

		Expect(answered).To(HaveLen(1))
		Expect(answered[0].Question).To(Equal("what is alpha?"))
		Expect(answered[0].Answer).To(Equal(asker.resp.Answer))
		Expect(answered[0].AskedAt).To(Equal(fixed))
	})

	It("does not submit while a question is pending", func() {
		model.pending = "first"
		model = typeText(model, "second")

		_, cmd := model.Update(bubbletea.KeyMsg{Type: bubbletea.KeyEnter})
		Expect(cmd).To(BeNil())
	})

	It("explains an empty store instead of failing", func() {
		next, _ := model.Update(answerMsg{question: "anything?", err: query.ErrNoResults})
		model = next.(chatModel)

		Expect(model.transcript()).To(ContainSubstring("No documents have been ingested"))
		Expect(answered).To(BeEmpty())
	})

	It("shows other errors in the transcript", func() {
		next, _ := model.Update(answerMsg{question: "anything?", err: errors.New("connection refused")})
		model = next.(chatModel)

		Expect(model.transcript()).To(ContainSubstring("error: connection refused"))
		Expect(answered).To(BeEmpty())
	})

	It("shows previous history entries", func() {
		m := newChatModel(chatModelConfig{
			ctx:   context.Background(),
			asker: asker,
			history: []dotdir.HistoryEntry{
				{Question: "earlier question", Answer: "earlier answer"},
			},
		})

		transcript := m.transcript()
		Expect(transcript).To(ContainSubstring("1 earlier questions"))
		Expect(transcript).To(ContainSubstring("earlier question"))
		Expect(transcript).To(ContainSubstring("earlier answer"))
	})

	It("quits on esc", func() {
		_, cmd := model.Update(bubbletea.KeyMsg{Type: bubbletea.KeyEsc})
		Expect(cmd).NotTo(BeNil())
		Expect(cmd()).To(Equal(bubbletea.Quit()))
	})
})
