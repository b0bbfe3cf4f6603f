package query_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/pkg/embeddings"
	"github.com/papercomputeco/pdfqa/pkg/query"
	testutils "github.com/papercomputeco/pdfqa/pkg/utils/test"
	"github.com/papercomputeco/pdfqa/pkg/vector"
)

var _ = Describe("Answerer", func() {
	var (
		store    *vector.Store
		embedder *testutils.MockEmbedder
		answerer *query.Answerer
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		store, _, err = testutils.NewStore()
		Expect(err).NotTo(HaveOccurred())

		embedder = testutils.NewMockEmbedder()
		answerer = query.NewAnswerer(store, embedder, zap.NewNop())
	})

	It("rejects a blank query", func() {
		_, err := answerer.Answer(ctx, "   ", 3)
		Expect(err).To(MatchError(query.ErrEmptyQuery))
	})

	It("returns ErrNoResults for an empty store", func() {
		_, err := answerer.Answer(ctx, "anything", 3)
		Expect(err).To(MatchError(query.ErrNoResults))
		Expect(err).To(MatchError(vector.ErrStoreEmpty))
		Expect(embedder.Calls()).To(Equal(0))
	})

	Context("with stored chunks", func() {
		BeforeEach(func() {
			_, err := store.AddDocuments(ctx,
				[]string{"solar", "wind", "coal"},
				[][]float32{{1, 0}, {0.9, 0.1}, {0, 1}},
				"energy.pdf",
			)
			Expect(err).NotTo(HaveOccurred())
			embedder.Embeddings["renewables?"] = []float32{1, 0}
		})

		It("joins the nearest chunks into a templated answer", func() {
			ans, err := answerer.Answer(ctx, "renewables?", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(ans.Context).To(Equal("solar\n---\nwind"))
			Expect(ans.Text).To(Equal("Based on the documents, here's what I found:\nsolar\n---\nwind"))
			Expect(ans.Sources).To(HaveLen(2))
			Expect(ans.Sources[0].Metadata.Source).To(Equal("energy.pdf"))
		})

		It("uses the default k when none is given", func() {
			ans, err := answerer.Answer(ctx, "renewables?", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(ans.Sources).To(HaveLen(3))
		})

		It("propagates embedding failures", func() {
			embedder.FailOn = "broken"
			_, err := answerer.Answer(ctx, "broken", 1)
			Expect(err).To(MatchError(embeddings.ErrEmbedding))
		})

		It("rejects a query embedding of the wrong dimension", func() {
			embedder.Embeddings["odd"] = []float32{1, 2, 3}
			_, err := answerer.Answer(ctx, "odd", 1)
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})
	})

	Describe("Compose", func() {
		It("produces the bare prefix for no results", func() {
			ans := query.Compose(nil)
			Expect(ans.Context).To(BeEmpty())
			Expect(ans.Text).To(Equal(query.AnswerPrefix))
		})
	})
})
