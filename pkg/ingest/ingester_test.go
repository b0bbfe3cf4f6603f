package ingest_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/pkg/embeddings"
	"github.com/papercomputeco/pdfqa/pkg/extract"
	"github.com/papercomputeco/pdfqa/pkg/ingest"
	testutils "github.com/papercomputeco/pdfqa/pkg/utils/test"
	"github.com/papercomputeco/pdfqa/pkg/vector"
	"github.com/papercomputeco/pdfqa/pkg/vector/inmemory"
)

var _ = Describe("Ingester", func() {
	var (
		store     *vector.Store
		persister *inmemory.Persister
		extractor *testutils.MockExtractor
		embedder  *testutils.MockEmbedder
		publisher *testutils.RecordingPublisher
		ingester  *ingest.Ingester
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		store, persister, err = testutils.NewStore()
		Expect(err).NotTo(HaveOccurred())

		extractor = testutils.NewMockExtractor()
		embedder = testutils.NewMockEmbedder()
		publisher = testutils.NewRecordingPublisher()

		ingester, err = ingest.NewIngester(ingest.Config{
			Extractor: extractor,
			Embedder:  embedder,
			Store:     store,
			Publisher: publisher,
			Logger:    zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires its collaborators", func() {
		_, err := ingest.NewIngester(ingest.Config{Logger: zap.NewNop()})
		Expect(err).To(MatchError(ContainSubstring("extractor is required")))
	})

	It("stores one record per paragraph", func() {
		extractor.Pages["/tmp/a.pdf"] = []string{"Intro.\n\nDetails.", "Appendix."}

		res, err := ingester.Ingest(ctx, "/tmp/a.pdf", "a.pdf")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.ChunkCount).To(Equal(3))
		Expect(res.Source).To(Equal("a.pdf"))
		Expect(res.FirstChunkIndex).To(Equal(0))

		snap := store.Snapshot()
		Expect(snap.Len()).To(Equal(3))
		Expect(snap.Records[1].Chunk).To(Equal(vector.Chunk{Text: "Details.", Source: "a.pdf", ChunkIndex: 1}))
	})

	It("continues global chunk indexes across documents", func() {
		extractor.Pages["/tmp/a.pdf"] = []string{"one\n\ntwo"}
		extractor.Pages["/tmp/b.pdf"] = []string{"three"}

		_, err := ingester.Ingest(ctx, "/tmp/a.pdf", "a.pdf")
		Expect(err).NotTo(HaveOccurred())
		res, err := ingester.Ingest(ctx, "/tmp/b.pdf", "b.pdf")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.FirstChunkIndex).To(Equal(2))
	})

	It("returns zero chunks for a document without text and leaves the store alone", func() {
		extractor.Pages["/tmp/scan.pdf"] = []string{"", "   "}

		res, err := ingester.Ingest(ctx, "/tmp/scan.pdf", "scan.pdf")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.ChunkCount).To(Equal(0))
		Expect(store.Len()).To(Equal(0))
		Expect(persister.Saves()).To(Equal(0))
		Expect(embedder.Calls()).To(Equal(0))
		Expect(publisher.Events()).To(BeEmpty())
	})

	It("surfaces extraction failures", func() {
		_, err := ingester.Ingest(ctx, "/tmp/missing.pdf", "missing.pdf")
		Expect(err).To(MatchError(extract.ErrExtraction))
		Expect(store.Len()).To(Equal(0))
	})

	It("stores nothing when embedding fails part way", func() {
		extractor.Pages["/tmp/a.pdf"] = []string{"good\n\nbad"}
		embedder.FailOn = "bad"

		_, err := ingester.Ingest(ctx, "/tmp/a.pdf", "a.pdf")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
		Expect(store.Len()).To(Equal(0))
		Expect(persister.Saves()).To(Equal(0))
	})

	It("rejects a document embedded with a different dimension", func() {
		extractor.Pages["/tmp/a.pdf"] = []string{"first"}
		extractor.Pages["/tmp/b.pdf"] = []string{"second"}
		embedder.Embeddings["second"] = []float32{1, 2}

		_, err := ingester.Ingest(ctx, "/tmp/a.pdf", "a.pdf")
		Expect(err).NotTo(HaveOccurred())
		_, err = ingester.Ingest(ctx, "/tmp/b.pdf", "b.pdf")
		Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		Expect(store.Len()).To(Equal(1))
	})

	It("reports persistence failures and keeps memory unchanged", func() {
		extractor.Pages["/tmp/a.pdf"] = []string{"first"}
		persister.FailSaves(true)

		_, err := ingester.Ingest(ctx, "/tmp/a.pdf", "a.pdf")
		Expect(err).To(MatchError(vector.ErrPersistence))
		Expect(store.Len()).To(Equal(0))
	})

	It("publishes an ingestion event", func() {
		extractor.Pages["/tmp/a.pdf"] = []string{"one\n\ntwo"}

		_, err := ingester.Ingest(ctx, "/tmp/a.pdf", "a.pdf")
		Expect(err).NotTo(HaveOccurred())

		events := publisher.Events()
		Expect(events).To(HaveLen(1))
		Expect(events[0].Source).To(Equal("a.pdf"))
		Expect(events[0].ChunkCount).To(Equal(2))
		Expect(events[0].StoreSize).To(Equal(2))
	})

	It("does not fail ingestion when publishing fails", func() {
		extractor.Pages["/tmp/a.pdf"] = []string{"one"}
		publisher.Err = errors.New("stream unavailable")

		res, err := ingester.Ingest(ctx, "/tmp/a.pdf", "a.pdf")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.ChunkCount).To(Equal(1))
	})
})
