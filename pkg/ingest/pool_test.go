package ingest_test

import (
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/pkg/ingest"
	testutils "github.com/papercomputeco/pdfqa/pkg/utils/test"
	"github.com/papercomputeco/pdfqa/pkg/vector"
)

var _ = Describe("Pool", func() {
	var (
		store     *vector.Store
		extractor *testutils.MockExtractor
		ingester  *ingest.Ingester
	)

	BeforeEach(func() {
		var err error
		store, _, err = testutils.NewStore()
		Expect(err).NotTo(HaveOccurred())

		extractor = testutils.NewMockExtractor()
		ingester, err = ingest.NewIngester(ingest.Config{
			Extractor: extractor,
			Embedder:  testutils.NewMockEmbedder(),
			Store:     store,
			Logger:    zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires an ingester", func() {
		_, err := ingest.NewPool(&ingest.PoolConfig{Logger: zap.NewNop()})
		Expect(err).To(HaveOccurred())
	})

	It("drains every queued job on Close", func() {
		var (
			mu   sync.Mutex
			done []string
		)

		for i := range 10 {
			extractor.Pages[fmt.Sprintf("/inbox/%d.pdf", i)] = []string{"a\n\nb"}
		}

		pool, err := ingest.NewPool(&ingest.PoolConfig{
			Ingester:   ingester,
			NumWorkers: 4,
			Logger:     zap.NewNop(),
			OnDone: func(job ingest.Job, res *ingest.Result, err error) {
				defer GinkgoRecover()
				Expect(err).NotTo(HaveOccurred())
				Expect(res.ChunkCount).To(Equal(2))
				mu.Lock()
				done = append(done, job.Source)
				mu.Unlock()
			},
		})
		Expect(err).NotTo(HaveOccurred())

		for i := range 10 {
			Expect(pool.Enqueue(ingest.Job{
				Path:   fmt.Sprintf("/inbox/%d.pdf", i),
				Source: fmt.Sprintf("%d.pdf", i),
			})).To(BeTrue())
		}

		pool.Close()

		Expect(done).To(HaveLen(10))
		Expect(store.Len()).To(Equal(20))
		Expect(store.Snapshot().Validate()).To(Succeed())
	})

	It("reports failed jobs through OnDone", func() {
		var gotErr error
		pool, err := ingest.NewPool(&ingest.PoolConfig{
			Ingester: ingester,
			Logger:   zap.NewNop(),
			OnDone: func(_ ingest.Job, _ *ingest.Result, err error) {
				gotErr = err
			},
		})
		Expect(err).NotTo(HaveOccurred())

		pool.Enqueue(ingest.Job{Path: "/inbox/missing.pdf", Source: "missing.pdf"})
		pool.Close()

		Expect(gotErr).To(HaveOccurred())
	})

	It("refuses jobs after Close", func() {
		pool, err := ingest.NewPool(&ingest.PoolConfig{Ingester: ingester, Logger: zap.NewNop()})
		Expect(err).NotTo(HaveOccurred())

		pool.Close()
		Expect(pool.Enqueue(ingest.Job{Path: "/x.pdf", Source: "x.pdf"})).To(BeFalse())

		// A second Close is a no-op.
		pool.Close()
	})
})
