package qdrant

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/pkg/vector"
)

var _ = Describe("splitTarget", func() {
	It("uses the default gRPC port when none is given", func() {
		host, port, err := splitTarget("qdrant.local")
		Expect(err).NotTo(HaveOccurred())
		Expect(host).To(Equal("qdrant.local"))
		Expect(port).To(Equal(DefaultPort))
	})

	It("parses host and port", func() {
		host, port, err := splitTarget("localhost:7334")
		Expect(err).NotTo(HaveOccurred())
		Expect(host).To(Equal("localhost"))
		Expect(port).To(Equal(7334))
	})

	It("rejects a non-numeric port", func() {
		_, _, err := splitTarget("localhost:grpc")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewPersister", func() {
	It("requires a target", func() {
		_, err := NewPersister(Config{}, zap.NewNop())
		Expect(err).To(MatchError(ContainSubstring("qdrant target is required")))
	})
})

var _ = Describe("Persister", func() {
	var (
		p   *Persister
		ctx context.Context
	)

	BeforeEach(func() {
		target := os.Getenv("PDFQA_TEST_QDRANT_HOST")
		if target == "" {
			Skip("PDFQA_TEST_QDRANT_HOST not set, skipping Qdrant tests")
		}
		ctx = context.Background()

		var err error
		p, err = NewPersister(Config{
			Target:     target,
			Collection: "pdfqa_test_" + uuid.NewString(),
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if p != nil {
			if current, err := p.currentCollection(ctx); err == nil && current != "" {
				_ = p.client.UpdateAliases(ctx, []*qdrant.AliasOperations{qdrant.NewAliasDelete(p.collection)})
				_ = p.client.DeleteCollection(ctx, current)
			}
			Expect(p.Close()).To(Succeed())
		}
	})

	It("returns ErrSnapshotNotFound for a missing collection", func() {
		_, err := p.Load(ctx)
		Expect(err).To(MatchError(vector.ErrSnapshotNotFound))
	})

	It("round-trips a snapshot", func() {
		snap := &vector.Snapshot{
			Dimension: 2,
			Records: []vector.Record{
				{ID: 0, Chunk: vector.Chunk{Text: "alpha", Source: "a.pdf", ChunkIndex: 0}, Embedding: []float32{1, 2}},
				{ID: 1, Chunk: vector.Chunk{Text: "beta", Source: "a.pdf", ChunkIndex: 1}, Embedding: []float32{3, 4}},
			},
		}
		Expect(p.Save(ctx, snap)).To(Succeed())

		loaded, err := p.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(snap))
	})

	It("replaces the published snapshot on every save", func() {
		first := &vector.Snapshot{
			Dimension: 2,
			Records: []vector.Record{
				{ID: 0, Chunk: vector.Chunk{Text: "alpha", Source: "a.pdf"}, Embedding: []float32{1, 2}},
			},
		}
		Expect(p.Save(ctx, first)).To(Succeed())

		second := &vector.Snapshot{
			Dimension: 3,
			Records: []vector.Record{
				{ID: 0, Chunk: vector.Chunk{Text: "gamma", Source: "c.pdf"}, Embedding: []float32{1, 2, 3}},
			},
		}
		Expect(p.Save(ctx, second)).To(Succeed())

		loaded, err := p.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(second))
	})
})
