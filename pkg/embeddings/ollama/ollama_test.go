package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pdfqa/pkg/embeddings"
	"github.com/papercomputeco/pdfqa/pkg/embeddings/ollama"
)

var _ = Describe("Embedder", func() {
	var (
		server   *httptest.Server
		embedder *ollama.Embedder
		lastReq  map[string]any
		status   int
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/embed"))
			Expect(json.NewDecoder(r.Body).Decode(&lastReq)).To(Succeed())

			if status != http.StatusOK {
				w.WriteHeader(status)
				_, _ = w.Write([]byte("model not found"))
				return
			}

			inputs := lastReq["input"].([]any)
			out := make([][]float32, len(inputs))
			for i, in := range inputs {
				out[i] = []float32{float32(len(in.(string))), 1}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
		}))

		var err error
		embedder, err = ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("uses the default model", func() {
		_, err := embedder.Embed(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(lastReq["model"]).To(Equal(ollama.DefaultEmbeddingModel))
	})

	It("embeds a batch with one request, preserving order", func() {
		vecs, err := embedder.EmbedBatch(ctx, []string{"a", "abc", "ab"})
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(Equal([][]float32{{1, 1}, {3, 1}, {2, 1}}))
	})

	It("returns the same vector from Embed and EmbedBatch", func() {
		one, err := embedder.Embed(ctx, "paragraph")
		Expect(err).NotTo(HaveOccurred())
		batch, err := embedder.EmbedBatch(ctx, []string{"paragraph"})
		Expect(err).NotTo(HaveOccurred())
		Expect(batch[0]).To(Equal(one))
	})

	It("wraps server errors in ErrEmbedding", func() {
		status = http.StatusNotFound
		_, err := embedder.Embed(ctx, "hello")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("model not found"))
	})

	It("returns an empty result for an empty batch without calling the server", func() {
		lastReq = nil
		vecs, err := embedder.EmbedBatch(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(BeEmpty())
		Expect(lastReq).To(BeNil())
	})
})
