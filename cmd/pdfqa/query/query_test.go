package querycmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/pdfqa/api"
	querycmder "github.com/papercomputeco/pdfqa/cmd/pdfqa/query"
	"github.com/papercomputeco/pdfqa/pkg/query"
	testutils "github.com/papercomputeco/pdfqa/pkg/utils/test"
)

var sample = &api.QueryResponse{
	Answer:  query.AnswerPrefix + "The warranty lasts two years.\n---\nReturns within 30 days.",
	Context: "The warranty lasts two years.\n---\nReturns within 30 days.",
	Sources: []api.SourceRef{
		{Source: "terms.pdf", ChunkIndex: 4, Distance: 0.25},
		{Source: "faq.md", ChunkIndex: 9, Distance: 0.5},
	},
}

var _ = Describe("Markdown", func() {
	It("quotes every passage with its source", func() {
		md := querycmder.Markdown("How long is the warranty?", sample)
		Expect(md).To(HavePrefix("## How long is the warranty?\n"))
		Expect(md).To(ContainSubstring("> The warranty lasts two years.\n"))
		Expect(md).To(ContainSubstring("*terms.pdf, chunk 4*"))
		Expect(md).To(ContainSubstring("> Returns within 30 days.\n"))
		Expect(md).To(ContainSubstring("- `faq.md` chunk 9 (distance 0.5000)"))
		Expect(md).NotTo(ContainSubstring("\n---\n"))
	})
})

var _ = Describe("Render", func() {
	It("writes indented JSON", func() {
		var buf bytes.Buffer
		Expect(querycmder.Render(&buf, querycmder.OutputJSON, "q", sample)).To(Succeed())

		var decoded api.QueryResponse
		Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
		Expect(decoded).To(Equal(*sample))
	})

	It("writes YAML with the wire field names", func() {
		var buf bytes.Buffer
		Expect(querycmder.Render(&buf, querycmder.OutputYAML, "q", sample)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("chunkIndex: 4"))

		var decoded api.QueryResponse
		Expect(yaml.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
		Expect(decoded.Sources).To(HaveLen(2))
		Expect(decoded.Context).To(Equal(sample.Context))
	})

	It("renders markdown for the terminal", func() {
		var buf bytes.Buffer
		Expect(querycmder.Render(&buf, querycmder.OutputMarkdown, "q", sample)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("warranty lasts two years"))
	})

	It("rejects unknown formats", func() {
		var buf bytes.Buffer
		Expect(querycmder.Render(&buf, "xml", "q", sample)).To(MatchError(ContainSubstring("unsupported output format")))
	})
})

var _ = Describe("LocalAsker", func() {
	It("answers from the store", func() {
		store, _, err := testutils.NewStore()
		Expect(err).NotTo(HaveOccurred())

		embedder := testutils.NewMockEmbedder()
		embedder.Embeddings["warranty?"] = []float32{1, 0, 0}
		_, err = store.AddDocuments(context.Background(),
			[]string{"warranty text", "refund text"},
			[][]float32{{1, 0, 0}, {0, 1, 0}},
			"terms.pdf",
		)
		Expect(err).NotTo(HaveOccurred())

		asker := querycmder.NewLocalAsker(query.NewAnswerer(store, embedder, zap.NewNop()))
		resp, err := asker.Ask(context.Background(), "warranty?", 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Context).To(Equal("warranty text"))
		Expect(resp.Sources).To(Equal([]api.SourceRef{{Source: "terms.pdf", ChunkIndex: 0, Distance: 0}}))
	})
})

var _ = Describe("RemoteAsker", func() {
	var (
		server  *httptest.Server
		status  int
		payload any
		lastReq api.QueryRequest
	)

	BeforeEach(func() {
		status = http.StatusOK
		payload = sample
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/query"))
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(json.NewDecoder(r.Body).Decode(&lastReq)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(payload)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("posts the question and decodes the answer", func() {
		asker, err := querycmder.NewRemoteAsker(server.URL, nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := asker.Ask(context.Background(), "How long is the warranty?", 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp).To(Equal(sample))
		Expect(lastReq).To(Equal(api.QueryRequest{Query: "How long is the warranty?", TopK: 2}))
	})

	It("maps 404 to ErrNoResults", func() {
		status = http.StatusNotFound
		payload = api.ErrorResponse{Error: "no documents have been ingested"}

		asker, err := querycmder.NewRemoteAsker(server.URL, nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = asker.Ask(context.Background(), "anything", 0)
		Expect(err).To(MatchError(query.ErrNoResults))
	})

	It("surfaces the server error message", func() {
		status = http.StatusInternalServerError
		payload = api.ErrorResponse{Error: "persistence failed"}

		asker, err := querycmder.NewRemoteAsker(server.URL, nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = asker.Ask(context.Background(), "anything", 0)
		Expect(err).To(MatchError(ContainSubstring("HTTP 500")))
		Expect(err).To(MatchError(ContainSubstring("persistence failed")))
	})
})

var _ = Describe("NewQueryCmd", func() {
	It("rejects unknown output formats before touching the store", func() {
		cmd := querycmder.NewQueryCmd()
		cmd.SetArgs([]string{"question", "--output", "xml"})
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("unsupported output format")))
	})
})
