package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pdfqa/api"
	"github.com/papercomputeco/pdfqa/pkg/extract"
	"github.com/papercomputeco/pdfqa/pkg/ingest"
	pdfqalogger "github.com/papercomputeco/pdfqa/pkg/logger"
	"github.com/papercomputeco/pdfqa/pkg/query"
	testutils "github.com/papercomputeco/pdfqa/pkg/utils/test"
	"github.com/papercomputeco/pdfqa/pkg/vector"
	"github.com/papercomputeco/pdfqa/pkg/vector/inmemory"
)

func uploadRequest(path, filename, content string) *http.Request {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte(content))
		Expect(err).NotTo(HaveOccurred())
	} else {
		Expect(w.WriteField("other", "value")).To(Succeed())
	}
	Expect(w.Close()).To(Succeed())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode[T any](resp *http.Response) T {
	defer resp.Body.Close()
	var out T
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(data, &out)).To(Succeed(), string(data))
	return out
}

var _ = Describe("Server", func() {
	var (
		server    *api.Server
		store     *vector.Store
		persister *inmemory.Persister
		embedder  *testutils.MockEmbedder
		uploadDir string
	)

	BeforeEach(func() {
		logger := pdfqalogger.Nop()

		var err error
		store, persister, err = testutils.NewStore()
		Expect(err).NotTo(HaveOccurred())

		embedder = testutils.NewMockEmbedder()
		ingester, err := ingest.NewIngester(ingest.Config{
			Extractor: extract.NewRegistry(),
			Embedder:  embedder,
			Store:     store,
			Logger:    logger,
		})
		Expect(err).NotTo(HaveOccurred())

		uploadDir = GinkgoT().TempDir()
		server, err = api.NewServer(api.Config{
			ListenAddr: ":0",
			UploadDir:  uploadDir,
			Store:      store,
			Ingester:   ingester,
			Answerer:   query.NewAnswerer(store, embedder, logger),
		}, logger)
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires its collaborators", func() {
		_, err := api.NewServer(api.Config{UploadDir: uploadDir}, pdfqalogger.Nop())
		Expect(err).To(MatchError(ContainSubstring("store is required")))
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			resp, err := server.App().Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decode[string](resp)).To(Equal("pong"))
		})
	})

	Describe("POST /documents", func() {
		It("ingests an uploaded document and reports its chunk count", func() {
			resp, err := server.App().Test(uploadRequest("/documents", "notes.txt", "Solar rose.\n\nWind fell."))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body := decode[api.UploadResponse](resp)
			Expect(body.ChunkCount).To(Equal(2))
			Expect(body.Source).To(Equal("notes.txt"))
			Expect(store.Len()).To(Equal(2))
			Expect(store.SourceNames()).To(Equal([]string{"notes.txt"}))
		})

		It("removes the uploaded file after ingestion", func() {
			resp, err := server.App().Test(uploadRequest("/documents", "notes.txt", "text"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			entries, err := os.ReadDir(uploadDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("strips directories from the uploaded file name", func() {
			resp, err := server.App().Test(uploadRequest("/documents", "../../etc/notes.txt", "text"))
			Expect(err).NotTo(HaveOccurred())
			Expect(decode[api.UploadResponse](resp).Source).To(Equal("notes.txt"))
		})

		It("accepts the legacy upload path", func() {
			resp, err := server.App().Test(uploadRequest("/upload_pdf", "notes.txt", "text"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("returns zero chunks for an empty document", func() {
			resp, err := server.App().Test(uploadRequest("/documents", "empty.txt", "   \n\n  "))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decode[api.UploadResponse](resp).ChunkCount).To(Equal(0))
			Expect(store.Len()).To(Equal(0))
		})

		It("returns 400 when no file is sent", func() {
			resp, err := server.App().Test(uploadRequest("/documents", "", ""))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decode[api.ErrorResponse](resp).Error).To(ContainSubstring("file"))
		})

		It("returns 422 when text cannot be extracted", func() {
			resp, err := server.App().Test(uploadRequest("/documents", "scan.pdf", "not really a pdf"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
			Expect(store.Len()).To(Equal(0))
		})

		It("returns 422 for unsupported formats", func() {
			resp, err := server.App().Test(uploadRequest("/documents", "photo.png", "png"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		})

		It("returns 409 when the embedding dimension changes", func() {
			resp, err := server.App().Test(uploadRequest("/documents", "a.txt", "first"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			embedder.Embeddings["second"] = []float32{1, 2}
			resp, err = server.App().Test(uploadRequest("/documents", "b.txt", "second"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
			Expect(store.Len()).To(Equal(1))
		})

		It("returns 422 when the embedder produces non-finite vectors", func() {
			embedder.Embeddings["broken"] = []float32{float32(math.NaN()), 0, 0}
			resp, err := server.App().Test(uploadRequest("/documents", "a.txt", "broken"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
			Expect(store.Len()).To(Equal(0))
		})

		It("returns 500 when the snapshot cannot be persisted", func() {
			persister.FailSaves(true)
			resp, err := server.App().Test(uploadRequest("/documents", "a.txt", "first"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(store.Len()).To(Equal(0))
		})

		It("returns 500 when embedding fails", func() {
			embedder.FailOn = "first"
			resp, err := server.App().Test(uploadRequest("/documents", "a.txt", "first"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("POST /query", func() {
		It("returns 404 before any document is ingested", func() {
			req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"solar?"}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		Context("with ingested chunks", func() {
			BeforeEach(func() {
				embedder.Embeddings["Solar rose."] = []float32{1, 0, 0}
				embedder.Embeddings["Wind fell."] = []float32{0, 1, 0}
				embedder.Embeddings["solar?"] = []float32{1, 0, 0}

				resp, err := server.App().Test(uploadRequest("/documents", "notes.txt", "Solar rose.\n\nWind fell."))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})

			It("answers a JSON query with the nearest chunks first", func() {
				req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"solar?","top_k":2}`))
				req.Header.Set("Content-Type", "application/json")

				resp, err := server.App().Test(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				body := decode[api.QueryResponse](resp)
				Expect(body.Context).To(Equal("Solar rose.\n---\nWind fell."))
				Expect(body.Answer).To(Equal(query.AnswerPrefix + body.Context))
				Expect(body.Sources).To(HaveLen(2))
				Expect(body.Sources[0].Source).To(Equal("notes.txt"))
				Expect(body.Sources[0].ChunkIndex).To(Equal(0))
			})

			It("accepts a form-encoded query", func() {
				form := url.Values{"query": {"solar?"}}
				req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(form.Encode()))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

				resp, err := server.App().Test(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(decode[api.QueryResponse](resp).Context).To(HavePrefix("Solar rose."))
			})

			It("limits results to top_k", func() {
				req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"solar?","top_k":1}`))
				req.Header.Set("Content-Type", "application/json")

				resp, err := server.App().Test(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(decode[api.QueryResponse](resp).Context).To(Equal("Solar rose."))
			})

			It("returns 400 for an empty query", func() {
				req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"  "}`))
				req.Header.Set("Content-Type", "application/json")

				resp, err := server.App().Test(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})

			It("returns 400 for a negative top_k", func() {
				req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"solar?","top_k":-1}`))
				req.Header.Set("Content-Type", "application/json")

				resp, err := server.App().Test(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})

			It("returns 400 for malformed JSON", func() {
				req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":`))
				req.Header.Set("Content-Type", "application/json")

				resp, err := server.App().Test(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("GET /stats", func() {
		It("reports per-source counts", func() {
			resp, err := server.App().Test(uploadRequest("/documents", "notes.txt", "a\n\nb"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp, err = server.App().Test(httptest.NewRequest(http.MethodGet, "/stats", nil))
			Expect(err).NotTo(HaveOccurred())
			stats := decode[vector.Stats](resp)
			Expect(stats.Records).To(Equal(2))
			Expect(stats.Dimension).To(Equal(3))
			Expect(stats.Sources).To(HaveKeyWithValue("notes.txt", 2))
		})
	})
})
