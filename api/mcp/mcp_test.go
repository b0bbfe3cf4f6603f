package mcp_test

import (
	"context"
	"encoding/json"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pdfqa/api/mcp"
	pdfqalogger "github.com/papercomputeco/pdfqa/pkg/logger"
	"github.com/papercomputeco/pdfqa/pkg/query"
	testutils "github.com/papercomputeco/pdfqa/pkg/utils/test"
	"github.com/papercomputeco/pdfqa/pkg/vector"
)

var _ = Describe("MCP Server", func() {
	var (
		server   *mcp.Server
		store    *vector.Store
		embedder *testutils.MockEmbedder
		answerer *query.Answerer
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := pdfqalogger.Nop()

		var err error
		store, _, err = testutils.NewStore()
		Expect(err).NotTo(HaveOccurred())
		embedder = testutils.NewMockEmbedder()
		answerer = query.NewAnswerer(store, embedder, logger)

		server, err = mcp.NewServer(mcp.Config{
			Store:    store,
			Answerer: answerer,
			Logger:   logger,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("returns an error when store is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Answerer: answerer,
				Logger:   pdfqalogger.Nop(),
			})
			Expect(err).To(MatchError(ContainSubstring("store is required")))
		})

		It("returns an error when answerer is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Store:  store,
				Logger: pdfqalogger.Nop(),
			})
			Expect(err).To(MatchError(ContainSubstring("answerer is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Store:    store,
				Answerer: answerer,
			})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	Describe("tools", func() {
		var session *gomcp.ClientSession

		BeforeEach(func() {
			clientTransport, serverTransport := gomcp.NewInMemoryTransports()

			_, err := server.MCPServer().Connect(ctx, serverTransport, nil)
			Expect(err).NotTo(HaveOccurred())

			client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
			session, err = client.Connect(ctx, clientTransport, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(session.Close()).To(Succeed())
		})

		textOf := func(res *gomcp.CallToolResult) string {
			Expect(res.Content).NotTo(BeEmpty())
			tc, ok := res.Content[0].(*gomcp.TextContent)
			Expect(ok).To(BeTrue())
			return tc.Text
		}

		It("reports an error result for an empty store", func() {
			res, err := session.CallTool(ctx, &gomcp.CallToolParams{
				Name:      "query_documents",
				Arguments: map[string]any{"query": "anything"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(ContainSubstring(query.ErrNoResults.Error()))
		})

		It("answers from stored chunks", func() {
			_, err := store.AddDocuments(ctx, []string{"solar output rose"}, [][]float32{{0.1, 0.2, 0.3}}, "energy.pdf")
			Expect(err).NotTo(HaveOccurred())

			res, err := session.CallTool(ctx, &gomcp.CallToolParams{
				Name:      "query_documents",
				Arguments: map[string]any{"query": "solar", "top_k": 3},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			var out mcp.QueryOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &out)).To(Succeed())
			Expect(out.Count).To(Equal(1))
			Expect(out.Results[0].Source).To(Equal("energy.pdf"))
			Expect(out.Answer).To(HavePrefix(query.AnswerPrefix))
		})

		It("reports store statistics", func() {
			_, err := store.AddDocuments(ctx, []string{"a", "b"}, [][]float32{{1}, {2}}, "one.pdf")
			Expect(err).NotTo(HaveOccurred())

			res, err := session.CallTool(ctx, &gomcp.CallToolParams{
				Name:      "store_stats",
				Arguments: map[string]any{},
			})
			Expect(err).NotTo(HaveOccurred())

			var stats vector.Stats
			Expect(json.Unmarshal([]byte(textOf(res)), &stats)).To(Succeed())
			Expect(stats.Records).To(Equal(2))
			Expect(stats.Sources).To(HaveKeyWithValue("one.pdf", 2))
		})
	})
})
