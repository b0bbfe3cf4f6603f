package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/pkg/query"
	"github.com/papercomputeco/pdfqa/pkg/utils"
	"github.com/papercomputeco/pdfqa/pkg/vector"
)

const previewLen = 200

var (
	queryToolName    = "query_documents"
	queryDescription = "Answer a question from the uploaded documents. Returns the templated answer and the most relevant chunks with their source document."

	statsToolName    = "store_stats"
	statsDescription = "Report how many chunks and documents the store holds and the embedding dimension."
)

// QueryInput represents the input arguments for the query tool.
type QueryInput struct {
	Query string `json:"query" jsonschema:"the question to answer from the documents"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve (default: 5)"`
}

// QueryResult is one retrieved chunk.
type QueryResult struct {
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Distance   float32 `json:"distance"`
	Preview    string  `json:"preview"`
}

// QueryOutput represents the output of the query tool.
type QueryOutput struct {
	Query   string        `json:"query"`
	Answer  string        `json:"answer"`
	Results []QueryResult `json:"results"`
	Count   int           `json:"count"`
}

// StatsInput takes no arguments.
type StatsInput struct{}

// handleQuery processes a query_documents request.
func (s *Server) handleQuery(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP query request",
		zap.String("query", input.Query),
		zap.Int("topK", input.TopK),
	)

	ans, err := s.config.Answerer.Answer(ctx, input.Query, input.TopK)
	if err != nil {
		if !errors.Is(err, query.ErrNoResults) && !errors.Is(err, query.ErrEmptyQuery) {
			logger.Error("MCP query failed", zap.Error(err))
		}
		return toolError(fmt.Sprintf("Failed to answer query: %v", err)), QueryOutput{
			Query:   input.Query,
			Results: []QueryResult{},
		}, nil
	}

	output := QueryOutput{
		Query:   input.Query,
		Answer:  ans.Text,
		Results: make([]QueryResult, len(ans.Sources)),
		Count:   len(ans.Sources),
	}
	for i, r := range ans.Sources {
		output.Results[i] = buildQueryResult(r)
	}

	return jsonResult(output)
}

// handleStats processes a store_stats request.
func (s *Server) handleStats(_ context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, vector.Stats, error) {
	return jsonResult(s.config.Store.Stats())
}

func buildQueryResult(r vector.Result) QueryResult {
	return QueryResult{
		Source:     r.Metadata.Source,
		ChunkIndex: r.Metadata.ChunkIndex,
		Distance:   r.Distance,
		Preview:    utils.Truncate(r.Chunk.Text, previewLen),
	}
}

func jsonResult[T any](out T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(out)
	if err != nil {
		var zero T
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, out, nil
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
