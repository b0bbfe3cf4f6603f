// Package mcp provides an MCP (Model Context Protocol) server exposing the
// document store to agents.
package mcp

import (
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/pkg/query"
	"github.com/papercomputeco/pdfqa/pkg/utils"
	"github.com/papercomputeco/pdfqa/pkg/vector"
)

type Config struct {
	// Store backs the store_stats tool.
	Store *vector.Store

	// Answerer backs the query_documents tool.
	Answerer *query.Answerer

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the document tools.
func NewServer(c Config) (*Server, error) {
	if c.Store == nil {
		return nil, errors.New("store is required")
	}
	if c.Answerer == nil {
		return nil, errors.New("answerer is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "pdfqa",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        queryToolName,
		Description: queryDescription,
	}, s.handleQuery)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        statsToolName,
		Description: statsDescription,
	}, s.handleStats)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying MCP server, e.g. for in-memory transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
