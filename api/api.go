package api

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apimcp "github.com/papercomputeco/pdfqa/api/mcp"
)

// Server is the API server for the document store
type Server struct {
	config Config
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The store, ingester and answerer are injected so the CLI can share them
// with the inbox watcher.
func NewServer(config Config, logger *zap.Logger) (*Server, error) {
	if config.Store == nil {
		return nil, errors.New("store is required")
	}
	if config.Ingester == nil {
		return nil, errors.New("ingester is required")
	}
	if config.Answerer == nil {
		return nil, errors.New("answerer is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if config.UploadDir == "" {
		return nil, errors.New("upload directory is required")
	}
	if config.BodyLimit <= 0 {
		config.BodyLimit = DefaultBodyLimit
	}

	if err := os.MkdirAll(config.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}

	mcpServer, err := apimcp.NewServer(apimcp.Config{
		Store:    config.Store,
		Answerer: config.Answerer,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             config.BodyLimit,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/stats", s.handleStats)
	app.Post("/documents", s.handleUploadDocument)
	app.Post("/upload_pdf", s.handleUploadDocument)
	app.Post("/query", s.handleQuery)
	app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))

	return s, nil
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
		zap.String("upload_dir", s.config.UploadDir),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
