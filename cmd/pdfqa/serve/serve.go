// Package servecmder provides the serve command that runs the API server and
// the optional inbox watcher.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/api"
	"github.com/papercomputeco/pdfqa/cmd/pdfqa/components"
	"github.com/papercomputeco/pdfqa/pkg/config"
	"github.com/papercomputeco/pdfqa/pkg/ingest"
	"github.com/papercomputeco/pdfqa/pkg/logger"
)

type ServeCommander struct {
	cfg         *config.Config
	configDir   string
	keepUploads bool
	debug       bool
	logger      *zap.Logger
}

const serveLongDesc string = `Run the pdfqa API server.

The server accepts document uploads on POST /documents, answers questions on
POST /query and exposes the same operations as MCP tools on /mcp.

With --watch-dir, documents written into the inbox directory are ingested in
the background by a pool of workers.

Examples:
  pdfqa serve
  pdfqa serve --listen :9000 --watch-dir ./inbox
  pdfqa serve --vector-store-provider qdrant --vector-store-target localhost:6334
  pdfqa serve --events-provider kafka --events-brokers localhost:9092`

const serveShortDesc string = "Run the pdfqa API server"

var serveFlags = append([]string{
	config.FlagAPIListen,
	config.FlagUploadDir,
	config.FlagWatchDir,
	config.FlagIngestWorkers,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}, config.StoreFlags...)

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			var err error
			cmder.cfg, err = config.Resolve(cmd, cmder.configDir, serveFlags...)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddFlags(cmd, serveFlags...)
	cmd.Flags().BoolVar(&cmder.keepUploads, "keep-uploads", false, "Keep uploaded files after ingestion")

	return cmd
}

func (c *ServeCommander) run(parent context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := components.New(ctx, c.cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	server, err := api.NewServer(api.Config{
		ListenAddr:  c.cfg.API.Listen,
		UploadDir:   comps.Dirs.Uploads,
		KeepUploads: c.keepUploads,
		Store:       comps.Store,
		Ingester:    comps.Ingester,
		Answerer:    comps.Answerer,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	if c.cfg.Ingest.WatchDir != "" {
		pool, watcher, err := c.startInbox(comps)
		if err != nil {
			return err
		}
		defer pool.Close()
		defer watcher.Close()

		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- err
			}
		}()
	}

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		_ = server.Shutdown()
		return err
	case <-ctx.Done():
		c.logger.Info("received signal, shutting down")
		return server.Shutdown()
	}
}

func (c *ServeCommander) startInbox(comps *components.Components) (*ingest.Pool, *ingest.Watcher, error) {
	pool, err := ingest.NewPool(&ingest.PoolConfig{
		Ingester:   comps.Ingester,
		NumWorkers: c.cfg.Ingest.Workers,
		Logger:     c.logger,
		OnDone: func(job ingest.Job, res *ingest.Result, err error) {
			if err != nil {
				return
			}
			c.logger.Info("ingested inbox document",
				zap.String("source", job.Source),
				zap.Int("chunks", res.ChunkCount),
			)
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating ingest pool: %w", err)
	}

	watcher, err := ingest.NewWatcher(ingest.WatcherConfig{
		Dir:      c.cfg.Ingest.WatchDir,
		Pool:     pool,
		Supports: comps.Extractor.Supports,
		Logger:   c.logger,
	})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	c.logger.Info("watching inbox",
		zap.String("dir", c.cfg.Ingest.WatchDir),
		zap.Uint("workers", c.cfg.Ingest.Workers),
	)

	return pool, watcher, nil
}
