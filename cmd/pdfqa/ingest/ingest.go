// Package ingestcmder provides the ingest command that adds documents to the
// local store.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/cmd/pdfqa/components"
	"github.com/papercomputeco/pdfqa/pkg/cliui"
	"github.com/papercomputeco/pdfqa/pkg/config"
	"github.com/papercomputeco/pdfqa/pkg/logger"
)

type ingestCommander struct {
	cfg       *config.Config
	configDir string
	source    string
	debug     bool

	out    io.Writer
	logger *zap.Logger
}

const ingestLongDesc string = `Ingest documents into the local vector store.

Each file is extracted, split into paragraph chunks, embedded and appended to
the store. Supported formats: PDF, DOCX, plain text and markdown.

Files are ingested one after another. A failing file is reported and the
remaining files are still processed.

Examples:
  pdfqa ingest manual.pdf
  pdfqa ingest reports/*.pdf notes.md
  pdfqa ingest scan-0042.pdf --source "Warranty terms"`

const ingestShortDesc string = "Ingest documents into the local store"

var ingestFlags = append([]string{config.FlagEventsProvider, config.FlagEventsBrokers, config.FlagEventsTopic}, config.StoreFlags...)

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <files...>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cmder.source != "" && len(args) > 1 {
				return errors.New("--source can only be used with a single file")
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			var err error
			cmder.cfg, err = config.Resolve(cmd, cmder.configDir, ingestFlags...)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context(), args)
		},
	}

	config.AddFlags(cmd, ingestFlags...)
	cmd.Flags().StringVarP(&cmder.source, "source", "s", "", "Source name stored with the chunks (default: file name)")

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, paths []string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}

	comps, err := components.New(ctx, c.cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	fmt.Fprintln(c.out)

	var failed int
	total := 0
	for _, path := range paths {
		source := c.source
		if source == "" {
			source = filepath.Base(path)
		}

		err := cliui.StepSummary(c.out, fmt.Sprintf("Ingesting %s", source), func() (string, error) {
			if _, err := os.Stat(path); err != nil {
				return "", err
			}
			res, err := comps.Ingester.Ingest(ctx, path, source)
			if err != nil {
				return "", err
			}
			total += res.ChunkCount
			return cliui.Chunks(res.ChunkCount), nil
		})
		if err != nil {
			failed++
		}
	}

	fmt.Fprintln(c.out)
	cliui.KeyValue(c.out, "Store:", fmt.Sprintf("%s (+%d)", cliui.Chunks(comps.Store.Len()), total))
	fmt.Fprintln(c.out)

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(paths))
	}
	return nil
}
