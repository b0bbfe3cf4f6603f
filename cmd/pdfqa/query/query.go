// Package querycmder provides the query command that answers a single
// question from the stored documents.
package querycmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/pdfqa/cmd/pdfqa/components"
	"github.com/papercomputeco/pdfqa/pkg/cliui"
	"github.com/papercomputeco/pdfqa/pkg/config"
	"github.com/papercomputeco/pdfqa/pkg/logger"
	"github.com/papercomputeco/pdfqa/pkg/query"
)

type queryCommander struct {
	cfg       *config.Config
	configDir string
	topK      int
	output    string
	remote    bool
	debug     bool

	out    io.Writer
	logger *zap.Logger
}

const queryLongDesc string = `Answer a question from the stored documents.

The question is embedded and the closest chunks are returned together with
their sources. By default the local store is opened directly. Use --remote
to ask a running pdfqa API server instead.

Examples:
  pdfqa query "How long is the warranty?"
  pdfqa query "What does error E42 mean?" --top 3
  pdfqa query "Who signed the contract?" --output json
  pdfqa query "What is the refund policy?" --remote --api-target http://localhost:8081`

const queryShortDesc string = "Ask a question about the stored documents"

var queryFlags = append([]string{config.FlagAPITarget}, config.StoreFlags...)

func NewQueryCmd() *cobra.Command {
	cmder := &queryCommander{}

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: queryShortDesc,
		Long:  queryLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if !slices.Contains(ValidOutputs(), cmder.output) {
				return fmt.Errorf("unsupported output format %q (available: %s)",
					cmder.output, strings.Join(ValidOutputs(), ", "))
			}
			if cmder.topK < 0 {
				return errors.New("--top must not be negative")
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			var err error
			cmder.cfg, err = config.Resolve(cmd, cmder.configDir, queryFlags...)
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
			return cmder.run(cmd.Context(), strings.Join(args, " "))
		},
	}

	config.AddFlags(cmd, queryFlags...)
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", query.DefaultTopK, "Number of chunks to retrieve")
	cmd.Flags().StringVarP(&cmder.output, "output", "o", OutputMarkdown, "Output format (markdown, json, yaml)")
	cmd.Flags().BoolVarP(&cmder.remote, "remote", "r", false, "Ask the API server at --api-target instead of the local store")

	return cmd
}

func (c *queryCommander) run(ctx context.Context, question string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}

	asker, closeFn, err := NewAsker(ctx, c.cfg, c.configDir, c.remote, c.logger)
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := asker.Ask(ctx, question, c.topK)
	if errors.Is(err, query.ErrNoResults) {
		fmt.Fprintf(c.out, "\n  %s %s\n\n", cliui.FailMark, "No documents have been ingested yet. Run pdfqa ingest first.")
		return err
	}
	if err != nil {
		return err
	}

	return Render(c.out, c.output, question, resp)
}

// NewAsker returns a remote asker for cfg.Client.APITarget when remote is
// set, or opens the local store. The returned func releases the local store.
func NewAsker(ctx context.Context, cfg *config.Config, configDir string, remote bool, logger *zap.Logger) (Asker, func(), error) {
	if remote {
		asker, err := NewRemoteAsker(cfg.Client.APITarget, nil)
		if err != nil {
			return nil, nil, err
		}
		return asker, func() {}, nil
	}

	comps, err := components.New(ctx, cfg, configDir, logger)
	if err != nil {
		return nil, nil, err
	}

	return NewLocalAsker(comps.Answerer), func() { _ = comps.Close() }, nil
}
