// Package chatcmder provides the chat command, an interactive terminal UI for
// asking questions about the stored documents.
package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	querycmder "github.com/papercomputeco/pdfqa/cmd/pdfqa/query"
	"github.com/papercomputeco/pdfqa/pkg/config"
	"github.com/papercomputeco/pdfqa/pkg/dotdir"
	"github.com/papercomputeco/pdfqa/pkg/logger"
	"github.com/papercomputeco/pdfqa/pkg/query"
)

type chatCommander struct {
	cfg          *config.Config
	configDir    string
	topK         int
	remote       bool
	clearHistory bool
	debug        bool

	logger *zap.Logger
}

const chatLongDesc string = `Ask questions about your documents in an interactive terminal UI.

Every question is answered from the closest stored chunks. The conversation
is kept in .pdfqa/history.json and shown again the next time chat starts.
Use --clear-history to start from an empty history.

By default the local store is opened directly. Use --remote to ask a running
pdfqa API server instead.

Examples:
  pdfqa chat
  pdfqa chat --top 3
  pdfqa chat --remote --api-target http://localhost:8081`

const chatShortDesc string = "Interactive question answering over your documents"

var chatFlags = append([]string{config.FlagAPITarget}, config.StoreFlags...)

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.topK < 0 {
				return errors.New("--top must not be negative")
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			var err error
			cmder.cfg, err = config.Resolve(cmd, cmder.configDir, chatFlags...)
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

	config.AddFlags(cmd, chatFlags...)
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", query.DefaultTopK, "Number of chunks to retrieve per question")
	cmd.Flags().BoolVarP(&cmder.remote, "remote", "r", false, "Ask the API server at --api-target instead of the local store")
	cmd.Flags().BoolVar(&cmder.clearHistory, "clear-history", false, "Clear the saved conversation before starting")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	ddm := dotdir.NewManager()

	// Logs would corrupt the alternate screen, so they go to a file.
	logWriter, closeLog, err := c.openLog(ddm)
	if err != nil {
		return err
	}
	defer closeLog()

	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithNoColor(true), logger.WithWriter(logWriter))
	defer func() { _ = c.logger.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}

	if c.clearHistory {
		if err := ddm.ClearHistory(c.configDir); err != nil {
			return err
		}
	}

	history, err := ddm.LoadHistory(c.configDir)
	if err != nil {
		return fmt.Errorf("loading chat history: %w", err)
	}

	asker, closeFn, err := querycmder.NewAsker(ctx, c.cfg, c.configDir, c.remote, c.logger)
	if err != nil {
		return err
	}
	defer closeFn()

	target := "local store"
	if c.remote {
		target = c.cfg.Client.APITarget
	}

	model := newChatModel(chatModelConfig{
		ctx:     ctx,
		asker:   asker,
		topK:    c.topK,
		target:  target,
		history: history,
		onAnswer: func(e dotdir.HistoryEntry) {
			if err := ddm.AppendHistory(c.configDir, e); err != nil {
				c.logger.Error("saving chat history", zap.Error(err))
			}
		},
		now: time.Now,
	})

	return runChatTUI(ctx, model)
}

// openLog returns .pdfqa/chat.log when debugging and a discarding writer
// otherwise.
func (c *chatCommander) openLog(ddm *dotdir.Manager) (io.Writer, func(), error) {
	if !c.debug {
		return io.Discard, func() {}, nil
	}

	dir, err := ddm.Ensure(c.configDir)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.OpenFile(filepath.Join(dir, "chat.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening chat log: %w", err)
	}

	return f, func() { _ = f.Close() }, nil
}
