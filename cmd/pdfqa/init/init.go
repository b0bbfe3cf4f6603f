// Package initcmder provides the init command for initializing a local .pdfqa
// directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/pdfqa/pkg/cliui"
	"github.com/papercomputeco/pdfqa/pkg/config"
	embeddingutils "github.com/papercomputeco/pdfqa/pkg/embeddings/utils"
)

const (
	dirName = ".pdfqa"

	offlineNotice = "The offline preset is not semantic search: the hashing embedder matches shared words, not meaning. Use --preset ollama or --preset openai for semantic retrieval."
)

const initLongDesc string = `Initialize a new .pdfqa/ directory in the current working directory.

Creates a local .pdfqa/ directory that takes precedence over the default
~/.pdfqa/ directory for the document store, uploads, configuration and
chat history. A config.toml is written from the chosen embedding preset
unless one already exists.

Presets:
  offline   local hashing embedder, no network access (default). It
            matches shared words, not meaning: this is keyword-style
            retrieval, not semantic search.
  ollama    nomic-embed-text served by a local Ollama
  openai    text-embedding-3-small from the OpenAI API

Examples:
  pdfqa init
  pdfqa init --preset ollama
  pdfqa init --preset openai --force`

const initShortDesc string = "Initialize a local .pdfqa/ directory"

type initCommander struct {
	preset string
	force  bool
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", fmt.Sprintf("Embedding preset (%s)", strings.Join(config.ValidPresetNames(), ", ")))
	cmd.Flags().BoolVar(&cmder.force, "force", false, "Overwrite an existing config.toml")

	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (c *initCommander) run(cmd *cobra.Command) error {
	preset := c.preset
	if preset == "" {
		preset = "offline"
	}

	cfg, err := config.PresetConfig(preset)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	out := cmd.OutOrStdout()
	dir := filepath.Join(cwd, dirName)

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .pdfqa directory: %w", err)
		}
		fmt.Fprintf(out, "Initialized .pdfqa directory: %s\n", dir)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	_, err = os.Stat(cfger.GetTarget())
	switch {
	case err == nil && !c.force:
		cliui.Notice(out, "config.toml exists, keeping it (use --force to overwrite)")
		return nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("checking config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s Wrote %s with the %s preset\n",
		cliui.SuccessMark,
		cliui.DimStyle.Render(cfger.GetTarget()),
		cliui.NameStyle.Render(preset),
	)
	if cfg.Embedding.Provider == embeddingutils.ProviderHashing {
		cliui.Notice(out, offlineNotice)
	}
	return nil
}
