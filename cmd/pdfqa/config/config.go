// Package configcmder provides the config command for managing persistent
// pdfqa configuration stored in the .pdfqa/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/pdfqa/pkg/cliui"
	"github.com/papercomputeco/pdfqa/pkg/config"
)

const configLongDesc string = `Manage persistent pdfqa configuration.

Configuration is stored as config.toml in the .pdfqa/ directory and provides
default values for command flags. CLI flags and PDFQA_* environment variables
take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.data_dir, storage.upload_dir,
  api.listen, client.api_target,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  ingest.watch_dir, ingest.workers,
  events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  pdfqa config set <key> <value>    Set a configuration value
  pdfqa config get <key>            Get a configuration value
  pdfqa config list                 List all configuration values

Examples:
  pdfqa config set embedding.provider ollama
  pdfqa config set vector_store.provider sqlite
  pdfqa config get api.listen
  pdfqa config list`

const configShortDesc string = "Manage persistent pdfqa configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func printTarget(w io.Writer, target string) {
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintln(w)
	cliui.Notice(w, "No config file found. Using defaults.")
	fmt.Fprintln(w)
}
