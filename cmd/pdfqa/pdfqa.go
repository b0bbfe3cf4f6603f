// Package pdfqacmder
package pdfqacmder

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/pdfqa/cmd/pdfqa/chat"
	configcmder "github.com/papercomputeco/pdfqa/cmd/pdfqa/config"
	ingestcmder "github.com/papercomputeco/pdfqa/cmd/pdfqa/ingest"
	initcmder "github.com/papercomputeco/pdfqa/cmd/pdfqa/init"
	querycmder "github.com/papercomputeco/pdfqa/cmd/pdfqa/query"
	servecmder "github.com/papercomputeco/pdfqa/cmd/pdfqa/serve"
	versioncmder "github.com/papercomputeco/pdfqa/cmd/version"
)

const pdfqaLongDesc string = `pdfqa answers questions about your documents.

Documents (PDF, DOCX, text and markdown) are split into chunks, embedded and
stored in a vector store. Questions are answered from the closest chunks.

Common commands:
  pdfqa init               Create a local .pdfqa/ directory
  pdfqa serve              Run the API server (optionally watching an inbox)
  pdfqa ingest <files...>  Ingest documents into the local store
  pdfqa query <question>   Ask a single question
  pdfqa chat               Ask questions interactively`

const pdfqaShortDesc string = "pdfqa - Document question answering"

func NewPdfqaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pdfqa",
		Short:         pdfqaShortDesc,
		Long:          pdfqaLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// Missing .env files are fine, the environment is used as is.
			_ = godotenv.Load()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .pdfqa/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
