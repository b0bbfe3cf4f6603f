package main

import (
	"os"

	servecmder "github.com/papercomputeco/pdfqa/cmd/pdfqa/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "pdfqaapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .pdfqa/ config directory")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
