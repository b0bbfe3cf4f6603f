package main

import (
	"os"

	pdfqacmder "github.com/papercomputeco/pdfqa/cmd/pdfqa"
)

func main() {
	cmd := pdfqacmder.NewPdfqaCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
