// Command regdoc ingests regulatory documents into a vector index and
// queries them back.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "regdoc",
	Short: "Ingest and search regulatory documents",
	Long: `regdoc turns regulatory and standards documents (PDF, Markdown,
JSON, plain text) into retrievable chunks: it extracts structure,
classifies content, chunks with a configurable strategy, embeds, and
persists into a vector index plus a parent-chunk store.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to regdoc.toml (default ./regdoc.toml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
