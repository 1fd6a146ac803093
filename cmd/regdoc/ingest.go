package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wei292224644/regdoc"
	"github.com/wei292224644/regdoc/ingest"
)

var (
	ingestFormat   string
	ingestStrategy string
	ingestTitle    string
	ingestDocID    string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a document into the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFormat, "format", "", "source format: pdf, markdown, json, text (default: from extension)")
	ingestCmd.Flags().StringVar(&ingestStrategy, "strategy", "", "chunking strategy: text, table, heading, structured, parent_child (default: from config)")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title (default: file name)")
	ingestCmd.Flags().StringVar(&ingestDocID, "doc-id", "", "document id (default: content hash)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	content, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	format := regdoc.Format(ingestFormat)
	if ingestFormat == "" {
		format = ingest.FormatFromExtension(strings.TrimPrefix(filepath.Ext(args[0]), "."))
	}
	title := ingestTitle
	if title == "" {
		title = filepath.Base(args[0])
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	strategy := ingestStrategy
	if strategy == "" {
		strategy = a.cfg.Ingest.Strategy
	}

	start := time.Now()
	res, err := a.ingestor().Ingest(ctx, ingest.IngestRequest{
		DocID:    ingestDocID,
		Title:    title,
		Format:   format,
		Strategy: strategy,
		Content:  content,
	})
	if a.inst != nil {
		var chunks, parents, dropped, ocrPages int
		if res != nil {
			chunks, parents, dropped, ocrPages = res.Chunks, res.Parents, len(res.Dropped), res.OCRPages
		}
		a.inst.RecordIngest(ctx, ingestDocID, string(format), strategy,
			chunks, parents, dropped, ocrPages, time.Since(start), err)
	}
	if err != nil {
		return err
	}

	fmt.Printf("ingested %s (%s)\n", res.Document.ID, res.Document.Title)
	fmt.Printf("  chunks: %d  parents: %d\n", res.Chunks, res.Parents)
	if len(res.Dropped) > 0 {
		fmt.Printf("  dropped (embedding failed): %d\n", len(res.Dropped))
	}
	if res.OCRPages > 0 {
		fmt.Printf("  ocr pages: %d\n", res.OCRPages)
	}
	return nil
}
