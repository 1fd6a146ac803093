package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	queryTopK         int
	queryExpandParent bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Search ingested documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 5, "number of results")
	queryCmd.Flags().BoolVar(&queryExpandParent, "expand-parent", false, "attach parent chunk context to each hit")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	text := strings.Join(args, " ")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	start := time.Now()
	results, err := a.retriever().Query(ctx, text, queryTopK, queryExpandParent)
	if a.inst != nil {
		a.inst.RecordQuery(ctx, queryTopK, len(results), queryExpandParent, time.Since(start), err)
	}
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. [%.4f] %s", i+1, r.Score, r.Chunk.DocID)
		if r.Chunk.DocTitle != "" {
			fmt.Printf(" (%s)", r.Chunk.DocTitle)
		}
		fmt.Println()
		if len(r.Chunk.SectionPath) > 0 {
			fmt.Printf("   section: %s\n", strings.Join(r.Chunk.SectionPath, " > "))
		}
		if r.Chunk.ContentType != "" {
			fmt.Printf("   type: %s\n", r.Chunk.ContentType)
		}
		fmt.Printf("   %s\n", snippet(r.Chunk.Content, 200))
		if r.Parent != nil {
			fmt.Printf("   parent %s: %s\n", r.Parent.ID, snippet(r.Parent.Content, 200))
		}
	}
	return nil
}

func snippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
