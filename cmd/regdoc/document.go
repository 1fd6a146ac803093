package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and all of its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var chunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "Print a document's chunks in order",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunks,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(chunksCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	docs, err := a.index.ListDocuments(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("no documents")
		return nil
	}
	for _, d := range docs {
		created := time.Unix(d.CreatedAt, 0).Format("2006-01-02 15:04")
		fmt.Printf("%s  %-10s %8d B  %s  %s\n", d.ID, d.Format, d.RawSize, created, d.Title)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ingestor().DeleteDocument(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("deleted", args[0])
	return nil
}

func runChunks(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	chunks, err := a.index.GetChunksByDocument(ctx, args[0])
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		fmt.Println("no chunks")
		return nil
	}
	for _, c := range chunks {
		record, err := c.Record()
		if err != nil {
			return err
		}
		fmt.Println(string(record))
	}
	return nil
}
