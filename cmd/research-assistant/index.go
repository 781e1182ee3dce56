// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/coordinator"
	"github.com/pdiddy/research-assistant/internal/ingest"
	"github.com/pdiddy/research-assistant/internal/vectorindex"
)

var indexCmd = &cobra.Command{
	Use:   "index <dir>",
	Short: "Seed the vector index from a directory of documents",
	Long: `Index reads .txt, .md and .pdf files from dir, embeds them and upserts them
into the configured vector index. Text files may start with "Title:",
"Authors:" and "Year:" header lines; Markdown files may carry YAML front
matter. Re-indexing a file replaces its previous entry.

Files that cannot be read are reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	docs, failures, err := ingest.LoadDir(args[0])
	if err != nil {
		return err
	}
	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "skipped: %v\n", f)
	}
	if len(docs) == 0 {
		fmt.Println("No documents to index.")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	index, err := vectorindex.Open(ctx, cfg.VectorIndex)
	if err != nil {
		return err
	}
	defer index.Close()

	batch, _ := cmd.Flags().GetInt("batch-size")
	ix := &ingest.Indexer{
		Embedder:  coordinator.NewEmbedder(cfg.Embedding, logger),
		Index:     index,
		BatchSize: batch,
		Logger:    logger.Named("ingest"),
	}
	n, err := ix.Add(ctx, docs)
	if err != nil {
		logger.Error("indexing stopped", zap.Int("indexed", n), zap.Error(err))
		return err
	}

	fmt.Printf("Indexed %d document(s) into %q (%d skipped).\n", n, cfg.VectorIndex.Collection, len(failures))
	return nil
}

func init() {
	indexCmd.Flags().Int("batch-size", 0, "documents embedded per request (0 = default)")

	rootCmd.AddCommand(indexCmd)
}
