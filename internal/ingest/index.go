// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"crypto/sha256"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/embed"
	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/internal/vectorindex"
	"github.com/pdiddy/research-assistant/pkg/types"
)

const defaultBatchSize = 32

// Indexer embeds documents and writes them to a vector index.
type Indexer struct {
	Embedder  embed.Embedder
	Index     vectorindex.Index
	BatchSize int
	Logger    *zap.Logger
}

// Add creates the collection if needed and upserts docs in batches.
// Re-indexing the same document replaces its point. It returns the
// number of documents written before any error.
func (ix *Indexer) Add(ctx context.Context, docs []types.Document) (int, error) {
	logger := logging.OrNop(ix.Logger)
	if len(docs) == 0 {
		return 0, nil
	}

	if err := ix.Index.EnsureCollection(ctx, ix.Embedder.Dimension(), vectorindex.Cosine); err != nil {
		return 0, fmt.Errorf("preparing collection: %w", err)
	}

	size := ix.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}

	written := 0
	for start := 0; start < len(docs); start += size {
		batch := docs[start:min(start+size, len(docs))]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Content
		}
		vectors, err := ix.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return written, fmt.Errorf("embedding documents %d-%d: %w", start+1, start+len(batch), err)
		}

		points := make([]vectorindex.Point, len(batch))
		for i, d := range batch {
			points[i] = vectorindex.Point{
				ID:      stableID(d.Metadata.Title, d.Content),
				Vector:  vectors[i],
				Payload: vectorindex.Payload{Text: d.Content, Metadata: d.Metadata.Clone()},
			}
		}
		if err := ix.Index.Upsert(ctx, points); err != nil {
			return written, fmt.Errorf("writing documents %d-%d: %w", start+1, start+len(batch), err)
		}

		written += len(batch)
		logger.Info("indexed batch", zap.Int("documents", len(batch)), zap.Int("total", written))
	}
	return written, nil
}

// stableID derives a deterministic point ID from a document's title and
// content.
func stableID(title, content string) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}
