// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package coordinator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/embed"
	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/metrics"
	"github.com/pdiddy/research-assistant/internal/report"
	"github.com/pdiddy/research-assistant/internal/retrieve"
	"github.com/pdiddy/research-assistant/internal/vectorindex"
	"github.com/pdiddy/research-assistant/internal/websearch"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Runtime is a coordinator wired to live collaborators. Close releases
// the vector index.
type Runtime struct {
	*Coordinator
	Index    vectorindex.Index
	Embedder embed.Embedder
}

// Close releases resources held by the runtime.
func (r *Runtime) Close() error {
	if r.Index == nil {
		return nil
	}
	return r.Index.Close()
}

// Open connects the collaborators named in cfg and returns a ready
// runtime.
func Open(ctx context.Context, cfg types.PipelineConfig, logger *zap.Logger, m *metrics.Metrics) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	embedder := NewEmbedder(cfg.Embedding, logger)

	completer, err := llm.New(cfg.AI, logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("configuring completion provider: %w", err)
	}

	index, err := vectorindex.Open(ctx, cfg.VectorIndex)
	if err != nil {
		return nil, fmt.Errorf("opening vector index: %w", err)
	}

	retriever := &retrieve.HybridRetriever{
		Embedder:     embedder,
		Index:        index,
		Scorer:       &retrieve.EmbeddingScorer{Embedder: embedder},
		NeutralScore: cfg.Retrieval.NeutralScore,
		QueryTimeout: cfg.VectorIndex.QueryTimeout,
		Logger:       logger.Named("retrieve"),
	}
	if cfg.Retrieval.IncludeWeb {
		web, err := websearch.NewClient(cfg.WebSearch, logger.Named("websearch"))
		if err != nil {
			index.Close()
			return nil, fmt.Errorf("configuring web search: %w", err)
		}
		retriever.Web = web
	}

	c := NewDefault(Deps{
		Config:    cfg,
		Retriever: retriever,
		LLM:       completer,
		Reports:   report.NewFileStore(cfg.Report.OutputDir),
		Logger:    logger,
		Metrics:   m,
	})
	return &Runtime{Coordinator: c, Index: index, Embedder: embedder}, nil
}

// NewEmbedder returns the configured embedder, cached when a cache size
// is set.
func NewEmbedder(cfg types.EmbeddingConfig, logger *zap.Logger) embed.Embedder {
	var e embed.Embedder = embed.NewOllamaEmbedder(cfg, logger.Named("embed"))
	if cfg.CacheSize > 0 {
		e = embed.NewCached(e, cfg.CacheSize)
	}
	return e
}
