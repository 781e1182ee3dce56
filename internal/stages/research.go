// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stages

import (
	"context"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/internal/retrieve"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Retriever finds candidate documents for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int, includeWeb bool) (retrieve.Result, error)
}

// Research retrieves documents and keeps those above the relevance bar.
type Research struct {
	Retriever  Retriever
	Limit      int
	IncludeWeb bool
	MinScore   float64
	Logger     *zap.Logger
}

// Name returns the stage name.
func (s *Research) Name() string { return NameResearch }

// Execute sets Documents. A retrieval failure is returned to the engine;
// degraded sources are recorded as errors.
func (s *Research) Execute(ctx context.Context, state types.PipelineState) (types.PipelineState, error) {
	res, err := s.Retriever.Retrieve(ctx, state.Query, s.Limit, s.IncludeWeb)
	if err != nil {
		return state, err
	}

	out := state
	for _, w := range res.Warnings {
		out = out.WithError(errorf(NameResearch, "%s", w))
	}

	kept := retrieve.Filter(res.Documents, s.MinScore)
	docs := make([]types.Document, len(kept))
	for i, d := range kept {
		docs[i] = d.WithMetadata(d.Metadata.Derive("rank", i+1))
	}
	out.Documents = docs

	logging.OrNop(s.Logger).Info("research complete",
		zap.Int("retrieved", len(res.Documents)),
		zap.Int("kept", len(docs)),
		zap.Float64("min_score", s.MinScore),
	)
	return out, nil
}
