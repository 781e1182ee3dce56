// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stages

import (
	"context"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Synthesize produces the cross-document analysis.
type Synthesize struct {
	LLM     llm.Completer
	Options llm.Options
	Logger  *zap.Logger
}

// Name returns the stage name.
func (s *Synthesize) Name() string { return NameSynthesize }

// Execute sets Synthesis. With no summaries it sets the empty synthesis
// without calling the model.
func (s *Synthesize) Execute(ctx context.Context, state types.PipelineState) (types.PipelineState, error) {
	out := state
	out.Synthesis = types.EmptySynthesis()
	if len(state.Summaries) == 0 {
		return out, nil
	}

	syn, err := structured[types.Synthesis](ctx, s.LLM, s.Options, synthesisPrompt, struct {
		Query     string
		Summaries []types.Summary
	}{state.Query, state.Summaries})
	if err != nil {
		return out.WithError(errorf(NameSynthesize, "%v", err)), nil
	}
	out.Synthesis = syn

	logging.OrNop(s.Logger).Info("synthesize complete",
		zap.Int("summaries", len(state.Summaries)),
		zap.Int("themes", len(syn.CommonThemes)),
	)
	return out, nil
}
