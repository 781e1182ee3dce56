// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stages

import (
	"context"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Summarize condenses each document with a map-reduce over text chunks
// and extracts its key findings.
type Summarize struct {
	LLM          llm.Completer
	Options      llm.Options
	ChunkSize    int
	ChunkOverlap int
	Workers      int
	Logger       *zap.Logger
}

// Name returns the stage name.
func (s *Summarize) Name() string { return NameSummarize }

// Execute sets Summaries, one per document in document order.
func (s *Summarize) Execute(ctx context.Context, state types.PipelineState) (types.PipelineState, error) {
	out := state
	if len(state.Documents) == 0 {
		out.Summaries = []types.Summary{}
		return out, nil
	}

	summaries, errs := mapOrdered(ctx, s.Workers, state.Documents, s.summarize)
	for _, e := range errs {
		out = out.WithError(e)
	}
	out.Summaries = summaries

	logging.OrNop(s.Logger).Info("summarize complete",
		zap.Int("documents", len(summaries)),
		zap.Int("errors", len(errs)),
	)
	return out, nil
}

func (s *Summarize) summarize(ctx context.Context, doc types.Document) (types.Summary, []string) {
	sum := types.Summary{
		Title:          doc.Title(),
		KeyFindings:    types.EmptyKeyFindings(),
		SourceMetadata: doc.Metadata.Clone(),
	}

	chunks := splitText(doc.Content, s.ChunkSize, s.ChunkOverlap)
	if len(chunks) == 0 {
		return sum, []string{errorf(NameSummarize, "%q has no content", doc.Title())}
	}

	text, err := s.mapReduce(ctx, doc.Title(), chunks)
	if err != nil {
		return sum, []string{errorf(NameSummarize, "%q: %v", doc.Title(), err)}
	}
	sum.SummaryText = text

	kf, err := structured[types.KeyFindings](ctx, s.LLM, s.Options, keyFindingsPrompt, struct {
		Title, Summary string
	}{doc.Title(), text})
	if err != nil {
		return sum, []string{errorf(NameSummarize, "%q key findings: %v", doc.Title(), err)}
	}
	sum.KeyFindings = kf
	return sum, nil
}

// mapReduce summarizes each chunk, then combines the partial summaries.
// A single chunk needs no combine step.
func (s *Summarize) mapReduce(ctx context.Context, title string, chunks []string) (string, error) {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		p, err := complete(ctx, s.LLM, s.Options, chunkSummaryPrompt, struct{ Text string }{c})
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return complete(ctx, s.LLM, s.Options, combineSummaryPrompt, struct {
		Title string
		Parts []string
	}{title, parts})
}
