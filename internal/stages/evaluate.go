// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stages

import (
	"context"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Evaluate scores each (document, summary) pair and writes a critique.
type Evaluate struct {
	LLM     llm.Completer
	Options llm.Options
	Workers int
	Logger  *zap.Logger
}

// Name returns the stage name.
func (s *Evaluate) Name() string { return NameEvaluate }

type evalInput struct {
	query string
	doc   types.Document
	sum   types.Summary
}

// Execute sets Evaluations. Documents and summaries are paired by
// position; surplus entries on either side are ignored.
func (s *Evaluate) Execute(ctx context.Context, state types.PipelineState) (types.PipelineState, error) {
	n := min(len(state.Documents), len(state.Summaries))
	inputs := make([]evalInput, n)
	for i := range n {
		inputs[i] = evalInput{query: state.Query, doc: state.Documents[i], sum: state.Summaries[i]}
	}

	evals, errs := mapOrdered(ctx, s.Workers, inputs, s.evaluate)

	out := state
	for _, e := range errs {
		out = out.WithError(e)
	}
	out.Evaluations = types.Evaluations{
		Evaluations:   evals,
		AverageScores: averages(evals),
	}

	logging.OrNop(s.Logger).Info("evaluate complete",
		zap.Int("evaluated", len(evals)),
		zap.Float64("average_overall", out.Evaluations.AverageScores.AverageOverall),
	)
	return out, nil
}

func (s *Evaluate) evaluate(ctx context.Context, in evalInput) (types.DocumentEvaluation, []string) {
	title := in.sum.Title
	if title == "" {
		title = in.doc.Title()
	}

	data := struct {
		Query, Title, Summary                string
		Methodologies, Findings, Limitations []string
	}{
		Query:         in.query,
		Title:         title,
		Summary:       in.sum.SummaryText,
		Methodologies: in.sum.KeyFindings.Methodologies,
		Findings:      in.sum.KeyFindings.Findings,
		Limitations:   in.sum.KeyFindings.Limitations,
	}

	var errs []string
	score := func(tmpl *template.Template) float64 {
		raw, err := complete(ctx, s.LLM, s.Options, tmpl, data)
		if err != nil {
			errs = append(errs, errorf(NameEvaluate, "%q %s: %v", title, tmpl.Name(), err))
			return 0
		}
		v, err := llm.ParseScore(raw)
		if err != nil {
			errs = append(errs, errorf(NameEvaluate, "%q %s: %v", title, tmpl.Name(), err))
			return 0
		}
		return v
	}

	ev := types.DocumentEvaluation{
		Title:            title,
		QualityScore:     score(qualityPrompt),
		RelevanceScore:   score(relevancePrompt),
		MethodologyScore: score(methodologyPrompt),
		Critique:         types.EmptyCritique(),
	}
	ev.OverallScore = (ev.QualityScore + ev.RelevanceScore + ev.MethodologyScore) / 3

	c, err := structured[types.Critique](ctx, s.LLM, s.Options, critiquePrompt, data)
	if err != nil {
		errs = append(errs, errorf(NameEvaluate, "%q critique: %v", title, err))
	} else {
		ev.Critique = c
	}
	return ev, errs
}

func averages(evals []types.DocumentEvaluation) types.AverageScores {
	if len(evals) == 0 {
		return types.AverageScores{}
	}
	var a types.AverageScores
	for _, e := range evals {
		a.AverageQuality += e.QualityScore
		a.AverageRelevance += e.RelevanceScore
		a.AverageMethodology += e.MethodologyScore
		a.AverageOverall += e.OverallScore
	}
	n := float64(len(evals))
	a.AverageQuality /= n
	a.AverageRelevance /= n
	a.AverageMethodology /= n
	a.AverageOverall /= n
	return a
}
