// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stages

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/internal/report"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// ReportStore persists a finished report and returns where it went.
type ReportStore interface {
	Save(ctx context.Context, rep types.Report) (string, error)
}

// Write assembles the final report and persists it.
type Write struct {
	LLM            llm.Completer
	Options        llm.Options
	Store          ReportStore
	PersistTimeout time.Duration
	Logger         *zap.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Name returns the stage name.
func (s *Write) Name() string { return NameWrite }

type sectionInput struct {
	Query     string
	Summaries []types.Summary
	Synthesis types.Synthesis
	Averages  types.AverageScores
}

// Execute sets Report. Sections that fail keep their empty default. A
// report that cannot be persisted is still returned, without a Location.
func (s *Write) Execute(ctx context.Context, state types.PipelineState) (types.PipelineState, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	rep := types.EmptyReport()
	rep.Title = "Research Report: " + state.Query
	rep.Date = now().Format(time.DateOnly)
	rep.Query = state.Query
	rep.References = report.BuildReferences(state.Documents)

	out := state
	if len(state.Summaries) > 0 {
		var errs []string
		rep, errs = s.sections(ctx, rep, sectionInput{
			Query:     state.Query,
			Summaries: state.Summaries,
			Synthesis: state.Synthesis,
			Averages:  state.Evaluations.AverageScores,
		})
		for _, e := range errs {
			out = out.WithError(e)
		}
	}

	if s.Store != nil {
		loc, err := s.persist(ctx, rep)
		if err != nil {
			out = out.WithError(errorf(NameWrite, "%v", err))
		} else {
			rep.Location = loc
		}
	}
	out.Report = rep

	logging.OrNop(s.Logger).Info("write complete",
		zap.String("title", rep.Title),
		zap.Int("references", len(rep.References)),
		zap.String("location", rep.Location),
	)
	return out, nil
}

func (s *Write) sections(ctx context.Context, rep types.Report, in sectionInput) (types.Report, []string) {
	var errs []string
	fail := func(section string, err error) {
		errs = append(errs, errorf(NameWrite, "%s: %v", section, err))
	}

	if text, err := complete(ctx, s.LLM, s.Options, executiveSummaryPrompt, in); err != nil {
		fail("executive summary", err)
	} else {
		rep.ExecutiveSummary = text
	}

	if m, err := structured[types.Methodology](ctx, s.LLM, s.Options, methodologySectionPrompt, in); err != nil {
		fail("methodology", err)
	} else {
		rep.Methodology = m
	}

	if f, err := structured[types.Findings](ctx, s.LLM, s.Options, findingsSectionPrompt, in); err != nil {
		fail("findings", err)
	} else {
		rep.Findings = f
	}

	if a, err := structured[types.Analysis](ctx, s.LLM, s.Options, analysisSectionPrompt, in); err != nil {
		fail("analysis", err)
	} else {
		rep.Analysis = a
	}

	type recommendations struct {
		Recommendations []types.Recommendation `json:"recommendations" validate:"required,dive"`
	}
	if r, err := structured[recommendations](ctx, s.LLM, s.Options, recommendationsPrompt, in); err != nil {
		fail("recommendations", err)
	} else {
		rep.Recommendations = r.Recommendations
	}

	return rep, errs
}

func (s *Write) persist(ctx context.Context, rep types.Report) (string, error) {
	if s.PersistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.PersistTimeout)
		defer cancel()
	}
	return s.Store.Save(ctx, rep)
}
