// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package coordinator is the entry point for research runs. It owns the
// pipeline engine and reports the workflow topology.
package coordinator

import (
	"context"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/metrics"
	"github.com/pdiddy/research-assistant/internal/pipeline"
	"github.com/pdiddy/research-assistant/internal/stages"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// WorkflowName identifies the research workflow in status output.
const WorkflowName = "research_workflow"

// StageInfo describes one stage in the workflow.
type StageInfo struct {
	Name     string `json:"name" yaml:"name"`
	Position int    `json:"position" yaml:"position"`
}

// WorkflowStatus describes the workflow topology.
type WorkflowStatus struct {
	Name       string      `json:"name" yaml:"name"`
	EntryPoint string      `json:"entry_point" yaml:"entry_point"`
	Stages     []StageInfo `json:"stages" yaml:"stages"`
}

// Coordinator runs research queries through the pipeline.
type Coordinator struct {
	engine *pipeline.Engine
}

// New returns a coordinator backed by engine.
func New(engine *pipeline.Engine) *Coordinator {
	return &Coordinator{engine: engine}
}

// Run executes the full pipeline for query and returns the final state.
// It never fails; problems are reported in the state's error list.
func (c *Coordinator) Run(ctx context.Context, query string) types.PipelineState {
	return c.engine.Run(ctx, types.NewPipelineState(query))
}

// WorkflowStatus reports the stage names and their positions.
func (c *Coordinator) WorkflowStatus() WorkflowStatus {
	names := c.engine.Stages()
	status := WorkflowStatus{Name: WorkflowName, Stages: make([]StageInfo, len(names))}
	for i, n := range names {
		status.Stages[i] = StageInfo{Name: n, Position: i + 1}
	}
	if len(names) > 0 {
		status.EntryPoint = names[0]
	}
	return status
}

// Deps are the collaborators the default stages are bound to.
type Deps struct {
	Config    types.PipelineConfig
	Retriever stages.Retriever
	LLM       llm.Completer
	Reports   stages.ReportStore
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// NewDefault builds the standard five-stage research workflow.
func NewDefault(d Deps) *Coordinator {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := d.Config
	opts := llm.Options{Temperature: cfg.AI.Temperature, MaxTokens: cfg.AI.MaxTokens}

	stageList := []pipeline.Stage{
		&stages.Research{
			Retriever:  d.Retriever,
			Limit:      cfg.Retrieval.Limit,
			IncludeWeb: cfg.Retrieval.IncludeWeb,
			MinScore:   cfg.Retrieval.MinRelevanceScore,
			Logger:     logger.Named(stages.NameResearch),
		},
		&stages.Summarize{
			LLM:          d.LLM,
			Options:      opts,
			ChunkSize:    cfg.Summarize.ChunkSize,
			ChunkOverlap: cfg.Summarize.ChunkOverlap,
			Workers:      cfg.Summarize.Workers,
			Logger:       logger.Named(stages.NameSummarize),
		},
		&stages.Evaluate{
			LLM:     d.LLM,
			Options: opts,
			Workers: cfg.Summarize.Workers,
			Logger:  logger.Named(stages.NameEvaluate),
		},
		&stages.Synthesize{
			LLM:     d.LLM,
			Options: opts,
			Logger:  logger.Named(stages.NameSynthesize),
		},
		&stages.Write{
			LLM:            d.LLM,
			Options:        opts,
			Store:          d.Reports,
			PersistTimeout: cfg.Report.PersistTimeout,
			Logger:         logger.Named(stages.NameWrite),
		},
	}

	return New(pipeline.New(stageList,
		pipeline.WithLogger(logger.Named("pipeline")),
		pipeline.WithMetrics(d.Metrics),
	))
}
