// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs an ordered list of stages over a PipelineState.
// Stages run exactly once each, in order, with no retries. A stage that
// fails or panics is recorded in the state's error list and the run
// continues from the state it was given.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/metrics"
	"github.com/pdiddy/research-assistant/pkg/types"
)

const tracerName = "github.com/pdiddy/research-assistant/internal/pipeline"

// Stage is one step of the pipeline. Execute receives a private copy of
// the current state and returns the next state.
type Stage interface {
	Name() string
	Execute(ctx context.Context, state types.PipelineState) (types.PipelineState, error)
}

// Engine executes stages in a fixed order.
type Engine struct {
	stages  []Stage
	logger  *zap.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records stage and run metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracerProvider sets the provider stage spans are created from. The
// default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// New returns an engine that runs stages in the given order.
func New(stages []Stage, opts ...Option) *Engine {
	e := &Engine{
		stages: append([]Stage(nil), stages...),
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stages returns the stage names in execution order.
func (e *Engine) Stages() []string {
	names := make([]string, len(e.stages))
	for i, s := range e.stages {
		names[i] = s.Name()
	}
	return names
}

// Run executes every stage once and returns the final state. Once ctx is
// done the remaining stages are skipped, each leaving an error entry.
func (e *Engine) Run(ctx context.Context, state types.PipelineState) types.PipelineState {
	start := time.Now()
	current := state.Clone()

	for _, s := range e.stages {
		name := s.Name()
		if err := ctx.Err(); err != nil {
			current = current.WithError(fmt.Sprintf("%s: skipped: %v", name, err))
			e.logger.Warn("stage skipped", zap.String("stage", name), zap.Error(err))
			continue
		}
		current = e.runStage(ctx, s, current)
	}

	outcome := current.Outcome()
	e.metrics.ObserveRun(string(outcome), len(current.Documents))
	e.logger.Info("pipeline finished",
		zap.String("outcome", string(outcome)),
		zap.Int("documents", len(current.Documents)),
		zap.Int("errors", len(current.Errors)),
		zap.Duration("duration", time.Since(start)),
	)
	return current
}

func (e *Engine) runStage(ctx context.Context, s Stage, in types.PipelineState) types.PipelineState {
	name := s.Name()
	ctx, span := e.tracer.Start(ctx, "stage."+name, trace.WithAttributes(attribute.String("stage", name)))
	defer span.End()

	e.logger.Debug("stage started", zap.String("stage", name))
	start := time.Now()
	before := len(in.Errors)

	out, err := execute(ctx, s, in.Clone())
	elapsed := time.Since(start)
	failed := err != nil
	e.metrics.ObserveStage(name, elapsed, failed)

	if failed {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("stage failed",
			zap.String("stage", name),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return in.WithError(fmt.Sprintf("%s: %v", name, err))
	}

	added := len(out.Errors) - before
	span.SetAttributes(attribute.Int("errors", added))
	e.logger.Info("stage finished",
		zap.String("stage", name),
		zap.Duration("duration", elapsed),
		zap.Int("errors", added),
	)
	return out
}

// execute calls the stage and converts a panic into an error.
func execute(ctx context.Context, s Stage, state types.PipelineState) (out types.PipelineState, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Execute(ctx, state)
}
