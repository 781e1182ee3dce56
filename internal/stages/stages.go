// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stages implements the five research pipeline stages. Each stage
// reads the fields earlier stages produced and returns a new state with
// its own field set. Capability failures become empty defaults plus an
// entry in the state's error list; only a failure that leaves the stage
// with nothing to contribute is returned as an error.
package stages

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/research-assistant/internal/llm"
)

// Stage names, in pipeline order.
const (
	NameResearch   = "research"
	NameSummarize  = "summarize"
	NameEvaluate   = "evaluate"
	NameSynthesize = "synthesize"
	NameWrite      = "write"
)

// Order lists the stage names in execution order.
var Order = []string{NameResearch, NameSummarize, NameEvaluate, NameSynthesize, NameWrite}

// mapOrdered applies fn to every item with at most workers in flight and
// returns the results in input order, followed by the per-item error
// messages flattened in input order.
func mapOrdered[T, R any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, item T) (R, []string)) ([]R, []string) {
	if workers <= 0 {
		workers = 1
	}

	values := make([]R, len(items))
	errs := make([][]string, len(items))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, item := range items {
		g.Go(func() error {
			values[i], errs[i] = fn(ctx, item)
			return nil
		})
	}
	g.Wait()

	var flat []string
	for _, e := range errs {
		flat = append(flat, e...)
	}
	return values, flat
}

// complete renders tmpl with data and sends it to the completer.
func complete(ctx context.Context, c llm.Completer, opts llm.Options, tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return c.Complete(ctx, buf.String(), opts)
}

// structured runs a completion and decodes the reply into T.
func structured[T any](ctx context.Context, c llm.Completer, opts llm.Options, tmpl *template.Template, data any) (T, error) {
	raw, err := complete(ctx, c, opts, tmpl, data)
	if err != nil {
		var zero T
		return zero, err
	}
	return llm.DecodeStructured[T](raw, tmpl.Name())
}

func errorf(stage, format string, args ...any) string {
	return stage + ": " + fmt.Sprintf(format, args...)
}
