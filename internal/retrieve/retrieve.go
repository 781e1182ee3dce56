// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve gathers candidate documents for a query from the vector
// index and, optionally, the web, and ranks them by relevance.
package retrieve

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/embed"
	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/internal/vectorindex"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// DefaultNeutralScore is assigned to web documents that could not be scored.
const DefaultNeutralScore = 0.5

// VectorSearcher is the part of the vector index retrieval needs.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int) ([]vectorindex.Hit, error)
}

// WebSource finds and extracts web documents. Per-page failures come back
// in the middle return value; the error return means the search itself
// failed.
type WebSource interface {
	SearchAndExtract(ctx context.Context, query string, max int) ([]types.Document, []error, error)
}

// RetrievalError reports that the primary document source was unavailable.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed during %s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Result is the outcome of one retrieval. Warnings describe degraded
// sources that did not abort the retrieval.
type Result struct {
	Documents         []types.Document
	Warnings          []string
	DuplicatesRemoved int
}

// HybridRetriever merges vector index hits with scored web documents.
type HybridRetriever struct {
	Embedder     embed.Embedder
	Index        VectorSearcher
	Web          WebSource
	Scorer       Scorer
	NeutralScore float64
	QueryTimeout time.Duration
	Logger       *zap.Logger
}

// Retrieve returns at most limit documents for query ordered by descending
// relevance, with titles unique after normalization. Failure to embed the
// query or search the index is a *RetrievalError. Web failures only add
// warnings.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, limit int, includeWeb bool) (Result, error) {
	logger := logging.OrNop(r.Logger)
	res := Result{Documents: []types.Document{}}
	if limit <= 0 {
		return res, nil
	}

	dbDocs, err := r.searchIndex(ctx, query, limit)
	if err != nil {
		return res, err
	}

	var webDocs []types.Document
	if includeWeb && r.Web != nil {
		webDocs, res.Warnings = r.searchWeb(ctx, query, limit)
	}

	res.Documents, res.DuplicatesRemoved = merge(limit, dbDocs, webDocs)
	logger.Info("retrieved documents",
		zap.Int("database", len(dbDocs)),
		zap.Int("web", len(webDocs)),
		zap.Int("duplicates", res.DuplicatesRemoved),
		zap.Int("returned", len(res.Documents)),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}

func (r *HybridRetriever) searchIndex(ctx context.Context, query string, limit int) ([]types.Document, error) {
	if r.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.QueryTimeout)
		defer cancel()
	}

	vec, err := r.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, &RetrievalError{Op: "embed", Err: err}
	}

	hits, err := r.Index.Search(ctx, vec, limit)
	if err != nil {
		return nil, &RetrievalError{Op: "index search", Err: err}
	}

	docs := make([]types.Document, 0, len(hits))
	for _, h := range hits {
		meta := h.Payload.Metadata.Clone()
		meta.Source = types.SourceDatabase
		meta.RelevanceScore = h.Score
		docs = append(docs, types.Document{Content: h.Payload.Text, Metadata: meta})
	}
	return docs, nil
}

func (r *HybridRetriever) searchWeb(ctx context.Context, query string, limit int) ([]types.Document, []string) {
	var warnings []string

	docs, failures, err := r.Web.SearchAndExtract(ctx, query, limit)
	for _, f := range failures {
		warnings = append(warnings, fmt.Sprintf("web extraction: %v", f))
	}
	if err != nil {
		return nil, append(warnings, fmt.Sprintf("web search unavailable, using database results only: %v", err))
	}
	if len(docs) == 0 {
		return nil, warnings
	}

	neutral := r.NeutralScore
	if neutral == 0 {
		neutral = DefaultNeutralScore
	}

	var scores []float64
	if r.Scorer != nil {
		scores, err = r.Scorer.Score(ctx, query, docs)
	} else {
		err = fmt.Errorf("no scorer configured")
	}
	if err == nil && len(scores) != len(docs) {
		err = fmt.Errorf("scorer returned %d scores for %d documents", len(scores), len(docs))
	}
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("web scoring failed, using neutral score %.2f: %v", neutral, err))
	}

	scored := make([]types.Document, len(docs))
	for i, d := range docs {
		s := neutral
		if err == nil {
			s = scores[i]
		}
		d.Metadata = d.Metadata.Clone()
		d.Metadata.Source = types.SourceWeb
		scored[i] = d.WithScore(s)
	}
	return scored, warnings
}

// merge concatenates groups in order, removes documents whose normalized
// titles collide (keeping the higher score, or the earlier on a tie), sorts
// by descending score with ties in discovery order, and truncates to limit.
func merge(limit int, groups ...[]types.Document) ([]types.Document, int) {
	var all []types.Document
	for _, g := range groups {
		all = append(all, g...)
	}

	out, dups := deduplicate(all)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score() > out[j].Score()
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, dups
}

// deduplicate keeps one document per normalized title. The survivor takes
// the slot of the first occurrence. Untitled documents never collide.
func deduplicate(docs []types.Document) ([]types.Document, int) {
	out := make([]types.Document, 0, len(docs))
	seen := make(map[string]int, len(docs))
	dups := 0

	for _, d := range docs {
		key := normalizeTitle(d.Title())
		if key == "" {
			out = append(out, d)
			continue
		}
		if i, ok := seen[key]; ok {
			if d.Score() > out[i].Score() {
				out[i] = d
			}
			dups++
			continue
		}
		seen[key] = len(out)
		out = append(out, d)
	}
	return out, dups
}

// normalizeTitle lowercases and collapses whitespace.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
