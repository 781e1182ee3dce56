// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/pdiddy/research-assistant/internal/embed"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// DefaultMinRelevance is the exclusive lower bound used by Filter.
const DefaultMinRelevance = 0.5

// Filter returns the documents scoring strictly above minScore, in their
// original order. Unscored documents count as 0.
func Filter(docs []types.Document, minScore float64) []types.Document {
	out := make([]types.Document, 0, len(docs))
	for _, d := range docs {
		if d.Score() > minScore {
			out = append(out, d)
		}
	}
	return out
}

// Scorer assigns a relevance score in [0, 1] to each document for a query.
type Scorer interface {
	Score(ctx context.Context, query string, docs []types.Document) ([]float64, error)
}

// maxScoredRunes bounds how much of each document is embedded for scoring.
const maxScoredRunes = 2000

// EmbeddingScorer scores documents by cosine similarity between the query
// embedding and an embedding of each document's title and leading text.
type EmbeddingScorer struct {
	Embedder embed.Embedder
}

// Score returns one score per document, clamped to [0, 1].
func (s *EmbeddingScorer) Score(ctx context.Context, query string, docs []types.Document) ([]float64, error) {
	if len(docs) == 0 {
		return []float64{}, nil
	}

	texts := make([]string, 0, len(docs)+1)
	texts = append(texts, query)
	for _, d := range docs {
		texts = append(texts, scoringText(d))
	}

	vecs, err := s.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding for scoring: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}

	scores := make([]float64, len(docs))
	for i := range docs {
		cos, err := embed.Cosine(vecs[0], vecs[i+1])
		if err != nil {
			return nil, fmt.Errorf("scoring %q: %w", docs[i].Title(), err)
		}
		scores[i] = embed.Similarity(cos)
	}
	return scores, nil
}

func scoringText(d types.Document) string {
	text := d.Content
	if utf8.RuneCountInString(text) > maxScoredRunes {
		text = string([]rune(text)[:maxScoredRunes])
	}
	if d.Title() == "" {
		return text
	}
	return d.Title() + "\n\n" + text
}
