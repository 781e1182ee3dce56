// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/pkg/types"
)

func scored(title string, score float64) types.Document {
	return types.Document{Metadata: types.Metadata{Title: title, RelevanceScore: score}}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		docs []types.Document
		min  float64
		want []string
	}{
		{
			name: "strictly greater than threshold",
			docs: []types.Document{scored("a", 0.9), scored("b", 0.6), scored("c", 0.4)},
			min:  0.5,
			want: []string{"a", "b"},
		},
		{
			name: "exactly at threshold is excluded",
			docs: []types.Document{scored("a", 0.5), scored("b", 0.51)},
			min:  0.5,
			want: []string{"b"},
		},
		{
			name: "unscored counts as zero",
			docs: []types.Document{{Metadata: types.Metadata{Title: "none"}}, scored("b", 0.7)},
			min:  0.5,
			want: []string{"b"},
		},
		{
			name: "order preserved even when unsorted",
			docs: []types.Document{scored("low", 0.6), scored("high", 0.99), scored("mid", 0.8)},
			min:  0.5,
			want: []string{"low", "high", "mid"},
		},
		{name: "empty input", docs: nil, min: 0.5, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(tt.docs, tt.min)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func TestFilter_Idempotent(t *testing.T) {
	docs := []types.Document{scored("a", 0.9), scored("b", 0.5), scored("c", 0.51), scored("d", 0)}
	once := Filter(docs, DefaultMinRelevance)
	twice := Filter(once, DefaultMinRelevance)
	assert.Equal(t, once, twice)
}

func TestEmbeddingScorer(t *testing.T) {
	e := &fakeEmbedder{vectors: map[string][]float32{
		"query":              {1, 0},
		"Close\n\nnear":      {0.9, 0.1},
		"Opposite\n\nfar":    {-1, 0},
		"orthogonal content": {0, 1},
	}}
	s := &EmbeddingScorer{Embedder: e}

	docs := []types.Document{
		{Content: "near", Metadata: types.Metadata{Title: "Close"}},
		{Content: "far", Metadata: types.Metadata{Title: "Opposite"}},
		{Content: "orthogonal content"},
	}
	got, err := s.Score(context.Background(), "query", docs)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.InDelta(t, 0.9939, got[0], 1e-3)
	assert.Equal(t, 0.0, got[1])
	assert.InDelta(t, 0.0, got[2], 1e-9)

	empty, err := s.Score(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEmbeddingScorer_Error(t *testing.T) {
	s := &EmbeddingScorer{Embedder: &fakeEmbedder{err: errors.New("offline")}}
	_, err := s.Score(context.Background(), "q", []types.Document{scored("a", 0)})
	assert.ErrorContains(t, err, "offline")
}

func TestScoringText_Truncates(t *testing.T) {
	long := make([]rune, maxScoredRunes+50)
	for i := range long {
		long[i] = 'é'
	}
	got := scoringText(types.Document{Content: string(long)})
	assert.Equal(t, maxScoredRunes, len([]rune(got)))
}
