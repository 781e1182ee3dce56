// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/internal/vectorindex"
	"github.com/pdiddy/research-assistant/internal/websearch"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// --- fakes ---

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Dimension() int { return 2 }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float32{1, 0}
		}
	}
	return out, nil
}

type fakeIndex struct {
	hits  []vectorindex.Hit
	err   error
	limit int
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, limit int) ([]vectorindex.Hit, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > limit {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

type fakeWeb struct {
	docs     []types.Document
	failures []error
	err      error
}

func (f *fakeWeb) SearchAndExtract(context.Context, string, int) ([]types.Document, []error, error) {
	return f.docs, f.failures, f.err
}

type fakeScorer struct {
	scores []float64
	err    error
}

func (f *fakeScorer) Score(context.Context, string, []types.Document) ([]float64, error) {
	return f.scores, f.err
}

func hit(title string, score float64) vectorindex.Hit {
	return vectorindex.Hit{
		ID:      title,
		Score:   score,
		Payload: vectorindex.Payload{Text: title + " body", Metadata: types.Metadata{Title: title, Authors: []string{"A"}}},
	}
}

func webDoc(title string) types.Document {
	return types.Document{Content: title + " page", Metadata: types.Metadata{Title: title, URL: "https://example.org/" + title}}
}

func titles(docs []types.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Title()
	}
	return out
}

func scores(docs []types.Document) []float64 {
	out := make([]float64, len(docs))
	for i, d := range docs {
		out[i] = d.Score()
	}
	return out
}

// --- Retrieve ---

func TestRetrieve_DatabaseOnly(t *testing.T) {
	idx := &fakeIndex{hits: []vectorindex.Hit{hit("A", 0.9), hit("B", 0.6), hit("C", 0.4)}}
	r := &HybridRetriever{Embedder: &fakeEmbedder{}, Index: idx}

	res, err := r.Retrieve(context.Background(), "q", 10, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, titles(res.Documents))
	assert.Equal(t, []float64{0.9, 0.6, 0.4}, scores(res.Documents))
	for _, d := range res.Documents {
		assert.Equal(t, types.SourceDatabase, d.Metadata.Source)
	}
	assert.Equal(t, "A body", res.Documents[0].Content)
	assert.Equal(t, 10, idx.limit)
	assert.Empty(t, res.Warnings)

	filtered := Filter(res.Documents, DefaultMinRelevance)
	assert.Equal(t, []string{"A", "B"}, titles(filtered))
}

func TestRetrieve_MergesAndDeduplicates(t *testing.T) {
	idx := &fakeIndex{hits: []vectorindex.Hit{hit("Transformers", 0.8), hit("RNNs", 0.3)}}
	web := &fakeWeb{docs: []types.Document{webDoc("transformers "), webDoc("Mamba")}}
	r := &HybridRetriever{
		Embedder: &fakeEmbedder{},
		Index:    idx,
		Web:      web,
		Scorer:   &fakeScorer{scores: []float64{0.55, 0.7}},
	}

	res, err := r.Retrieve(context.Background(), "q", 10, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"Transformers", "Mamba", "RNNs"}, titles(res.Documents))
	assert.Equal(t, []float64{0.8, 0.7, 0.3}, scores(res.Documents))
	assert.Equal(t, types.SourceDatabase, res.Documents[0].Metadata.Source)
	assert.Equal(t, types.SourceWeb, res.Documents[1].Metadata.Source)
	assert.Equal(t, 1, res.DuplicatesRemoved)
}

func TestRetrieve_WebDuplicateWithHigherScoreWins(t *testing.T) {
	idx := &fakeIndex{hits: []vectorindex.Hit{hit("Attention", 0.6)}}
	web := &fakeWeb{docs: []types.Document{webDoc("ATTENTION")}}
	r := &HybridRetriever{Embedder: &fakeEmbedder{}, Index: idx, Web: web, Scorer: &fakeScorer{scores: []float64{0.95}}}

	res, err := r.Retrieve(context.Background(), "q", 10, true)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "ATTENTION", res.Documents[0].Title())
	assert.Equal(t, types.SourceWeb, res.Documents[0].Metadata.Source)
	assert.Equal(t, 0.95, res.Documents[0].Score())
}

func TestRetrieve_DedupeBeforeTruncation(t *testing.T) {
	// Two copies of the top document must not crowd out the third distinct one.
	idx := &fakeIndex{hits: []vectorindex.Hit{hit("X", 0.9), hit("x", 0.85), hit("Y", 0.7)}}
	r := &HybridRetriever{Embedder: &fakeEmbedder{}, Index: idx}

	res, err := r.Retrieve(context.Background(), "q", 3, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, titles(res.Documents))
}

func TestRetrieve_TiesKeepDiscoveryOrder(t *testing.T) {
	idx := &fakeIndex{hits: []vectorindex.Hit{hit("D1", 0.7), hit("D2", 0.7)}}
	web := &fakeWeb{docs: []types.Document{webDoc("W1"), webDoc("W2")}}
	r := &HybridRetriever{Embedder: &fakeEmbedder{}, Index: idx, Web: web, Scorer: &fakeScorer{scores: []float64{0.7, 0.9}}}

	res, err := r.Retrieve(context.Background(), "q", 3, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"W2", "D1", "D2"}, titles(res.Documents))
}

func TestRetrieve_Invariants(t *testing.T) {
	idx := &fakeIndex{hits: []vectorindex.Hit{hit("a", 0.2), hit("B", 0.9), hit("c", 0.5), hit("A", 0.4)}}
	web := &fakeWeb{docs: []types.Document{webDoc("b"), webDoc("D"), webDoc("e")}}
	r := &HybridRetriever{Embedder: &fakeEmbedder{}, Index: idx, Web: web, Scorer: &fakeScorer{scores: []float64{0.1, 0.95, 0.45}}}

	for limit := 1; limit <= 8; limit++ {
		res, err := r.Retrieve(context.Background(), "q", limit, true)
		require.NoError(t, err)

		assert.LessOrEqual(t, len(res.Documents), limit)
		seen := map[string]bool{}
		for i, d := range res.Documents {
			key := normalizeTitle(d.Title())
			assert.False(t, seen[key], "duplicate title %q at limit %d", key, limit)
			seen[key] = true
			if i > 0 {
				assert.GreaterOrEqual(t, res.Documents[i-1].Score(), d.Score())
			}
		}
	}
}

func TestRetrieve_IndexFailureIsFatal(t *testing.T) {
	r := &HybridRetriever{
		Embedder: &fakeEmbedder{},
		Index:    &fakeIndex{err: errors.New("connection refused")},
		Web:      &fakeWeb{docs: []types.Document{webDoc("W")}},
		Scorer:   &fakeScorer{scores: []float64{0.9}},
	}

	_, err := r.Retrieve(context.Background(), "q", 5, true)
	var re *RetrievalError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "index search", re.Op)
	assert.ErrorContains(t, err, "connection refused")
}

func TestRetrieve_EmbedFailureIsFatal(t *testing.T) {
	r := &HybridRetriever{Embedder: &fakeEmbedder{err: errors.New("model missing")}, Index: &fakeIndex{}}

	_, err := r.Retrieve(context.Background(), "q", 5, false)
	var re *RetrievalError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "embed", re.Op)
}

func TestRetrieve_WebFailureDegradesToDatabase(t *testing.T) {
	r := &HybridRetriever{
		Embedder: &fakeEmbedder{},
		Index:    &fakeIndex{hits: []vectorindex.Hit{hit("A", 0.9)}},
		Web:      &fakeWeb{err: errors.New("captcha")},
	}

	res, err := r.Retrieve(context.Background(), "q", 5, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, titles(res.Documents))
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "captcha")
}

func TestRetrieve_ExtractionFailuresBecomeWarnings(t *testing.T) {
	r := &HybridRetriever{
		Embedder: &fakeEmbedder{},
		Index:    &fakeIndex{hits: []vectorindex.Hit{hit("A", 0.9)}},
		Web: &fakeWeb{
			docs:     []types.Document{webDoc("W")},
			failures: []error{&websearch.ExtractionError{URL: "https://bad.example", Err: errors.New("HTTP 500")}},
		},
		Scorer: &fakeScorer{scores: []float64{0.8}},
	}

	res, err := r.Retrieve(context.Background(), "q", 5, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "W"}, titles(res.Documents))
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "https://bad.example")
}

func TestRetrieve_ScoringFailureUsesNeutralScore(t *testing.T) {
	r := &HybridRetriever{
		Embedder:     &fakeEmbedder{},
		Index:        &fakeIndex{},
		Web:          &fakeWeb{docs: []types.Document{webDoc("W1"), webDoc("W2")}},
		Scorer:       &fakeScorer{err: errors.New("embedder down")},
		NeutralScore: 0.6,
	}

	res, err := r.Retrieve(context.Background(), "q", 5, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.6, 0.6}, scores(res.Documents))
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "neutral score 0.60")
}

func TestRetrieve_WebDisabled(t *testing.T) {
	web := &fakeWeb{docs: []types.Document{webDoc("W")}}
	r := &HybridRetriever{Embedder: &fakeEmbedder{}, Index: &fakeIndex{}, Web: web, Scorer: &fakeScorer{scores: []float64{1}}}

	res, err := r.Retrieve(context.Background(), "q", 5, false)
	require.NoError(t, err)
	assert.Empty(t, res.Documents)
}

func TestRetrieve_ZeroLimit(t *testing.T) {
	idx := &fakeIndex{hits: []vectorindex.Hit{hit("A", 0.9)}}
	r := &HybridRetriever{Embedder: &fakeEmbedder{}, Index: idx}

	res, err := r.Retrieve(context.Background(), "q", 0, false)
	require.NoError(t, err)
	assert.NotNil(t, res.Documents)
	assert.Empty(t, res.Documents)
}

func TestRetrieve_DoesNotMutateIndexPayload(t *testing.T) {
	h := hit("A", 0.9)
	idx := &fakeIndex{hits: []vectorindex.Hit{h}}
	r := &HybridRetriever{Embedder: &fakeEmbedder{}, Index: idx}

	res, err := r.Retrieve(context.Background(), "q", 5, false)
	require.NoError(t, err)
	res.Documents[0].Metadata.Authors[0] = "changed"
	assert.Equal(t, "A", idx.hits[0].Payload.Metadata.Authors[0])
	assert.Empty(t, idx.hits[0].Payload.Metadata.Source)
}

// --- normalizeTitle ---

func TestNormalizeTitle(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Transformers", "transformers"},
		{"transformers ", "transformers"},
		{"  Attention   Is\tAll You Need ", "attention is all you need"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeTitle(tt.in), "input %q", tt.in)
	}
}

func TestDeduplicate_UntitledNeverCollide(t *testing.T) {
	docs := []types.Document{{Content: "a"}, {Content: "b"}}
	out, dups := deduplicate(docs)
	assert.Len(t, out, 2)
	assert.Zero(t, dups)
}
