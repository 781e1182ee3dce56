// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed turns text into dense vectors for the vector index and
// the relevance scorer.
package embed

import (
	"context"
	"fmt"
	"math"
)

// Embedder maps text to fixed-dimension vectors.
type Embedder interface {
	// Embed returns the vector for one text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the length of every returned vector.
	Dimension() int
}

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or zero magnitude yield an error.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, fmt.Errorf("zero-magnitude vector")
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// Normalize scales v to unit length in place and returns it.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}

// Similarity maps a cosine value onto [0, 1] by clamping negatives to 0.
func Similarity(cos float64) float64 {
	switch {
	case cos < 0:
		return 0
	case cos > 1:
		return 1
	default:
		return cos
	}
}
