// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vectorindex stores embedded documents and answers nearest-neighbour
// queries. Two backends are provided: a local sqlite-persisted HNSW graph
// and PostgreSQL with pgvector.
package vectorindex

import (
	"context"
	"fmt"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// DefaultCollection is the collection seeded documents are stored in.
const DefaultCollection = "academic_papers"

// Distance names the similarity metric of a collection.
type Distance string

// Cosine is the only metric the research pipeline uses.
const Cosine Distance = "cosine"

// Payload is the stored document body and metadata.
type Payload struct {
	Text     string         `json:"text"`
	Metadata types.Metadata `json:"metadata"`
}

// Point is one vector record.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Hit is a search result. Score is cosine similarity clamped to [0, 1].
type Hit struct {
	ID      string
	Score   float64
	Payload Payload
}

// Index is the vector index capability used by retrieval and ingestion.
type Index interface {
	// EnsureCollection creates the collection if it is missing. An existing
	// collection with a different dimension is an error.
	EnsureCollection(ctx context.Context, dimension int, distance Distance) error

	// Upsert inserts or replaces points by ID.
	Upsert(ctx context.Context, points []Point) error

	// Search returns up to limit hits ordered by descending score.
	Search(ctx context.Context, vector []float32, limit int) ([]Hit, error)

	Close() error
}

// Open constructs the index selected by cfg.
func Open(ctx context.Context, cfg types.VectorIndexConfig) (Index, error) {
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	switch cfg.Backend {
	case types.IndexLocal, "":
		return OpenLocal(cfg.LocalPath, collection)
	case types.IndexPGVector:
		return OpenPGVector(ctx, cfg.DSN, collection, cfg.MaxConns)
	default:
		return nil, fmt.Errorf("unknown vector index backend %q", cfg.Backend)
	}
}

// ErrDimensionMismatch reports a vector whose length does not match the
// collection.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
