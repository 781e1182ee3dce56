// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/pdiddy/research-assistant/internal/embed"
)

// PGVectorIndex stores points in a PostgreSQL table with a pgvector
// column and an HNSW cosine index.
type PGVectorIndex struct {
	pool       *pgxpool.Pool
	collection string
	table      string
}

// OpenPGVector connects to dsn, installs the vector extension if needed,
// and returns an index over the named collection table.
func OpenPGVector(ctx context.Context, dsn, collection string, maxConns int32) (*PGVectorIndex, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pgvector backend requires a DSN")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	} else {
		config.MaxConns = 10
	}
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	// The extension must exist before pgvector types can be registered
	// on pooled connections.
	conn, err := pgx.ConnectConfig(ctx, config.ConnConfig.Copy())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	_, err = conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	conn.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating vector extension: %w", err)
	}

	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PGVectorIndex{
		pool:       pool,
		collection: collection,
		table:      pgx.Identifier{collection}.Sanitize(),
	}, nil
}

// EnsureCollection creates the collection table and its HNSW index.
func (x *PGVectorIndex) EnsureCollection(ctx context.Context, dimension int, distance Distance) error {
	if distance != Cosine {
		return fmt.Errorf("unsupported distance %q", distance)
	}
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	existing, err := x.dimension(ctx)
	if err != nil {
		return err
	}
	if existing > 0 {
		if existing != dimension {
			return ErrDimensionMismatch{Expected: existing, Got: dimension}
		}
		return nil
	}

	indexName := pgx.Identifier{x.collection + "_embedding_idx"}.Sanitize()
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb
		)`, x.table, dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`, indexName, x.table),
	}
	for _, stmt := range statements {
		if _, err := x.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating collection %s: %w", x.collection, err)
		}
	}
	return nil
}

// dimension returns the declared vector dimension of the collection table,
// or 0 when the table does not exist.
func (x *PGVectorIndex) dimension(ctx context.Context) (int, error) {
	var dim int
	err := x.pool.QueryRow(ctx, `
		SELECT a.atttypmod
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		WHERE c.relname = $1 AND a.attname = 'embedding' AND NOT a.attisdropped`,
		x.collection,
	).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("inspecting collection %s: %w", x.collection, err)
	}
	return dim, nil
}

// Upsert writes points in a single batched transaction.
func (x *PGVectorIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := x.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`INSERT INTO %s (id, embedding, content, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding, content = EXCLUDED.content, metadata = EXCLUDED.metadata`, x.table)

	batch := &pgx.Batch{}
	for _, p := range points {
		meta, err := json.Marshal(p.Payload.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", p.ID, err)
		}
		batch.Queue(query, p.ID, pgvector.NewVector(p.Vector), p.Payload.Text, meta)
	}

	br := tx.SendBatch(ctx, batch)
	for _, p := range points {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upserting point %s: %w", p.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

// Search runs an ordered cosine-distance query.
func (x *PGVectorIndex) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if limit <= 0 {
		return []Hit{}, nil
	}

	query := fmt.Sprintf(`SELECT id, content, metadata, 1 - (embedding <=> $1) AS score
		FROM %s ORDER BY embedding <=> $1 LIMIT $2`, x.table)

	rows, err := x.pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", x.collection, err)
	}
	defer rows.Close()

	hits := make([]Hit, 0, limit)
	for rows.Next() {
		var (
			h    Hit
			meta []byte
		)
		if err := rows.Scan(&h.ID, &h.Payload.Text, &meta, &h.Score); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		if err := json.Unmarshal(meta, &h.Payload.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", h.ID, err)
		}
		h.Score = embed.Similarity(h.Score)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading hits: %w", err)
	}
	return hits, nil
}

// Close releases the pool.
func (x *PGVectorIndex) Close() error {
	x.pool.Close()
	return nil
}
