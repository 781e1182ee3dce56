// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vectorindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-assistant/internal/embed"
)

// LocalIndex keeps points in a sqlite file and serves queries from an
// in-memory HNSW graph rebuilt on open.
type LocalIndex struct {
	mu         sync.RWMutex
	db         *sql.DB
	collection string
	dimension  int

	graph    *hnsw.Graph[uint64]
	idToKey  map[string]uint64
	keyToID  map[uint64]string
	payloads map[string]Payload
	nextKey  uint64
	orphans  int
}

// OpenLocal opens or creates the sqlite file at path and loads the named
// collection into memory.
func OpenLocal(path, collection string) (*LocalIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("local index path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	idx := &LocalIndex{
		db:         db,
		collection: collection,
		graph:      newGraph(),
		idToKey:    make(map[string]uint64),
		keyToID:    make(map[uint64]string),
		payloads:   make(map[string]Payload),
	}

	if err := idx.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index schema: %w", err)
	}
	if err := idx.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading collection %s: %w", collection, err)
	}
	return idx, nil
}

func newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 64
	g.Ml = 0.25
	return g
}

func (x *LocalIndex) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			dimension INTEGER NOT NULL,
			distance TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS points (
			collection TEXT NOT NULL REFERENCES collections(name),
			id TEXT NOT NULL,
			vector BLOB NOT NULL,
			text TEXT NOT NULL,
			metadata TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := x.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (x *LocalIndex) load() error {
	err := x.db.QueryRow(`SELECT dimension FROM collections WHERE name = ?`, x.collection).Scan(&x.dimension)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	rows, err := x.db.Query(`SELECT id, vector, text, metadata FROM points WHERE collection = ? ORDER BY id`, x.collection)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, text, meta string
			blob           []byte
		)
		if err := rows.Scan(&id, &blob, &text, &meta); err != nil {
			return err
		}
		p := Point{ID: id, Vector: decodeVector(blob), Payload: Payload{Text: text}}
		if err := json.Unmarshal([]byte(meta), &p.Payload.Metadata); err != nil {
			return fmt.Errorf("decoding metadata for %s: %w", id, err)
		}
		x.addToGraph(p)
	}
	return rows.Err()
}

// EnsureCollection records the collection dimension on first use.
func (x *LocalIndex) EnsureCollection(ctx context.Context, dimension int, distance Distance) error {
	if distance != Cosine {
		return fmt.Errorf("unsupported distance %q", distance)
	}
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dimension != 0 {
		if x.dimension != dimension {
			return ErrDimensionMismatch{Expected: x.dimension, Got: dimension}
		}
		return nil
	}

	if _, err := x.db.ExecContext(ctx,
		`INSERT INTO collections (name, dimension, distance) VALUES (?, ?, ?)`,
		x.collection, dimension, string(distance),
	); err != nil {
		return fmt.Errorf("creating collection %s: %w", x.collection, err)
	}
	x.dimension = dimension
	return nil
}

// Upsert writes points to sqlite in one transaction, then updates the graph.
func (x *LocalIndex) Upsert(ctx context.Context, points []Point) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dimension == 0 {
		return fmt.Errorf("collection %s does not exist", x.collection)
	}
	for _, p := range points {
		if len(p.Vector) != x.dimension {
			return ErrDimensionMismatch{Expected: x.dimension, Got: len(p.Vector)}
		}
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO points (collection, id, vector, text, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			vector = excluded.vector, text = excluded.text, metadata = excluded.metadata`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		meta, err := json.Marshal(p.Payload.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, x.collection, p.ID, encodeVector(p.Vector), p.Payload.Text, string(meta)); err != nil {
			return fmt.Errorf("upserting point %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}

	for _, p := range points {
		x.addToGraph(p)
	}
	return nil
}

// addToGraph inserts p under a fresh key. A replaced point's old node is
// orphaned rather than deleted from the graph.
func (x *LocalIndex) addToGraph(p Point) {
	if old, ok := x.idToKey[p.ID]; ok {
		delete(x.keyToID, old)
		x.orphans++
	}

	key := x.nextKey
	x.nextKey++

	vec := embed.Normalize(append([]float32(nil), p.Vector...))
	x.graph.Add(hnsw.MakeNode(key, vec))

	x.idToKey[p.ID] = key
	x.keyToID[key] = p.ID
	x.payloads[p.ID] = p.Payload
}

// Search returns the nearest points to vector.
func (x *LocalIndex) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.dimension == 0 {
		return nil, fmt.Errorf("collection %s does not exist", x.collection)
	}
	if len(vector) != x.dimension {
		return nil, ErrDimensionMismatch{Expected: x.dimension, Got: len(vector)}
	}
	if limit <= 0 || x.graph.Len() == 0 {
		return []Hit{}, nil
	}

	query := embed.Normalize(append([]float32(nil), vector...))
	nodes := x.graph.Search(query, limit+x.orphans)

	hits := make([]Hit, 0, limit)
	for _, node := range nodes {
		id, ok := x.keyToID[node.Key]
		if !ok {
			continue
		}
		cos := 1 - float64(x.graph.Distance(query, node.Value))
		hits = append(hits, Hit{ID: id, Score: embed.Similarity(cos), Payload: x.payloads[id]})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Len returns the number of live points.
func (x *LocalIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.idToKey)
}

// Close releases the database.
func (x *LocalIndex) Close() error {
	return x.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
