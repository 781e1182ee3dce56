// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/internal/vectorindex"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// --- helpers ---

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// keywordEmbedder maps text to a 3-d vector by keyword.
type keywordEmbedder struct {
	calls int
	err   error
}

func (e *keywordEmbedder) Dimension() int { return 3 }

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (e *keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		switch {
		case strings.Contains(t, "attention"):
			out[i] = []float32{1, 0, 0}
		case strings.Contains(t, "graph"):
			out[i] = []float32{0, 1, 0}
		default:
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

// --- loading ---

func TestLoadFile_TextHeaders(t *testing.T) {
	dir := t.TempDir()
	content := "Title: Attention Is All You Need\nAuthors: Ashish Vaswani, Noam Shazeer\nYear: 2017\nVenue: NeurIPS\n\nThe dominant sequence transduction models..."
	path := writeFile(t, dir, "attention.txt", content)

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, doc.Content)
	assert.Equal(t, "Attention Is All You Need", doc.Metadata.Title)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, doc.Metadata.Authors)
	assert.Equal(t, 2017, doc.Metadata.Year)
	assert.Equal(t, types.SourceDatabase, doc.Metadata.Source)
	assert.Equal(t, "NeurIPS", doc.Metadata.Extra["venue"])
	assert.Equal(t, "attention.txt", doc.Metadata.Extra["file"])
}

func TestLoadFile_TextHeadersOnlyInFirstLines(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "late.txt", "line one\nline two\nline three\nline four\nline five\nTitle: Too Late\nbody")

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "late", doc.Metadata.Title)
}

func TestLoadFile_TextBadYearIgnored(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "Title: A\nYear: circa 1990\nbody")

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Zero(t, doc.Metadata.Year)
}

func TestLoadFile_MarkdownFrontMatter(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gnn.md", `---
title: Graph Neural Networks
authors:
  - Thomas Kipf
  - Max Welling
year: 2017
url: https://arxiv.org/abs/1609.02907
tags: [graphs, semi-supervised]
---

# Introduction

We present a scalable approach.
`)

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Graph Neural Networks", doc.Metadata.Title)
	assert.Equal(t, []string{"Thomas Kipf", "Max Welling"}, doc.Metadata.Authors)
	assert.Equal(t, 2017, doc.Metadata.Year)
	assert.Equal(t, "https://arxiv.org/abs/1609.02907", doc.Metadata.URL)
	assert.Equal(t, []any{"graphs", "semi-supervised"}, doc.Metadata.Extra["tags"])
	assert.True(t, strings.HasPrefix(doc.Content, "# Introduction"))
	assert.NotContains(t, doc.Content, "title:")
}

func TestLoadFile_MarkdownAuthorString(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.md", "---\ntitle: A\nauthors: Ada Lovelace; Charles Babbage\n---\nbody text\n")

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada Lovelace", "Charles Babbage"}, doc.Metadata.Authors)
	assert.Equal(t, "body text\n", doc.Content)
}

func TestLoadFile_MarkdownWithoutFrontMatter(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.md", "# Notes\n\n---\n\nmore")

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "notes", doc.Metadata.Title)
	assert.Equal(t, "# Notes\n\n---\n\nmore", doc.Content)
}

func TestLoadFile_MarkdownBadFrontMatter(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.md", "---\ntitle: [unclosed\n---\nbody")

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "front matter")
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(writeFile(t, dir, "data.csv", "a,b"))
	assert.ErrorContains(t, err, "unsupported")

	_, err = LoadFile(writeFile(t, dir, "empty.txt", "  \n"))
	assert.ErrorContains(t, err, "no text content")

	_, err = LoadFile(writeFile(t, dir, "broken.pdf", "not a pdf"))
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "Title: B\nbody b")
	writeFile(t, dir, "a.md", "---\ntitle: A\n---\nbody a")
	writeFile(t, dir, "nested/c.txt", "Title: C\nbody c")
	writeFile(t, dir, "skip.json", "{}")
	writeFile(t, dir, "empty.txt", "")

	docs, failures, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "A", docs[0].Title())
	assert.Equal(t, "B", docs[1].Title())
	assert.Equal(t, "C", docs[2].Title())
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error(), "empty.txt")
}

func TestLoadDir_Missing(t *testing.T) {
	_, _, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSplitFrontMatter(t *testing.T) {
	front, body, ok := splitFrontMatter("---\r\ntitle: x\r\n---\r\nbody")
	require.True(t, ok)
	assert.Equal(t, "title: x\r\n", front)
	assert.Equal(t, "body", body)

	_, body, ok = splitFrontMatter("---\ntitle: never closed\n")
	assert.False(t, ok)
	assert.Equal(t, "---\ntitle: never closed\n", body)
}

// --- indexing ---

func TestIndexer_IndexesAndSearches(t *testing.T) {
	idx, err := vectorindex.OpenLocal(filepath.Join(t.TempDir(), "index.db"), "papers")
	require.NoError(t, err)
	defer idx.Close()

	emb := &keywordEmbedder{}
	ix := &Indexer{Embedder: emb, Index: idx, BatchSize: 2}

	docs := []types.Document{
		{Content: "attention mechanisms", Metadata: types.Metadata{Title: "Attention", Source: types.SourceDatabase}},
		{Content: "graph convolutions", Metadata: types.Metadata{Title: "Graphs", Source: types.SourceDatabase}},
		{Content: "something else", Metadata: types.Metadata{Title: "Other", Source: types.SourceDatabase}},
	}
	n, err := ix.Add(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, emb.calls)
	assert.Equal(t, 3, idx.Len())

	hits, err := idx.Search(context.Background(), []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Graphs", hits[0].Payload.Metadata.Title)
	assert.Equal(t, "graph convolutions", hits[0].Payload.Text)

	// Re-indexing the same documents replaces rather than duplicates.
	_, err = ix.Add(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
}

func TestIndexer_EmbedFailure(t *testing.T) {
	idx, err := vectorindex.OpenLocal(filepath.Join(t.TempDir(), "index.db"), "papers")
	require.NoError(t, err)
	defer idx.Close()

	ix := &Indexer{Embedder: &keywordEmbedder{err: errors.New("ollama down")}, Index: idx}
	n, err := ix.Add(context.Background(), []types.Document{{Content: "x", Metadata: types.Metadata{Title: "X"}}})
	assert.Zero(t, n)
	assert.ErrorContains(t, err, "ollama down")
}

func TestIndexer_Empty(t *testing.T) {
	n, err := (&Indexer{}).Add(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStableID(t *testing.T) {
	a := stableID("T", "content")
	assert.Len(t, a, 12)
	assert.Equal(t, a, stableID("T", "content"))
	assert.NotEqual(t, a, stableID("T2", "content"))
	assert.NotEqual(t, stableID("ab", "c"), stableID("a", "bc"))
}
