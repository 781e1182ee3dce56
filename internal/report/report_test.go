// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/pkg/types"
)

func sampleReport() types.Report {
	rep := types.EmptyReport()
	rep.Title = "Research Report: transformer efficiency"
	rep.Date = "2026-03-14"
	rep.Query = "transformer efficiency"
	rep.ExecutiveSummary = "Summary."
	rep.References = []types.ReferenceEntry{
		{CitationKey: "vaswani2017", Title: "Attention Is All You Need", Authors: []string{"Ashish Vaswani"}, Year: 2017, Source: types.SourceDatabase},
		{CitationKey: "sparse", Title: "Sparse attention", Authors: []string{}, Source: types.SourceWeb, URL: "https://example.com/sparse"},
	}
	return rep
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	s := &FileStore{Dir: dir, Now: func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }}

	path, err := s.Save(context.Background(), sampleReport())
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.Regexp(t, regexp.MustCompile(`^report_20260314_092653_[0-9a-f]{8}\.json$`), filepath.Base(path))

	got, err := Load(path)
	require.NoError(t, err)
	want := sampleReport()
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Date, got.Date)
	assert.Equal(t, want.Query, got.Query)
	assert.Equal(t, want.References, got.References)
	assert.Equal(t, path, got.Location)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_SavesAreDistinct(t *testing.T) {
	s := NewFileStore(t.TempDir())
	a, err := s.Save(context.Background(), sampleReport())
	require.NoError(t, err)
	b, err := s.Save(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFileStore_UnwritableDir(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := NewFileStore(filepath.Join(blocker, "reports"))
	_, err := s.Save(context.Background(), sampleReport())

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "save", perr.Op)
}

func TestFileStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileStore(t.TempDir()).Save(ctx, sampleReport())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "load", perr.Op)
}

func TestList_NewestFirst(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"report_20260101_000000_aaaaaaaa.json", "report_20260301_000000_bbbbbbbb.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}

	paths, err := List(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "report_20260301_000000_bbbbbbbb.json", filepath.Base(paths[0]))

	paths, err = List(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestBuildReferences(t *testing.T) {
	docs := []types.Document{
		{Metadata: types.Metadata{Title: "Attention Is All You Need", Authors: []string{"Ashish Vaswani", "Noam Shazeer"}, Year: 2017, Source: types.SourceDatabase}},
		{Metadata: types.Metadata{Title: "Another Vaswani paper", Authors: []string{"A. Vaswani"}, Year: 2017}},
		{Metadata: types.Metadata{Title: "The Sparse Transformer", Source: types.SourceWeb, URL: "https://example.com"}},
		{Metadata: types.Metadata{}},
	}

	refs := BuildReferences(docs)
	require.Len(t, refs, 4)
	assert.Equal(t, "vaswani2017", refs[0].CitationKey)
	assert.Equal(t, "vaswani2017a", refs[1].CitationKey)
	assert.Equal(t, "sparse", refs[2].CitationKey)
	assert.Equal(t, "ref4", refs[3].CitationKey)

	assert.Equal(t, "Attention Is All You Need", refs[0].Title)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, refs[0].Authors)
	assert.Equal(t, "https://example.com", refs[2].URL)

	// References do not alias document metadata.
	refs[0].Authors[0] = "changed"
	assert.Equal(t, "Ashish Vaswani", docs[0].Metadata.Authors[0])
}

func TestBuildReferences_Empty(t *testing.T) {
	refs := BuildReferences(nil)
	assert.NotNil(t, refs)
	assert.Empty(t, refs)
}

func TestBibTeX(t *testing.T) {
	out := BibTeX(sampleReport().References)

	assert.Contains(t, out, "@article{vaswani2017,\n")
	assert.Contains(t, out, "  title = {Attention Is All You Need},\n")
	assert.Contains(t, out, "  author = {Ashish Vaswani},\n")
	assert.Contains(t, out, "  year = {2017},\n")
	assert.Contains(t, out, "@misc{sparse,\n")
	assert.Contains(t, out, "  url = {https://example.com/sparse},\n")
	assert.Equal(t, 2, strings.Count(out, "}\n\n"))
}
