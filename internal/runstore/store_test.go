// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runstore

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func finishedState(query string) types.PipelineState {
	st := types.NewPipelineState(query)
	st.Documents = []types.Document{{Content: "c", Metadata: types.Metadata{Title: "Doc", RelevanceScore: 0.8}}}
	st.Report.Title = "Research Report: " + query
	st.Report.Location = "/reports/r.json"
	return st
}

// --- tests ---

func TestOpenCreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestCreateAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "run-1", "graph neural networks")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, created.Status)

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "graph neural networks", got.Query)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Nil(t, got.State)
	assert.Equal(t, []string{}, got.Errors)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)
}

func TestCreateDuplicate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "run-1", "q")
	require.NoError(t, err)
	_, err = s.Create(ctx, "run-1", "other")
	assert.ErrorIs(t, err, ErrExists)
}

func TestGetUnknown(t *testing.T) {
	_, err := testStore(t).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComplete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	_, err := s.Create(ctx, "run-1", "q")
	require.NoError(t, err)

	st := finishedState("q")
	st = st.WithError("research: web search unavailable")
	require.NoError(t, s.Complete(ctx, "run-1", st))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, types.OutcomeDegraded, got.Outcome)
	assert.Equal(t, []string{"research: web search unavailable"}, got.Errors)
	require.NotNil(t, got.State)
	assert.Equal(t, "Research Report: q", got.State.Report.Title)
	assert.Len(t, got.State.Documents, 1)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestCompleteFailedOutcome(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	_, err := s.Create(ctx, "run-1", "q")
	require.NoError(t, err)

	st := types.NewPipelineState("q").WithError("research: retrieval failed during embed: refused")
	require.NoError(t, s.Complete(ctx, "run-1", st))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, types.OutcomeFailed, got.Outcome)
}

func TestCompleteOnlyOnce(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	_, err := s.Create(ctx, "run-1", "q")
	require.NoError(t, err)

	require.NoError(t, s.Complete(ctx, "run-1", finishedState("q")))
	err = s.Complete(ctx, "run-1", types.NewPipelineState("q"))
	assert.ErrorIs(t, err, ErrFinished)

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got.State.Documents, 1)
}

func TestCompleteUnknown(t *testing.T) {
	err := testStore(t).Complete(context.Background(), "missing", finishedState("q"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFail(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	_, err := s.Create(ctx, "run-1", "q")
	require.NoError(t, err)

	require.NoError(t, s.Fail(ctx, "run-1", "server shutting down"))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Nil(t, got.State)
	assert.Equal(t, []string{"server shutting down"}, got.Errors)
}

func TestList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for _, r := range []struct{ id, query string }{
		{"a", "Transformer efficiency"},
		{"b", "graph neural networks"},
		{"c", "efficient_attention 100%"},
	} {
		_, err := s.Create(ctx, r.id, r.query)
		require.NoError(t, err)
	}
	require.NoError(t, s.Complete(ctx, "b", finishedState("graph neural networks")))

	all, err := s.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)
	assert.Nil(t, all[1].State)

	processing, err := s.List(ctx, ListOptions{Status: StatusProcessing})
	require.NoError(t, err)
	assert.Len(t, processing, 2)

	matched, err := s.List(ctx, ListOptions{Query: "EFFICIEN"})
	require.NoError(t, err)
	assert.Len(t, matched, 2)

	literal, err := s.List(ctx, ListOptions{Query: "100%"})
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "c", literal[0].ID)

	limited, err := s.List(ctx, ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListEmpty(t *testing.T) {
	runs, err := testStore(t).List(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestExport(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	_, err := s.Create(ctx, "a", "q1")
	require.NoError(t, err)
	_, err = s.Create(ctx, "b", "q2")
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, "b", finishedState("q2")))

	var yb bytes.Buffer
	require.NoError(t, s.ExportYAML(ctx, &yb, ListOptions{}))
	var fromYAML []ExportEntry
	require.NoError(t, yaml.Unmarshal(yb.Bytes(), &fromYAML))
	require.Len(t, fromYAML, 2)
	assert.Equal(t, "b", fromYAML[0].ID)
	assert.Equal(t, 1, fromYAML[0].Documents)
	assert.Equal(t, "Research Report: q2", fromYAML[0].ReportTitle)
	assert.Equal(t, "/reports/r.json", fromYAML[0].ReportPath)
	assert.Equal(t, StatusProcessing, fromYAML[1].Status)

	var jb bytes.Buffer
	require.NoError(t, s.ExportJSON(ctx, &jb, ListOptions{Status: StatusCompleted}))
	var fromJSON []ExportEntry
	require.NoError(t, json.Unmarshal(jb.Bytes(), &fromJSON))
	require.Len(t, fromJSON, 1)
	assert.Equal(t, "q2", fromJSON[0].Query)
}
