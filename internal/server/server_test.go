// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/internal/coordinator"
	"github.com/pdiddy/research-assistant/internal/metrics"
	"github.com/pdiddy/research-assistant/internal/runstore"
	"github.com/pdiddy/research-assistant/pkg/types"
)

type stubRunner struct {
	calls   atomic.Int32
	running atomic.Int32
	peak    atomic.Int32
	block   chan struct{}
	panics  bool
}

func (r *stubRunner) Run(ctx context.Context, query string) types.PipelineState {
	r.calls.Add(1)
	n := r.running.Add(1)
	defer r.running.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if r.panics {
		panic("boom")
	}
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
		}
	}
	s := types.NewPipelineState(query)
	s.Report.Title = "Research Report: " + query
	return s
}

func (r *stubRunner) WorkflowStatus() coordinator.WorkflowStatus {
	return coordinator.WorkflowStatus{
		Name:       coordinator.WorkflowName,
		EntryPoint: "research",
		Stages:     []coordinator.StageInfo{{Name: "research", Position: 1}},
	}
}

func newTestServer(t *testing.T, runner Runner, limit int) (*Server, *runstore.Store) {
	t.Helper()
	store, err := runstore.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var n atomic.Int32
	s := New(Options{
		Runner:            runner,
		Store:             store,
		Metrics:           metrics.New(),
		MaxConcurrentRuns: limit,
		Version:           "test",
		NewID: func() string {
			return "run-" + string(rune('a'+n.Add(1)-1))
		},
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return s, store
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStartResearch(t *testing.T) {
	runner := &stubRunner{}
	s, store := newTestServer(t, runner, 2)

	rec := do(t, s, http.MethodPost, "/research", `{"query":"transformers"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-a", resp.RunID)
	assert.Equal(t, runstore.StatusProcessing, resp.Status)

	s.Wait()
	run, err := store.Get(context.Background(), "run-a")
	require.NoError(t, err)
	assert.Equal(t, runstore.StatusCompleted, run.Status)
	require.NotNil(t, run.State)
	assert.Equal(t, "Research Report: transformers", run.State.Report.Title)
	assert.EqualValues(t, 1, runner.calls.Load())
}

func TestStartResearchRejectsEmptyQuery(t *testing.T) {
	runner := &stubRunner{}
	s, _ := newTestServer(t, runner, 1)

	for _, body := range []string{`{"query":""}`, `{"query":"   "}`, `{}`, `not json`} {
		rec := do(t, s, http.MethodPost, "/research", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	s.Wait()
	assert.Zero(t, runner.calls.Load())
}

func TestGetResearch(t *testing.T) {
	s, _ := newTestServer(t, &stubRunner{}, 1)

	do(t, s, http.MethodPost, "/research", `{"query":"graph neural networks"}`)
	s.Wait()

	rec := do(t, s, http.MethodGet, "/research/run-a", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var run runstore.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "run-a", run.ID)
	assert.Equal(t, "graph neural networks", run.Query)
	assert.Equal(t, runstore.StatusCompleted, run.Status)

	rec = do(t, s, http.MethodGet, "/research/run-a/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, runstore.StatusCompleted, st.Status)
	assert.NotNil(t, st.Timestamp)
}

func TestUnknownRun(t *testing.T) {
	s, _ := newTestServer(t, &stubRunner{}, 1)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/research/missing", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/research/missing/status", "").Code)
}

func TestRunStaysProcessingUntilDone(t *testing.T) {
	runner := &stubRunner{block: make(chan struct{})}
	s, _ := newTestServer(t, runner, 1)

	do(t, s, http.MethodPost, "/research", `{"query":"q"}`)

	rec := do(t, s, http.MethodGet, "/research/run-a/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"processing"`)

	close(runner.block)
	s.Wait()

	rec = do(t, s, http.MethodGet, "/research/run-a/status", "")
	assert.Contains(t, rec.Body.String(), `"completed"`)
}

func TestConcurrencyLimit(t *testing.T) {
	runner := &stubRunner{block: make(chan struct{})}
	s, _ := newTestServer(t, runner, 2)

	for range 5 {
		rec := do(t, s, http.MethodPost, "/research", `{"query":"q"}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	require.Eventually(t, func() bool { return runner.running.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
	close(runner.block)
	s.Wait()

	assert.EqualValues(t, 5, runner.calls.Load())
	assert.LessOrEqual(t, runner.peak.Load(), int32(2))
}

func TestRunPanicMarksFailed(t *testing.T) {
	s, store := newTestServer(t, &stubRunner{panics: true}, 1)

	do(t, s, http.MethodPost, "/research", `{"query":"q"}`)
	s.Wait()

	run, err := store.Get(context.Background(), "run-a")
	require.NoError(t, err)
	assert.Equal(t, runstore.StatusFailed, run.Status)
	require.Len(t, run.Errors, 1)
	assert.Contains(t, run.Errors[0], "boom")
}

func TestShutdownFailsQueuedRuns(t *testing.T) {
	runner := &stubRunner{block: make(chan struct{})}
	s, store := newTestServer(t, runner, 1)

	do(t, s, http.MethodPost, "/research", `{"query":"first"}`)
	require.Eventually(t, func() bool { return runner.running.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	do(t, s, http.MethodPost, "/research", `{"query":"second"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	queued, err := store.Get(context.Background(), "run-b")
	require.NoError(t, err)
	assert.Equal(t, runstore.StatusFailed, queued.Status)

	first, err := store.Get(context.Background(), "run-a")
	require.NoError(t, err)
	assert.NotEqual(t, runstore.StatusProcessing, first.Status)
}

func TestWorkflowStatus(t *testing.T) {
	s, _ := newTestServer(t, &stubRunner{}, 1)

	rec := do(t, s, http.MethodGet, "/workflow/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"research_workflow","entry_point":"research","stages":[{"name":"research","position":1}]}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, &stubRunner{}, 1)

	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	_, err := time.Parse(time.RFC3339, body["timestamp"])
	assert.NoError(t, err)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &stubRunner{}, 1)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
