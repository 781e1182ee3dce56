// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes research runs over HTTP. Runs are accepted
// immediately and executed in the background; clients poll for status
// and results by run id.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/coordinator"
	"github.com/pdiddy/research-assistant/internal/metrics"
	"github.com/pdiddy/research-assistant/internal/runstore"
	"github.com/pdiddy/research-assistant/pkg/types"
)

const defaultMaxConcurrentRuns = 4

// Runner executes research queries.
type Runner interface {
	Run(ctx context.Context, query string) types.PipelineState
	WorkflowStatus() coordinator.WorkflowStatus
}

// RunStore records runs.
type RunStore interface {
	Create(ctx context.Context, id, query string) (runstore.Run, error)
	Complete(ctx context.Context, id string, state types.PipelineState) error
	Fail(ctx context.Context, id, reason string) error
	Get(ctx context.Context, id string) (runstore.Run, error)
}

// Options configures a Server.
type Options struct {
	Runner            Runner
	Store             RunStore
	Metrics           *metrics.Metrics
	Logger            *zap.Logger
	MaxConcurrentRuns int
	Version           string

	// NewID generates run ids; defaults to random UUIDs.
	NewID func() string
}

// Server is the HTTP front end for research runs.
type Server struct {
	echo    *echo.Echo
	runner  Runner
	store   RunStore
	logger  *zap.Logger
	version string
	newID   func() string

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a server and registers its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := opts.MaxConcurrentRuns
	if limit <= 0 {
		limit = defaultMaxConcurrentRuns
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		echo:    echo.New(),
		runner:  opts.Runner,
		store:   opts.Store,
		logger:  logger,
		version: opts.Version,
		newID:   newID,
		sem:     make(chan struct{}, limit),
		ctx:     ctx,
		cancel:  cancel,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(s.requestLogger)

	e.POST("/research", s.startResearch)
	e.GET("/research/:id", s.getResearch)
	e.GET("/research/:id/status", s.getStatus)
	e.GET("/workflow/status", s.workflowStatus)
	e.GET("/health", s.health)
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics.Handler()))
	}
	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("server listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving on %s: %w", addr, err)
	}
	return nil
}

// Shutdown stops accepting requests, cancels background runs, and waits
// for them to record their final state.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, fmt.Errorf("waiting for runs: %w", ctx.Err()))
	}
	return err
}

// Wait blocks until all background runs have finished.
func (s *Server) Wait() { s.wg.Wait() }

type researchRequest struct {
	Query string `json:"query"`
}

type statusResponse struct {
	RunID     string          `json:"run_id"`
	Status    runstore.Status `json:"status"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) startResearch(c echo.Context) error {
	var req researchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "query is required"})
	}

	id := s.newID()
	if _, err := s.store.Create(c.Request().Context(), id, query); err != nil {
		s.logger.Error("creating run", zap.String("run_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "could not start research"})
	}

	s.wg.Add(1)
	go s.execute(id, query)

	return c.JSON(http.StatusAccepted, statusResponse{RunID: id, Status: runstore.StatusProcessing})
}

// execute runs one query once a slot is free and records the outcome.
func (s *Server) execute(id, query string) {
	defer s.wg.Done()
	logger := s.logger.With(zap.String("run_id", id))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("run panicked", zap.Any("panic", r))
			s.fail(id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-s.ctx.Done():
	}
	if s.ctx.Err() != nil {
		s.fail(id, "server shutting down")
		return
	}

	logger.Info("run started", zap.String("query", query))
	state := s.runner.Run(s.ctx, query)

	if err := s.store.Complete(context.Background(), id, state); err != nil {
		logger.Error("recording run", zap.Error(err))
		return
	}
	logger.Info("run finished",
		zap.String("outcome", string(state.Outcome())),
		zap.Int("errors", len(state.Errors)),
	)
}

func (s *Server) fail(id, reason string) {
	if err := s.store.Fail(context.Background(), id, reason); err != nil {
		s.logger.Error("recording failed run", zap.String("run_id", id), zap.Error(err))
	}
}

func (s *Server) getResearch(c echo.Context) error {
	run, err := s.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.lookupError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) getStatus(c echo.Context) error {
	run, err := s.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.lookupError(c, err)
	}
	ts := run.UpdatedAt
	return c.JSON(http.StatusOK, statusResponse{RunID: run.ID, Status: run.Status, Timestamp: &ts})
}

func (s *Server) lookupError(c echo.Context, err error) error {
	if errors.Is(err, runstore.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "research task not found"})
	}
	s.logger.Error("reading run", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "could not read research task"})
}

func (s *Server) workflowStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.runner.WorkflowStatus())
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "healthy",
		"version":   s.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// requestLogger logs each request with zap.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Debug("request",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}
}
