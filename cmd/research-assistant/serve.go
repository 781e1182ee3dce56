// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/coordinator"
	"github.com/pdiddy/research-assistant/internal/metrics"
	"github.com/pdiddy/research-assistant/internal/runstore"
	"github.com/pdiddy/research-assistant/internal/server"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve research runs over HTTP",
	Long: `Serve starts the HTTP service. POST /research accepts a query and returns a
run id immediately; the run executes in the background and its status and
result are available at /research/{id}/status and /research/{id}.

The service also exposes /workflow/status, /health and /metrics.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	rt, err := coordinator.Open(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer rt.Close()

	store, err := runstore.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(server.Options{
		Runner:            rt,
		Store:             store,
		Metrics:           m,
		Logger:            logger.Named("server"),
		MaxConcurrentRuns: cfg.Server.MaxConcurrentRuns,
		Version:           version,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.Server.Addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
		return err
	}
	return nil
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, :8000)")

	rootCmd.AddCommand(serveCmd)
}
