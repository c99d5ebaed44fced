package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/refile/refile/internal/api"
	"github.com/refile/refile/internal/scan"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8642", "Listen address")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server.

Endpoints:
  POST /api/scan       Propose renames for a directory
  POST /api/execute    Apply approved renames
  POST /api/undo       Reverse renames by entry index or session
  GET  /api/history    The rename log
  GET  /api/settings   Current settings
  POST /api/settings   Update settings
  GET  /api/templates  Built-in filename templates

The server shares the data directory with the CLI, so renames made
through either are visible to both.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	dataDir := mustDataDir()
	settings := mustLoadSettings(dataDir)
	tuning := mustLoadTuning(dataDir)

	store := mustOpenHistory(dataDir)
	defer store.Close()

	exec := buildExecutor(store, settings)
	resolver := buildResolver(settings, tuning)

	factory := func(template string) api.Scanner {
		return scan.New(resolver,
			scan.WithTemplate(template),
			scan.WithWorkers(tuning.Workers),
			scan.WithLogger(logger))
	}

	handler := api.NewHandler(factory, exec, store, dataDir)
	httpServer := &http.Server{
		Addr:    serveAddr,
		Handler: api.NewRouter(handler),
	}

	g, gCtx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", serveAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Let in-flight Zotero notifications finish.
		exec.Flush()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
