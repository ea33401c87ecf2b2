package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/buildsys/brick-api/brick"
	"github.com/buildsys/brick-api/errors"
	"github.com/buildsys/brick-api/logger"
	"github.com/buildsys/brick-api/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Load the graph and start the HTTP API",
	Long: `Load the configured graph files (or a compiled snapshot) and serve the
/api/v1 routes, /health and /metrics. The graph is loaded before the listener
starts; a file that fails to load aborts startup.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "HTTP port (default 8000)")
	serveCmd.Flags().StringSlice("files", nil, "Graph files to load, overrides graph.files")
	serveCmd.Flags().String("snapshot", "", "Serve a snapshot written by compile instead of parsing files")
	serveCmd.Flags().String("schema", "", "Brick schema file replacing the embedded one")
	serveCmd.Flags().String("base-uri", "", "Namespace root of entity IRIs")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"server.port":       "port",
		"graph.files":       "files",
		"graph.snapshot":    "snapshot",
		"graph.schema_file": "schema",
		"graph.base_uri":    "base-uri",
	})
	if err != nil {
		return err
	}
	log := logger.Named("serve")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := brick.New(ctx, cfg.Graph)
	if err != nil {
		return errors.Wrap(err, "failed to load graph")
	}
	defer svc.Close()

	if n, err := svc.TripleCount(ctx); err == nil {
		log.Infow("graph loaded", logger.FieldTriples, n)
	}

	app := server.NewApp(svc, cfg.Server)
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      app.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("listening", logger.FieldAddress, "http://localhost"+srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server")
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	log.Info("bye")
	return nil
}

func shutdownTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}
