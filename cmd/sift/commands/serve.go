package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/sift/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Serve the extraction pipeline over HTTP:

  GET  /healthz   liveness and active scrape count
  POST /scrape    {"url": "..."} → {"result": ScrapeResult}
  GET  /          HTML viewer`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("host", "", "listen host (default $SIFT_HOST or 0.0.0.0)")
	flags.Int("port", 0, "listen port (default $SIFT_PORT or 8080)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig(cmd)
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.Server.Host = v
	}
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		cfg.Server.Port = v
	}

	initLogger(cfg.Log)
	slog.Info("sift starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"engine", cfg.Browser.Engine,
	)

	pipeline, closeBrowser, err := buildPipeline(cfg)
	if err != nil {
		slog.Error("failed to initialise pipeline", "error", err)
		return err
	}
	defer closeBrowser()

	router := api.NewRouter(pipeline, cfg)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("HTTP server error", "error", err)
			return err
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// In-flight scrapes get their own deadline to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.RequestTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("sift stopped")
	return nil
}
