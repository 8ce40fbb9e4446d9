package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/zipstream/config"
	zipstreamhttp "github.com/sagarc03/zipstream/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the zipstream HTTP server.

GET /               serves the index page
GET /archive/{id}/  streams the directory {id} under the root as a zip archive`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP server port")
	serveCmd.Flags().String("index", "", "index page served at / (default: index.html)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	service, store, closeService, err := openService(cfg)
	if err != nil {
		return err
	}
	defer closeService()

	handlerConfig := zipstreamhttp.HandlerConfig{
		IndexPath: cfg.Server.IndexPath,
		CORS:      cfg.CORS,
	}
	handler := zipstreamhttp.NewHandler(&handlerConfig, service)

	// Requests derive from baseCtx; cancelling it at shutdown stops every transfer.
	baseCtx, cancelTransfers := context.WithCancel(context.Background())
	defer cancelTransfers()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelTransfers)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
	}()

	slog.Info("starting server", "addr", addr, "root", store.Root(), "compressor", cfg.Compressor.Backend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-shutdownDone
	return nil
}
