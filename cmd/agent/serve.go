package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/di"
	"browser-agent/internal/infrastructure/httpapi"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the agent HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (overrides HTTP_ADDR)")
	pageHostCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (overrides PAGE_HOST_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := di.NewContainer(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer container.Close()

	handlers := httpapi.NewHandlers(container.Turns, container.Sequencer, container.Inspector(), container.Logger)
	router := httpapi.NewRouter(handlers, httpapi.RouterConfig{
		AccessLog: true,
		LogLevel:  cfg.Log.Level,
	})

	return listenAndServe(ctx, cfg.HTTPAddr, router, container.Logger)
}

// listenAndServe runs srv until ctx is done, then shuts it down gracefully.
func listenAndServe(ctx context.Context, addr string, handler http.Handler, log output.LoggerPort) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
		return err
	}
	return nil
}
