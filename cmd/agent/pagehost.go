package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"browser-agent/internal/di"

	"github.com/spf13/cobra"
)

var pageHostCmd = &cobra.Command{
	Use:   "pagehost",
	Short: "Own a page and execute actions received over WebSocket",
	Long: `Opens the configured executor (a live Chrome page or the simulated DOM) and accepts
executeAction messages on /ws. Point an agent at it with PAGE_HOST_URL=ws://<addr>/ws.`,
	RunE: runPageHost,
}

func runPageHost(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host, err := di.NewPageHost(ctx, cfg)
	if err != nil {
		return err
	}
	defer host.Close()

	mux := http.NewServeMux()
	mux.Handle("/ws", host.Server)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	host.Logger.Info("Page host ready", "mode", host.Backend.Mode, "addr", cfg.PageHostAddr)
	return listenAndServe(ctx, cfg.PageHostAddr, mux, host.Logger)
}
