package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ZUGAZ/likes-to-go/internal/api"
	"github.com/ZUGAZ/likes-to-go/internal/metrics"
	"github.com/ZUGAZ/likes-to-go/pkg/ui"
)

var listenAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP control API",
	Long: `Serve the control API so other programs can drive a collection.

Routes:
  POST /api/messages   send a control message, answered with the state
  GET  /api/state      current state
  GET  /metrics        Prometheus metrics (when enabled)
  GET  /healthz        liveness`,
	Example: `  likestogo serve --addr 127.0.0.1:8787
  curl -XPOST localhost:8787/api/messages -d '{"type":"start-collection"}'`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addCollectionFlags(serveCmd)
	serveCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for export files")
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := collectionFlags(cmd)
	flags["addr"] = listenAddr
	cfg, log, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()
	a.start(ctx)

	var m *metrics.Metrics
	if cfg.Server.MetricsEnabled {
		m = a.metrics
	}
	if !quiet {
		ui.PrintInfo("Listening on", cfg.Server.Addr)
	}
	return api.NewServer(a.orch, m, log).ListenAndServe(ctx, cfg.Server.Addr)
}
