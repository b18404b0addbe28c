package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aiaudit/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long: `Start the aiaudit HTTP API server.

Endpoints:
  POST /scan        scan files given as JSON
  POST /scan/diff   scan a unified diff (gzip or zstd bodies accepted)
  GET  /rules       list the detection rules
  GET  /health      liveness
  GET  /ready       readiness
  GET  /metrics     Prometheus metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	cfg := e.cfg.Server
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	server := api.NewServer(cfg, e.rules, e.cfg.ScanOptions(), e.logger)

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	serverErr := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "aiaudit HTTP API server listening on http://%s\n", cfg.Addr)
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			e.logger.Error("Server error", "error", err)
			return err
		}
	case sig := <-shutdown:
		e.logger.Info("Received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			e.logger.Error("Error during shutdown", "error", err)
			return err
		}
		e.logger.Info("Server stopped gracefully")
	}
	return nil
}
