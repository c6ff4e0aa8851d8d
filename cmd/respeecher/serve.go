package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nadzzz/respeecher/internal/dispatch"
	"github.com/nadzzz/respeecher/internal/health"
	"github.com/nadzzz/respeecher/internal/metrics"
	"github.com/nadzzz/respeecher/internal/transport"
	grpctransport "github.com/nadzzz/respeecher/internal/transport/grpc"
	httptransport "github.com/nadzzz/respeecher/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the synthesis daemon (HTTP, gRPC, health and metrics)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	slog.Info("respeecher starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize enabled transports.
	var transports []transport.Transport
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port))
	}
	if len(transports) == 0 {
		return fmt.Errorf("no transports enabled; enable at least one in config")
	}

	// Start health check server before authenticating so probes see not_ready.
	m := metrics.New()
	healthServer := health.New(cfg.Server.HealthPort, m.Handler())
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	synth, err := newSynthesizer(ctx)
	if err != nil {
		return err
	}
	defer synth.Close()
	slog.Info("authenticated", "user", synth.User().Username)

	dispatcher := dispatch.New(synth, synth, dispatch.Defaults{
		Project:  cfg.Respeecher.Project,
		Folder:   cfg.Respeecher.Folder,
		Language: cfg.Respeecher.Language,
	}, m)

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, dispatcher); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("respeecher ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("respeecher stopped")
	return nil
}

