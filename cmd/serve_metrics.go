package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ColonelBlimp/cwengine/internal/config"
	"github.com/ColonelBlimp/cwengine/internal/metrics"
	"github.com/spf13/cobra"
)

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Serve the Prometheus metrics endpoint standalone",
	Long: `serve-metrics runs only the metrics HTTP server, for deployments that run
send/receive as separate short-lived processes but still want one
long-running /metrics endpoint.`,
	RunE: runServeMetrics,
}

func init() {
	rootCmd.AddCommand(serveMetricsCmd)
}

func runServeMetrics(_ *cobra.Command, _ []string) error {
	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if settings.MetricsListenAddr == "" {
		return fmt.Errorf("metrics_listen_addr is not set")
	}

	metrics.New()
	srv := metrics.NewServer(settings.MetricsListenAddr)
	srv.Start()
	fmt.Printf("serving metrics on %s/metrics, press Ctrl+C to stop.\n", settings.MetricsListenAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}
