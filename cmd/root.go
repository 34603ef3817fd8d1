package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/review-cli/internal/config"
	"github.com/sells-group/review-cli/internal/metrics"
)

var (
	cfg         *config.Config
	metricsAddr string
	registry    *prometheus.Registry
	stopMetrics context.CancelFunc = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "review-cli",
	Short: "Collect product reviews from G2, Capterra and TrustRadius",
	Long:  "Pages through a company's review listings, extracts structured reviews with a markup heuristic and a Claude fallback, and writes JSON/XLSX results and run history.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if metricsAddr != "" {
			cfg.Metrics.Addr = metricsAddr
		}
		startMetrics(cmd.Context(), cfg.Metrics.Addr)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		stopMetrics()
		_ = zap.L().Sync()
	},
}

// startMetrics serves /metrics and /healthz in the background until the
// command finishes.
func startMetrics(parent context.Context, addr string) {
	if registry == nil {
		registry = metrics.InitRegistry()
	}
	if addr == "" {
		return
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	stopMetrics = cancel
	go func() {
		if err := metrics.Serve(ctx, addr, registry); err != nil {
			zap.L().Warn("metrics server stopped", zap.Error(err))
		}
	}()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address (e.g. :9090)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
