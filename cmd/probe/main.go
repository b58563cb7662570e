package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/samvad-probe/internal/app"
	"github.com/samvad-hq/samvad-probe/internal/config"
	"github.com/samvad-hq/samvad-probe/internal/logger"
	"github.com/samvad-hq/samvad-probe/pkg/httpclient"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "probe start failed: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:           "probe",
		Short:         "Probe HTTP targets and publish the outcomes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "probe every target once and exit")
	return cmd
}

func run(parent context.Context, once bool) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("probe starting", "config", cfg)

	sigCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	metrics := httpclient.NewMetrics(prometheus.DefaultRegisterer)

	prober, err := app.NewProber(ctx, cfg, log, metrics)
	if err != nil {
		logger.ErrorObj("failed to initialize prober", "error", err)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The metrics server lives only as long as the prober.
		defer cancel()
		if once {
			if err := prober.RunOnce(gctx); err != nil {
				return fmt.Errorf("probe pass: %w", err)
			}
			return nil
		}
		if err := prober.Run(gctx); err != nil {
			return fmt.Errorf("prober run: %w", err)
		}
		return nil
	})
	if cfg.MetricsAddr != "" {
		srv := metricsServer(cfg.MetricsAddr)
		g.Go(func() error {
			logger.InfoObj("metrics server listening", "metrics_addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

func metricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
