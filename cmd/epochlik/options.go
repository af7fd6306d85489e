package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/epochlik"
	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/aretw0/epochlik/pkg/observability"
	"github.com/spf13/cobra"
)

// addEngineFlags registers the flags shared by eval and chains.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("scaling", "", "Rescaling scheme: none, always, dynamic, delayed, auto (default from scenario)")
	cmd.Flags().String("resource", "", "Engine resource name (default from scenario)")
	cmd.Flags().Int("threads", 0, "Engine threads, 0 lets the engine decide")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :2112)")
}

// engineOptions turns explicitly set flags into options overriding the scenario.
func engineOptions(cmd *cobra.Command, logger *slog.Logger) ([]epochlik.Option, error) {
	opts := []epochlik.Option{epochlik.WithLogger(logger)}
	if cmd.Flags().Changed("scaling") {
		raw, _ := cmd.Flags().GetString("scaling")
		scheme, err := domain.ParseScheme(raw)
		if err != nil {
			return nil, err
		}
		opts = append(opts, epochlik.WithScheme(scheme))
	}
	if cmd.Flags().Changed("resource") {
		resource, _ := cmd.Flags().GetString("resource")
		opts = append(opts, epochlik.WithResource(resource))
	}
	if cmd.Flags().Changed("threads") {
		threads, _ := cmd.Flags().GetInt("threads")
		opts = append(opts, epochlik.WithThreads(threads))
	}
	return opts, nil
}

// serveMetrics starts the metrics endpoint when --metrics-addr is set. The
// returned function shuts the server down.
func serveMetrics(cmd *cobra.Command, logger *slog.Logger) (*observability.Metrics, func(), error) {
	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr == "" {
		return nil, func() {}, nil
	}
	metrics := observability.NewMetrics()
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()
	return metrics, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
