package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/epochlik"
	httpadapter "github.com/aretw0/epochlik/pkg/adapters/http"
	"github.com/aretw0/epochlik/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scenario evaluations over HTTP",
	Long: `Starts an HTTP server. POST a YAML scenario to /evaluate to get its
log-likelihood as JSON (add ?patterns=true for per-pattern values), or to /graph
for a Mermaid diagram of its tree.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server exposing scenario evaluation",
	Long:  `Serves the evaluate_scenario and scenario_graph tools over stdio, or over SSE when --sse-addr is set.`,
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func init() {
	addEngineFlags(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	rootCmd.AddCommand(serveCmd)

	addEngineFlags(mcpCmd)
	mcpCmd.Flags().String("sse-addr", "", "Serve over SSE on this address (e.g. :8081) instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

// evaluator binds the engine flags to epochlik.Evaluate.
func evaluator(cmd *cobra.Command, logger *slog.Logger) (func(context.Context, []byte, bool) (*epochlik.Evaluation, error), func(), error) {
	opts, err := engineOptions(cmd, logger)
	if err != nil {
		return nil, nil, err
	}
	metrics, stop, err := serveMetrics(cmd, logger)
	if err != nil {
		return nil, nil, err
	}
	if metrics != nil {
		opts = append(opts, epochlik.WithEvaluationHooks(metrics.Hooks("serve")))
	}
	return func(ctx context.Context, scenario []byte, withPatterns bool) (*epochlik.Evaluation, error) {
		return epochlik.Evaluate(ctx, scenario, withPatterns, opts...)
	}, stop, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	eval, stop, err := evaluator(cmd, logger)
	if err != nil {
		return err
	}
	defer stop()
	addr, _ := cmd.Flags().GetString("addr")

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpadapter.NewHandler(eval, epochlik.DefaultRegistry().Names(), logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("serving evaluations", "addr", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-cmd.Context().Done():
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	eval, stop, err := evaluator(cmd, logger)
	if err != nil {
		return err
	}
	defer stop()

	s := mcp.NewServer(eval, epochlik.DefaultRegistry().Names())
	if addr, _ := cmd.Flags().GetString("sse-addr"); addr != "" {
		return s.ServeSSE(cmd.Context(), addr)
	}
	return s.ServeStdio()
}
