package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/epochlik"
	"github.com/aretw0/epochlik/internal/presentation/graph"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// EvaluateArgs are the arguments of the evaluate_scenario tool.
type EvaluateArgs struct {
	Scenario string `json:"scenario"`
	Patterns bool   `json:"patterns"`
}

// Evaluator evaluates a YAML scenario.
type Evaluator func(ctx context.Context, scenario []byte, withPatterns bool) (*epochlik.Evaluation, error)

// Server exposes scenario evaluation as an MCP Server.
type Server struct {
	evaluate  Evaluator
	engines   []string
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(eval Evaluator, engines []string) *Server {
	s := &Server{
		evaluate:  eval,
		engines:   engines,
		mcpServer: server.NewMCPServer("epochlik-mcp", strings.TrimSpace(epochlik.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done, then shuts the
// listener down.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL(addr)))

	mux := http.NewServeMux()
	mux.Handle("/sse", allowOrigins(sse.SSEHandler()))
	mux.Handle("/message", allowOrigins(sse.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// baseURL turns a listen address such as ":8081" into the URL clients reach.
func baseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func allowOrigins(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: evaluate_scenario
	evaluateTool := mcp.NewTool("evaluate_scenario",
		mcp.WithDescription("Evaluate the log-likelihood of an epoch model scenario given as YAML."),
		mcp.WithString("scenario", mcp.Required(), mcp.Description("Scenario document (YAML)")),
		mcp.WithBoolean("patterns", mcp.Description("Include per-pattern log-likelihoods")),
		mcp.WithOutputSchema[epochlik.Evaluation](),
	)
	s.mcpServer.AddTool(evaluateTool, mcp.NewStructuredToolHandler(s.handleEvaluate))

	// TOOL: scenario_graph
	s.mcpServer.AddTool(mcp.NewTool("scenario_graph",
		mcp.WithDescription("Render the tree of a scenario as a Mermaid diagram colored by epoch."),
		mcp.WithString("scenario", mcp.Required(), mcp.Description("Scenario document (YAML)")),
	), s.handleGraph)
}

func (s *Server) handleEvaluate(ctx context.Context, request mcp.CallToolRequest, args EvaluateArgs) (*epochlik.Evaluation, error) {
	if strings.TrimSpace(args.Scenario) == "" {
		return nil, fmt.Errorf("scenario is required")
	}
	ev, err := s.evaluate(ctx, []byte(args.Scenario), args.Patterns)
	if err != nil {
		return nil, fmt.Errorf("evaluate failed: %w", err)
	}
	return ev, nil
}

func (s *Server) handleGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("scenario")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sc, err := epochlik.ParseScenario([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scenario rejected: %v", err)), nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(sc.Tree, sc.Tree.Name, sc.Boundaries, nil)), nil
}

func (s *Server) registerResources() {
	// EXPOSE: epochlik://engines
	s.mcpServer.AddResource(mcp.NewResource("epochlik://engines", "Available likelihood engines",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, _ := json.Marshal(s.engines)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "epochlik://engines",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
