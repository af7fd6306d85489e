package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/epochlik"
	"github.com/aretw0/epochlik/internal/config"
	"github.com/aretw0/epochlik/internal/presentation/graph"
	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// MaxScenarioBytes bounds the size of a posted scenario.
const MaxScenarioBytes = 8 << 20

// Evaluator evaluates a YAML scenario. epochlik.Evaluate satisfies it once
// bound to its options.
type Evaluator func(ctx context.Context, scenario []byte, withPatterns bool) (*epochlik.Evaluation, error)

// Server serves scenario evaluations over HTTP.
type Server struct {
	Evaluate Evaluator
	Engines  []string
	Logger   *slog.Logger
}

// NewHandler creates a new HTTP handler around an evaluator. engines lists the
// resources reported by GET /info.
func NewHandler(eval Evaluator, engines []string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{Evaluate: eval, Engines: engines, Logger: logger}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Post("/evaluate", s.PostEvaluate)
	r.Post("/graph", s.PostGraph)
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostEvaluate handles POST /evaluate. The body is a YAML scenario; the
// "patterns" query parameter adds per-pattern log-likelihoods.
func (s *Server) PostEvaluate(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readScenario(w, r)
	if !ok {
		return
	}
	withPatterns := false
	if raw := r.URL.Query().Get("patterns"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "Invalid patterns parameter", http.StatusBadRequest)
			return
		}
		withPatterns = v
	}

	ev, err := s.Evaluate(r.Context(), body, withPatterns)
	if err != nil {
		status := statusFor(err)
		http.Error(w, fmt.Sprintf("Evaluate error: %v", err), status)
		if status >= http.StatusInternalServerError {
			s.Logger.Error("Evaluate failed", "error", err)
		} else {
			s.Logger.Warn("Evaluate: rejected scenario", "error", err)
		}
		return
	}
	s.Logger.Debug("Evaluate", "name", ev.Name, "finite", ev.Finite, "duration_ms", ev.DurationMS)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ev); err != nil {
		s.Logger.Error("Evaluate response encode failed", "error", err)
	}
}

// PostGraph handles POST /graph and answers with the Mermaid diagram of the
// scenario tree.
func (s *Server) PostGraph(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readScenario(w, r)
	if !ok {
		return
	}
	sc, err := epochlik.ParseScenario(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Graph error: %v", err), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(sc.Tree, sc.Tree.Name, sc.Boundaries, nil))
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"app":     "epochlik-http",
		"version": strings.TrimSpace(epochlik.Version),
		"engines": s.Engines,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) readScenario(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxScenarioBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Scenario too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("Invalid request body", "error", err)
		return nil, false
	}
	if len(body) == 0 {
		http.Error(w, "Empty scenario", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

var clientErrors = []error{
	config.ErrInvalidScenario,
	domain.ErrNegativeBranchLength,
	domain.ErrEpochModelMismatch,
	domain.ErrUnsortedBoundaries,
	domain.ErrStateCountMismatch,
	domain.ErrTipCountMismatch,
}

func statusFor(err error) int {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
