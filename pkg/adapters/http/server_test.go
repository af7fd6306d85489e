package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/epochlik"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
name: cherry-pair
tree: "((A:0.5,B:0.5):1.0,(C:1.0,D:1.0):0.5);"
epochs:
  boundaries: [1.0]
  processes:
    - model: hky
      kappa: 2
      frequencies: [0.1, 0.2, 0.3, 0.4]
    - model: jc
alignment:
  sequences:
    A: ACGTACGT
    B: ACGTTCGT
    C: AGGTACCT
    D: TCGAACGT
`

func evaluator(ctx context.Context, scenario []byte, withPatterns bool) (*epochlik.Evaluation, error) {
	return epochlik.Evaluate(ctx, scenario, withPatterns)
}

func post(t *testing.T, h http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", target, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestEvaluate(t *testing.T) {
	h := NewHandler(evaluator, []string{"cpu"}, nil)

	w := post(t, h, "/evaluate", scenarioYAML)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var ev epochlik.Evaluation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))
	assert.Equal(t, "cherry-pair", ev.Name)
	assert.Equal(t, "cpu", ev.Engine)
	assert.Equal(t, 4, ev.Tips)
	assert.Equal(t, 8, ev.Sites)
	assert.Equal(t, []float64{1.0}, ev.Boundaries)
	assert.True(t, ev.Finite)
	require.NotNil(t, ev.LogLikelihood)
	assert.Less(t, *ev.LogLikelihood, 0.0)
	assert.Empty(t, ev.PatternLogLikelihoods)

	direct, err := epochlik.Evaluate(context.Background(), []byte(scenarioYAML), false)
	require.NoError(t, err)
	assert.InDelta(t, *direct.LogLikelihood, *ev.LogLikelihood, 1e-12)
}

func TestEvaluate_Patterns(t *testing.T) {
	h := NewHandler(evaluator, nil, nil)

	w := post(t, h, "/evaluate?patterns=true", scenarioYAML)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var ev epochlik.Evaluation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))
	assert.Len(t, ev.PatternLogLikelihoods, ev.Patterns)

	w = post(t, h, "/evaluate?patterns=maybe", scenarioYAML)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluate_Rejected(t *testing.T) {
	h := NewHandler(evaluator, nil, nil)

	w := post(t, h, "/evaluate", "tree: x\nbogus: 1\n")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = post(t, h, "/evaluate", strings.Replace(scenarioYAML, "A:0.5,B:0.5", "A:0.5,B:0.5,E:0.5", 1))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = post(t, h, "/evaluate", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluate_NonFinite(t *testing.T) {
	h := NewHandler(func(ctx context.Context, scenario []byte, withPatterns bool) (*epochlik.Evaluation, error) {
		return &epochlik.Evaluation{Name: "underflow", Boundaries: []float64{}}, nil
	}, nil, nil)

	w := post(t, h, "/evaluate", "anything")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"log_likelihood":null`)
	assert.Contains(t, w.Body.String(), `"finite":false`)
}

func TestEvaluate_EngineFailure(t *testing.T) {
	h := NewHandler(func(ctx context.Context, scenario []byte, withPatterns bool) (*epochlik.Evaluation, error) {
		return nil, errors.New("device lost")
	}, nil, nil)

	w := post(t, h, "/evaluate", "anything")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "device lost")
}

func TestGraph(t *testing.T) {
	h := NewHandler(evaluator, nil, nil)

	w := post(t, h, "/graph", scenarioYAML)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Body.String(), "graph TD"))
}

func TestHealthAndInfo(t *testing.T) {
	h := NewHandler(evaluator, []string{"cpu"}, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	req = httptest.NewRequest("GET", "/info", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var info map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "epochlik-http", info["app"])
	assert.Equal(t, []any{"cpu"}, info["engines"])
}

func TestCORS(t *testing.T) {
	h := NewHandler(evaluator, nil, nil)

	req := httptest.NewRequest("OPTIONS", "/evaluate", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
