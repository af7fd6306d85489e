package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/epochlik"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
name: mcp-pair
tree: "((A:0.5,B:0.5):1.0,(C:1.0,D:1.0):0.5);"
epochs:
  boundaries: [1.0]
  processes:
    - model: hky
      kappa: 2
    - model: jc
alignment:
  sequences:
    A: ACGTACGT
    B: ACGTTCGT
    C: AGGTACCT
    D: TCGAACGT
`

func newTestServer() *Server {
	return NewServer(func(ctx context.Context, scenario []byte, withPatterns bool) (*epochlik.Evaluation, error) {
		return epochlik.Evaluate(ctx, scenario, withPatterns)
	}, []string{"cpu"})
}

func call(t *testing.T, s *Server, tool string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	st := s.mcpServer.GetTool(tool)
	require.NotNil(t, st, "tool %s not registered", tool)

	var req mcp.CallToolRequest
	req.Params.Name = tool
	req.Params.Arguments = args
	res, err := st.Handler(context.Background(), req)
	require.NoError(t, err)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return tc.Text
}

func TestEvaluateScenario(t *testing.T) {
	s := newTestServer()

	res := call(t, s, "evaluate_scenario", map[string]any{"scenario": scenarioYAML, "patterns": true})
	require.False(t, res.IsError, text(t, res))

	ev, ok := res.StructuredContent.(*epochlik.Evaluation)
	require.True(t, ok)
	assert.Equal(t, "mcp-pair", ev.Name)
	assert.True(t, ev.Finite)
	require.NotNil(t, ev.LogLikelihood)
	assert.Len(t, ev.PatternLogLikelihoods, ev.Patterns)
}

func TestEvaluateScenario_Errors(t *testing.T) {
	s := newTestServer()

	res := call(t, s, "evaluate_scenario", map[string]any{"scenario": "  "})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "scenario is required")

	res = call(t, s, "evaluate_scenario", map[string]any{"scenario": "tree: x\nbogus: 1\n"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "invalid scenario")
}

func TestScenarioGraph(t *testing.T) {
	s := newTestServer()

	res := call(t, s, "scenario_graph", map[string]any{"scenario": scenarioYAML})
	require.False(t, res.IsError)
	assert.True(t, strings.HasPrefix(text(t, res), "graph TD"))

	res = call(t, s, "scenario_graph", map[string]any{})
	assert.True(t, res.IsError)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8081", baseURL(":8081"))
	assert.Equal(t, "http://127.0.0.1:9000", baseURL("127.0.0.1:9000"))
}

func TestServeSSE_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, newTestServer().ServeSSE(ctx, "127.0.0.1:0"))
}
