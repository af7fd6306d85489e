package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testScenario = `
name: four-taxa
tree: "((A:0.5,B:0.5):1.0,(C:1.0,D:1.0):0.5);"
epochs:
  boundaries: [1.0]
  processes:
    - {model: hky, kappa: 2, frequencies: [0.1, 0.2, 0.3, 0.4]}
    - {model: jc}
alignment:
  sequences:
    A: ACGTACGTAAGTCCAT
    B: ACGTTCGTACGTCGAT
    C: AGGTACCTAGGTCCTT
    D: TCGAACGTAAGACCAT
`

func writeScenario(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScenario), 0o644))
	return path
}

// resetFlags restores every flag to its default so commands can run repeatedly
// in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "epochlik version "))
}

func TestEval(t *testing.T) {
	path := writeScenario(t)

	out, err := run(t, "eval", "--plain", path)
	require.NoError(t, err)
	assert.Contains(t, out, "four-taxa")
	assert.Contains(t, out, "cpu")
	assert.Contains(t, out, "dynamic")
	assert.Contains(t, out, "epoch boundaries   1\n")
	assert.NotContains(t, out, "resumed from")

	out, err = run(t, "eval", "--plain", "--scaling", "always", "--threads", "1", path)
	require.NoError(t, err)
	assert.Contains(t, out, "always")
	assert.Contains(t, out, "(1 threads)")
}

func TestEval_Errors(t *testing.T) {
	path := writeScenario(t)

	_, err := run(t, "eval", "--plain", "--scaling", "sometimes", path)
	assert.Error(t, err)

	_, err = run(t, "eval", "--plain", "--log-level", "loud", path)
	assert.Error(t, err)

	_, err = run(t, "eval", "--plain", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEval_Checkpoint(t *testing.T) {
	mr := miniredis.RunT(t)
	path := writeScenario(t)
	args := []string{"eval", "--plain", "--checkpoint-redis", mr.Addr(), "--run-id", "run-7", path}

	first, err := run(t, args...)
	require.NoError(t, err)
	assert.NotContains(t, first, "resumed from")
	assert.True(t, mr.Exists("epochlik:checkpoint:run-7"))

	second, err := run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, second, "resumed from       run-7")

	logL := func(out string) string {
		for _, line := range strings.Split(out, "\n") {
			if strings.HasPrefix(line, "log-likelihood") {
				return line
			}
		}
		return ""
	}
	assert.Equal(t, logL(first), logL(second))
}

func TestChains(t *testing.T) {
	path := writeScenario(t)

	out, err := run(t, "chains", "-n", "3", "--parallel", "2", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)

	value := strings.Split(lines[0], "\t")[1]
	for i, line := range lines {
		parts := strings.Split(line, "\t")
		assert.Equal(t, "chain-"+string(rune('0'+i)), parts[0])
		assert.Equal(t, value, parts[1])
	}

	_, err = run(t, "chains", "-n", "0", path)
	assert.Error(t, err)
}

func TestGraph(t *testing.T) {
	out, err := run(t, "graph", writeScenario(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD"))
	assert.Contains(t, out, "A <br/>")
}

func TestServe(t *testing.T) {
	_, err := run(t, "serve", "--scaling", "sometimes")
	assert.Error(t, err)

	resetFlags(rootCmd)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rootCmd.SetArgs([]string{"serve", "--addr", "127.0.0.1:0"})
	assert.NoError(t, rootCmd.ExecuteContext(ctx))
}

func TestEval_CheckpointDir(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t)
	args := []string{"eval", "--plain", "--checkpoint-dir", dir, "--run-id", "local", path}

	_, err := run(t, args...)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "local.cbor"))

	second, err := run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, second, "resumed from       local")
}
