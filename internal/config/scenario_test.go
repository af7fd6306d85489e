package config_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/epochlik/internal/config"
	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/aretw0/epochlik/pkg/substmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
name: four-taxa
tree: "((A:0.5,B:0.5):1.0,(C:1.0,D:1.0):0.5);"
clock_rate: 2
scaling: always
epochs:
  boundaries: [1.0]
  processes:
    - model: hky
      kappa: 2
      frequencies: [0.1, 0.2, 0.3, 0.4]
    - model: general
      matrix: [0, 1, 1, 1, 1, 0, 1, 1, 1, 1, 0, 1, 1, 1, 1, 0]
alignment:
  sequences:
    D: TCGAACGT
    C: AGGTACCT
    B: ACGTTCGT
    A: ACGTACGT
site_model:
  categories: 4
  shape: 0.5
  proportion_invariant: 0.1
`

func TestParse(t *testing.T) {
	s, err := config.Parse([]byte(scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "four-taxa", s.Name)
	assert.Equal(t, 2.0, s.ClockRate)
	assert.Equal(t, "cpu", s.Resource)
	assert.Equal(t, "nucleotide", s.Alignment.Alphabet)
	assert.Equal(t, []float64{1.0}, s.Epochs.Boundaries)
	assert.Equal(t, 2.0, s.Epochs.Processes[0].Kappa)
	assert.Equal(t, 0.1, s.SiteModel.ProportionInvariant)
}

func TestParse_Defaults(t *testing.T) {
	s, err := config.Parse([]byte(`
tree: "(A:1,B:1);"
epochs:
  processes: [{model: hky}]
alignment:
  sequences: {A: AC, B: AG}
`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.ClockRate)
	assert.Equal(t, 1, s.SiteModel.Categories)
	assert.True(t, math.IsInf(s.SiteModel.Shape, 1))
	assert.Equal(t, 1.0, s.Epochs.Processes[0].Kappa)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown key":      "tree: x\nbogus: 1\n",
		"missing tree":     "alignment: {sequences: {A: A}}\nepochs: {processes: [{model: jc}]}\n",
		"process count":    "tree: x\nalignment: {sequences: {A: A}}\nepochs: {boundaries: [1], processes: [{model: jc}]}\n",
		"unknown model":    "tree: x\nalignment: {sequences: {A: A}}\nepochs: {processes: [{model: wag}]}\n",
		"missing shape":    "tree: x\nalignment: {sequences: {A: A}}\nepochs: {processes: [{model: jc}]}\nsite_model: {categories: 4}\n",
		"negative threads": "tree: x\nalignment: {sequences: {A: A}}\nepochs: {processes: [{model: jc}]}\nthreads: -1\n",
		"not yaml":         "tree: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.Parse([]byte(doc))
			assert.ErrorIs(t, err, config.ErrInvalidScenario)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML), 0o644))

	s, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "four-taxa", s.Name)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	s, err := config.Parse([]byte(scenarioYAML))
	require.NoError(t, err)

	c, err := s.Build()
	require.NoError(t, err)

	assert.Equal(t, 4, c.Tree.TipCount())
	assert.Equal(t, []string{"A", "B", "C", "D"}, c.Patterns.Taxa())
	assert.Equal(t, []int{3, 1, 2, 0, 0, 1, 2, 3}, c.Patterns.States(3))
	assert.Equal(t, domain.SchemeAlways, c.Scheme)
	assert.Equal(t, 2.0, c.Clock.Rate(0))
	assert.Len(t, c.SiteModel.CategoryRates(), 4)

	require.Len(t, c.Processes, 2)
	assert.IsType(t, &substmodel.Reversible{}, c.Processes[0])
	_, ok := c.Processes[1].EigenDecomposition()
	assert.False(t, ok)
}

func TestBuild_TaxaMustMatchTree(t *testing.T) {
	s, err := config.Parse([]byte(`
tree: "(A:1,B:1);"
epochs:
  processes: [{model: jc}]
alignment:
  sequences: {A: AC, C: AG}
`))
	require.NoError(t, err)
	_, err = s.Build()
	assert.ErrorIs(t, err, config.ErrInvalidScenario)
}
