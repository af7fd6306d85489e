package runtime_test

import (
	"math"
	"testing"

	"github.com/aretw0/epochlik/internal/runtime"
	"github.com/aretw0/epochlik/pkg/adapters/cpu"
	"github.com/aretw0/epochlik/pkg/alignment"
	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/aretw0/epochlik/pkg/ports"
	"github.com/aretw0/epochlik/pkg/sitemodel"
	"github.com/aretw0/epochlik/pkg/substmodel"
	"github.com/aretw0/epochlik/pkg/tree"
	"github.com/stretchr/testify/require"
)

// fourTaxonNewick has internal heights 0.5 (n5, parent of A and B), 1.0 (n4,
// parent of C and D) and 1.5 (root n6). With a boundary at 1.0 the branch
// n5→root spans 0.5→1.5.
const fourTaxonNewick = "((A:0.5,B:0.5):1.0,(C:1.0,D:1.0):0.5);"

var fourTaxonSequences = []string{
	"ACGTACGTAAGTCCAT",
	"ACGTTCGTACGTCGAT",
	"AGGTACCTAGGTCCTT",
	"TCGAACGTAAGACCAT",
}

// recordingEngine counts engine calls and can force non-finite results.
type recordingEngine struct {
	ports.LikelihoodEngine

	resets         int
	roots          int
	eigenUploads   int
	matrixBatches  [][]int
	directMatrices []int
	partialBatches int
	operations     int
	forceNaN       bool
	// nanCalls makes the next nanCalls root evaluations return NaN.
	nanCalls int
}

func (r *recordingEngine) ResetScaleFactors(buffer int) error {
	r.resets++
	return r.LikelihoodEngine.ResetScaleFactors(buffer)
}

func (r *recordingEngine) SetEigenDecomposition(buffer int, ed domain.EigenDecomposition) error {
	r.eigenUploads++
	return r.LikelihoodEngine.SetEigenDecomposition(buffer, ed)
}

func (r *recordingEngine) UpdateTransitionMatrices(eigenBuffer int, targets []int, lengths []float64) error {
	r.matrixBatches = append(r.matrixBatches, append([]int(nil), targets...))
	return r.LikelihoodEngine.UpdateTransitionMatrices(eigenBuffer, targets, lengths)
}

func (r *recordingEngine) SetTransitionMatrix(buffer int, matrix []float64) error {
	r.directMatrices = append(r.directMatrices, buffer)
	return r.LikelihoodEngine.SetTransitionMatrix(buffer, matrix)
}

func (r *recordingEngine) UpdatePartials(ops []domain.Operation) error {
	r.partialBatches++
	r.operations += len(ops)
	return r.LikelihoodEngine.UpdatePartials(ops)
}

func (r *recordingEngine) CalculateRootLogLikelihood(root, scale int) (float64, error) {
	r.roots++
	if r.forceNaN {
		return math.NaN(), nil
	}
	if r.nanCalls > 0 {
		r.nanCalls--
		return math.NaN(), nil
	}
	return r.LikelihoodEngine.CalculateRootLogLikelihood(root, scale)
}

func (r *recordingEngine) clear() {
	forceNaN := r.forceNaN
	engine := r.LikelihoodEngine
	*r = recordingEngine{LikelihoodEngine: engine, forceNaN: forceNaN}
}

// fixture bundles a likelihood with the objects it reads.
type fixture struct {
	tree     *tree.Tree
	patterns *alignment.Patterns
	site     *sitemodel.Gamma
	procs    []ports.SubstitutionProcess
	bounds   []float64
	lik      *runtime.Likelihood
	engine   *recordingEngine
}

type fixtureConfig struct {
	newick    string
	sequences []string
	bounds    []float64
	procs     []ports.SubstitutionProcess
	site      *sitemodel.Gamma
	opts      []runtime.Option
}

func newFixture(t *testing.T, cfg fixtureConfig) *fixture {
	t.Helper()
	if cfg.newick == "" {
		cfg.newick = fourTaxonNewick
	}
	tr, err := tree.ParseNewick(cfg.newick)
	require.NoError(t, err)

	if cfg.sequences == nil {
		cfg.sequences = fourTaxonSequences
	}
	taxa := make([]string, tr.TipCount())
	for i := range taxa {
		taxa[i] = tr.Name(i)
	}
	patterns, err := alignment.Compress(alignment.Nucleotide(), taxa, cfg.sequences)
	require.NoError(t, err)

	if cfg.procs == nil {
		cfg.procs = twoEpochProcesses(t)
		if cfg.bounds == nil {
			cfg.bounds = []float64{1.0}
		}
	}
	if cfg.site == nil {
		cfg.site, err = sitemodel.Uniform(0)
		require.NoError(t, err)
	}

	schedule, err := runtime.NewEpochSchedule(cfg.bounds, cfg.procs)
	require.NoError(t, err)

	f := &fixture{tree: tr, patterns: patterns, site: cfg.site, procs: cfg.procs, bounds: cfg.bounds}
	factory := func(ec domain.EngineConfig) (ports.LikelihoodEngine, error) {
		e, err := cpu.New(ec)
		if err != nil {
			return nil, err
		}
		f.engine = &recordingEngine{LikelihoodEngine: e}
		return f.engine, nil
	}
	f.lik, err = runtime.NewLikelihood(tr, schedule, cfg.site, patterns, factory, cfg.opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.lik.Close() })
	return f
}

func hky(t *testing.T, kappa float64, freqs []float64) *substmodel.Reversible {
	t.Helper()
	p, err := substmodel.NewHKY(kappa, freqs)
	require.NoError(t, err)
	return p
}

func twoEpochProcesses(t *testing.T) []ports.SubstitutionProcess {
	return []ports.SubstitutionProcess{
		hky(t, 2.0, []float64{0.1, 0.2, 0.3, 0.4}),
		hky(t, 5.0, []float64{0.4, 0.3, 0.2, 0.1}),
	}
}

// composeNaive multiplies row-major n×n matrices with plain loops.
func composeNaive(n int, a, b []float64) []float64 {
	out := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			for j := 0; j < n; j++ {
				out[i*n+j] += a[i*n+k] * b[k*n+j]
			}
		}
	}
	return out
}

// branchMatrix builds the transition matrix of a branch segment by segment,
// from the parent's age down to the node's age.
func branchMatrix(bounds []float64, procs []ports.SubstitutionProcess, height, parentHeight, rate float64) []float64 {
	n := procs[0].StateCount()
	m := make([]float64, n*n)
	for i := 0; i < n; i++ {
		m[i*n+i] = 1
	}
	older := parentHeight
	for e := len(bounds); e >= 0; e-- {
		younger := 0.0
		if e > 0 {
			younger = bounds[e-1]
		}
		if younger >= older {
			continue
		}
		younger = math.Max(younger, height)
		if younger >= older {
			break
		}
		p := make([]float64, n*n)
		procs[e].TransitionProbabilities(older, younger, rate, p)
		m = composeNaive(n, m, p)
		older = younger
	}
	return m
}

// pruneLogLikelihood computes the likelihood by Felsenstein pruning over every
// pattern, without incremental state.
func pruneLogLikelihood(f *fixture, rootFreqs []float64) float64 {
	tr, pats := f.tree, f.patterns
	n := pats.StateCount()
	rates, weights := f.site.CategoryRates(), f.site.CategoryWeights()
	pInv := f.site.ProportionInvariant()

	if rootFreqs == nil {
		e := 0
		for _, b := range f.bounds {
			if b <= tr.Height(tr.Root()) {
				e++
			}
		}
		rootFreqs = f.procs[e].Frequencies()
	}
	constant := map[int]int{}
	for _, c := range pats.ConstantPatterns() {
		constant[c.Pattern] = c.State
	}

	var partial func(node, pattern int, rate float64) []float64
	partial = func(node, pattern int, rate float64) []float64 {
		out := make([]float64, n)
		if node < tr.TipCount() {
			s := pats.States(node)[pattern]
			for i := range out {
				if s >= n || s == i {
					out[i] = 1
				}
			}
			return out
		}
		for i := range out {
			out[i] = 1
		}
		l, r := tr.Children(node)
		for _, c := range []int{l, r} {
			cp := partial(c, pattern, rate)
			m := branchMatrix(f.bounds, f.procs, tr.Height(c), tr.Height(node), rate)
			for i := 0; i < n; i++ {
				s := 0.0
				for j := 0; j < n; j++ {
					s += m[i*n+j] * cp[j]
				}
				out[i] *= s
			}
		}
		return out
	}

	logL := 0.0
	for p, w := range pats.Weights() {
		site := 0.0
		for c, rate := range rates {
			root := partial(tr.Root(), p, rate)
			for i, pi := range rootFreqs {
				site += weights[c] * pi * root[i]
			}
		}
		if s, ok := constant[p]; ok {
			site += pInv * rootFreqs[s]
		}
		logL += w * math.Log(site)
	}
	return logL
}

// noEigen hides the eigen decomposition of a process, forcing the direct path.
type noEigen struct {
	ports.SubstitutionProcess
}

func (noEigen) EigenDecomposition() (domain.EigenDecomposition, bool) {
	return domain.EigenDecomposition{}, false
}
