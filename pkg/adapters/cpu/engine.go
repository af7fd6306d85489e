package cpu

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/aretw0/epochlik/pkg/ports"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Name identifies this engine in capabilities and the registry.
const Name = "cpu"

// minParallelPatterns is the pattern count below which kernels stay on the
// calling goroutine.
const minParallelPatterns = 256

var errAutoScaling = errors.New("automatic scaling is not supported")

// Engine is an in-process likelihood engine using double precision arithmetic.
// Kernels split the patterns across goroutines when more than one thread is allowed.
// An Engine is not safe for concurrent use.
type Engine struct {
	states     int
	patterns   int
	categories int
	threads    int

	tipStates [][]int
	partials  [][]float64 // [category][pattern][state]
	eigen     []*eigenBuffer
	matrices  [][]float64 // [category][from][to]
	scales    [][]float64 // log factor per pattern

	patternWeights  []float64
	categoryRates   []float64
	categoryWeights []float64
	frequencies     []float64
	siteLogL        []float64

	scaled *mat.Dense
	expLam []float64
}

type eigenBuffer struct {
	vectors *mat.Dense
	inverse *mat.Dense
	values  []float64
}

// New allocates an engine for cfg.
func New(cfg domain.EngineConfig) (*Engine, error) {
	if cfg.StateCount < 1 || cfg.PatternCount < 1 || cfg.CategoryCount < 1 {
		return nil, fmt.Errorf("invalid engine layout: %d states, %d patterns, %d categories",
			cfg.StateCount, cfg.PatternCount, cfg.CategoryCount)
	}
	if cfg.PartialBufferCount < cfg.TipCount {
		return nil, fmt.Errorf("invalid engine layout: %d partial buffers for %d tips",
			cfg.PartialBufferCount, cfg.TipCount)
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}

	e := &Engine{
		states:          cfg.StateCount,
		patterns:        cfg.PatternCount,
		categories:      cfg.CategoryCount,
		threads:         threads,
		tipStates:       make([][]int, cfg.TipCount),
		partials:        make([][]float64, cfg.PartialBufferCount),
		eigen:           make([]*eigenBuffer, cfg.EigenBufferCount),
		matrices:        make([][]float64, cfg.MatrixBufferCount),
		scales:          make([][]float64, cfg.ScaleBufferCount),
		patternWeights:  make([]float64, cfg.PatternCount),
		categoryRates:   make([]float64, cfg.CategoryCount),
		categoryWeights: make([]float64, cfg.CategoryCount),
		frequencies:     make([]float64, cfg.StateCount),
		siteLogL:        make([]float64, cfg.PatternCount),
		scaled:          mat.NewDense(cfg.StateCount, cfg.StateCount, nil),
		expLam:          make([]float64, cfg.StateCount),
	}
	for i := range e.patternWeights {
		e.patternWeights[i] = 1
	}
	for i := range e.categoryRates {
		e.categoryRates[i] = 1
		e.categoryWeights[i] = 1 / float64(cfg.CategoryCount)
	}
	for i := range e.frequencies {
		e.frequencies[i] = 1 / float64(cfg.StateCount)
	}
	matrixSize := cfg.CategoryCount * cfg.StateCount * cfg.StateCount
	for i := range e.matrices {
		e.matrices[i] = make([]float64, matrixSize)
	}
	for i := range e.scales {
		e.scales[i] = make([]float64, cfg.PatternCount)
	}
	return e, nil
}

// Factory adapts New to ports.EngineFactory.
func Factory(cfg domain.EngineConfig) (ports.LikelihoodEngine, error) {
	return New(cfg)
}

func (e *Engine) Capabilities() domain.Capabilities {
	return domain.Capabilities{Name: Name, Threads: e.threads}
}

func (e *Engine) partialSize() int {
	return e.categories * e.patterns * e.states
}

func checkIndex(kind string, i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("%w: %s %d outside [0, %d)", domain.ErrBufferIndex, kind, i, n)
	}
	return nil
}

func checkLen(kind string, got, want int) error {
	if got != want {
		return fmt.Errorf("%s: expected %d values, got %d", kind, want, got)
	}
	return nil
}

func (e *Engine) SetTipStates(tip int, states []int) error {
	if err := checkIndex("tip", tip, len(e.tipStates)); err != nil {
		return err
	}
	if err := checkLen("tip states", len(states), e.patterns); err != nil {
		return err
	}
	e.tipStates[tip] = append([]int(nil), states...)
	e.partials[tip] = nil
	return nil
}

// SetTipPartials stores one state vector per pattern; it is shared by every category.
func (e *Engine) SetTipPartials(tip int, partials []float64) error {
	if err := checkIndex("tip", tip, len(e.tipStates)); err != nil {
		return err
	}
	block := e.patterns * e.states
	if err := checkLen("tip partials", len(partials), block); err != nil {
		return err
	}
	buf := make([]float64, e.partialSize())
	for c := 0; c < e.categories; c++ {
		copy(buf[c*block:(c+1)*block], partials)
	}
	e.partials[tip] = buf
	e.tipStates[tip] = nil
	return nil
}

func (e *Engine) SetPatternWeights(weights []float64) error {
	if err := checkLen("pattern weights", len(weights), e.patterns); err != nil {
		return err
	}
	copy(e.patternWeights, weights)
	return nil
}

func (e *Engine) SetCategoryRates(rates []float64) error {
	if err := checkLen("category rates", len(rates), e.categories); err != nil {
		return err
	}
	copy(e.categoryRates, rates)
	return nil
}

func (e *Engine) SetCategoryWeights(weights []float64) error {
	if err := checkLen("category weights", len(weights), e.categories); err != nil {
		return err
	}
	copy(e.categoryWeights, weights)
	return nil
}

func (e *Engine) SetStateFrequencies(frequencies []float64) error {
	if err := checkLen("state frequencies", len(frequencies), e.states); err != nil {
		return err
	}
	copy(e.frequencies, frequencies)
	return nil
}

func (e *Engine) SetEigenDecomposition(buffer int, ed domain.EigenDecomposition) error {
	if err := checkIndex("eigen buffer", buffer, len(e.eigen)); err != nil {
		return err
	}
	n := e.states
	if ed.StateCount() != n || len(ed.Vectors) != n*n || len(ed.InverseVectors) != n*n {
		return fmt.Errorf("%w: eigen decomposition for %d states", domain.ErrStateCountMismatch, ed.StateCount())
	}
	e.eigen[buffer] = &eigenBuffer{
		vectors: mat.NewDense(n, n, append([]float64(nil), ed.Vectors...)),
		inverse: mat.NewDense(n, n, append([]float64(nil), ed.InverseVectors...)),
		values:  append([]float64(nil), ed.Values...),
	}
	return nil
}

// UpdateTransitionMatrices computes P(t) = V·exp(Λ·r·t)·V⁻¹ for every target and
// category. Small negative entries left by rounding are clamped to zero.
func (e *Engine) UpdateTransitionMatrices(eigenBuffer int, targets []int, lengths []float64) error {
	if err := checkIndex("eigen buffer", eigenBuffer, len(e.eigen)); err != nil {
		return err
	}
	eb := e.eigen[eigenBuffer]
	if eb == nil {
		return fmt.Errorf("eigen buffer %d has not been set", eigenBuffer)
	}
	if err := checkLen("branch lengths", len(lengths), len(targets)); err != nil {
		return err
	}
	nn := e.states * e.states
	for i, target := range targets {
		if err := checkIndex("matrix buffer", target, len(e.matrices)); err != nil {
			return err
		}
		m := e.matrices[target]
		for c, rate := range e.categoryRates {
			e.exponentiate(eb, lengths[i]*rate, m[c*nn:(c+1)*nn])
		}
	}
	return nil
}

func (e *Engine) exponentiate(eb *eigenBuffer, t float64, out []float64) {
	n := e.states
	for k, v := range eb.values {
		e.expLam[k] = math.Exp(v * t)
	}
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			e.scaled.Set(i, k, eb.vectors.At(i, k)*e.expLam[k])
		}
	}
	dst := mat.NewDense(n, n, out)
	dst.Mul(e.scaled, eb.inverse)
	for i, v := range out {
		if v < 0 {
			out[i] = 0
		}
	}
}

func (e *Engine) SetTransitionMatrix(buffer int, matrix []float64) error {
	if err := checkIndex("matrix buffer", buffer, len(e.matrices)); err != nil {
		return err
	}
	if err := checkLen("transition matrix", len(matrix), len(e.matrices[buffer])); err != nil {
		return err
	}
	copy(e.matrices[buffer], matrix)
	return nil
}

func (e *Engine) TransitionMatrix(buffer int, out []float64) error {
	if err := checkIndex("matrix buffer", buffer, len(e.matrices)); err != nil {
		return err
	}
	if err := checkLen("transition matrix", len(out), len(e.matrices[buffer])); err != nil {
		return err
	}
	copy(out, e.matrices[buffer])
	return nil
}

// UpdatePartials runs the operations in order; an operation may read the output
// of an earlier one in the same batch.
func (e *Engine) UpdatePartials(ops []domain.Operation) error {
	for _, op := range ops {
		if err := e.updatePartials(op); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) ResetScaleFactors(buffer int) error {
	if err := checkIndex("scale buffer", buffer, len(e.scales)); err != nil {
		return err
	}
	clear(e.scales[buffer])
	return nil
}

func (e *Engine) AccumulateScaleFactors(buffers []int, target int) error {
	if target == domain.None {
		return errAutoScaling
	}
	if err := checkIndex("scale buffer", target, len(e.scales)); err != nil {
		return err
	}
	dst := e.scales[target]
	for _, b := range buffers {
		if err := checkIndex("scale buffer", b, len(e.scales)); err != nil {
			return err
		}
		for p, v := range e.scales[b] {
			dst[p] += v
		}
	}
	return nil
}

func (e *Engine) CalculateRootLogLikelihood(rootBuffer, scaleBuffer int) (float64, error) {
	if err := checkIndex("partial buffer", rootBuffer, len(e.partials)); err != nil {
		return 0, err
	}
	root := e.partials[rootBuffer]
	if root == nil {
		return 0, fmt.Errorf("partial buffer %d has not been computed", rootBuffer)
	}
	var scale []float64
	if scaleBuffer != domain.None {
		if err := checkIndex("scale buffer", scaleBuffer, len(e.scales)); err != nil {
			return 0, err
		}
		scale = e.scales[scaleBuffer]
	}

	n := e.states
	e.forPatterns(func(lo, hi int) {
		for p := lo; p < hi; p++ {
			sum := 0.0
			for c, w := range e.categoryWeights {
				v := root[(c*e.patterns+p)*n:]
				site := 0.0
				for i, f := range e.frequencies {
					site += f * v[i]
				}
				sum += w * site
			}
			l := math.Log(sum)
			if scale != nil {
				l += scale[p]
			}
			e.siteLogL[p] = l
		}
	})

	logL := 0.0
	for p, l := range e.siteLogL {
		logL += l * e.patternWeights[p]
	}
	return logL, nil
}

func (e *Engine) SiteLogLikelihoods(out []float64) error {
	if err := checkLen("site log likelihoods", len(out), e.patterns); err != nil {
		return err
	}
	copy(out, e.siteLogL)
	return nil
}

func (e *Engine) Close() error {
	e.partials = nil
	e.matrices = nil
	e.scales = nil
	return nil
}

// forPatterns runs fn over contiguous pattern ranges, in parallel when the engine
// has more than one thread and enough patterns to split.
func (e *Engine) forPatterns(fn func(lo, hi int)) {
	if e.threads <= 1 || e.patterns < minParallelPatterns {
		fn(0, e.patterns)
		return
	}
	chunk := (e.patterns + e.threads - 1) / e.threads
	var g errgroup.Group
	g.SetLimit(e.threads)
	for lo := 0; lo < e.patterns; lo += chunk {
		hi := min(lo+chunk, e.patterns)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}
