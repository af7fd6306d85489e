package ports

import "github.com/aretw0/epochlik/pkg/domain"

// LikelihoodEngine executes the arithmetic of the likelihood: matrix
// exponentiation, partial propagation and the root reduction. Every call may fail.
//
// Buffers are identified by physical indices allocated according to the
// domain.EngineConfig the engine was created with.
type LikelihoodEngine interface {
	Capabilities() domain.Capabilities

	SetTipStates(tip int, states []int) error
	SetTipPartials(tip int, partials []float64) error
	SetPatternWeights(weights []float64) error
	SetCategoryRates(rates []float64) error
	SetCategoryWeights(weights []float64) error
	SetStateFrequencies(frequencies []float64) error

	SetEigenDecomposition(buffer int, ed domain.EigenDecomposition) error

	// UpdateTransitionMatrices exponentiates one matrix per target buffer, one
	// block per rate category, using the eigen data in eigenBuffer.
	UpdateTransitionMatrices(eigenBuffer int, targets []int, lengths []float64) error

	// SetTransitionMatrix injects a precomputed matrix (one block per rate category).
	SetTransitionMatrix(buffer int, matrix []float64) error

	// TransitionMatrix copies a matrix buffer (all categories) into out.
	TransitionMatrix(buffer int, out []float64) error

	UpdatePartials(ops []domain.Operation) error

	ResetScaleFactors(buffer int) error
	AccumulateScaleFactors(buffers []int, target int) error

	// CalculateRootLogLikelihood reduces the root partials to the pattern-weighted
	// log-likelihood. scaleBuffer may be domain.None.
	CalculateRootLogLikelihood(rootBuffer, scaleBuffer int) (float64, error)

	// SiteLogLikelihoods copies the per-pattern log-likelihoods of the last reduction.
	SiteLogLikelihoods(out []float64) error

	Close() error
}

// EngineFactory loads an engine for the given layout.
// It returns domain.ErrEngineUnavailable when the resource cannot serve it.
type EngineFactory func(cfg domain.EngineConfig) (LikelihoodEngine, error)
