package ports

import "github.com/aretw0/epochlik/pkg/domain"

// SubstitutionProcess is the Markov process owning one epoch.
type SubstitutionProcess interface {
	StateCount() int

	// Frequencies returns the equilibrium state frequencies.
	Frequencies() []float64

	// TransitionProbabilities writes the row-major StateCount×StateCount matrix of
	// moving from state i at olderAge to state j at youngerAge, with the elapsed
	// time scaled by rate.
	TransitionProbabilities(olderAge, youngerAge, rate float64, out []float64)

	// EigenDecomposition returns the spectral form used by the engine's batched
	// exponentiation path. The boolean is false when the process cannot be safely
	// exponentiated that way (complex spectrum, non-diagonalisable matrix); such
	// epochs are always composed directly.
	EigenDecomposition() (domain.EigenDecomposition, bool)
}

// SiteModel describes among-site rate variation.
type SiteModel interface {
	// CategoryRates returns the rate of every variable category.
	CategoryRates() []float64
	// CategoryWeights returns the probability of every variable category.
	// Weights sum to 1 - ProportionInvariant.
	CategoryWeights() []float64
	// ProportionInvariant returns the probability that a site never changes.
	ProportionInvariant() float64
}

// ConstantPattern names a pattern in which every tip shows the same single state.
type ConstantPattern struct {
	Pattern int
	State   int
}

// PatternSource is the compressed alignment the likelihood is computed for.
type PatternSource interface {
	StateCount() int
	PatternCount() int
	TaxonCount() int
	// Weights returns how many alignment columns each pattern stands for.
	Weights() []float64
	// States returns the observed state of a taxon per pattern. Values >= StateCount
	// are ambiguous.
	States(taxon int) []int
	// TipPartials returns per-pattern state vectors when the taxon carries
	// ambiguity or uncertainty, or nil when States is exact.
	TipPartials(taxon int) []float64
	// ConstantPatterns lists the invariant-site candidates.
	ConstantPatterns() []ConstantPattern
}
