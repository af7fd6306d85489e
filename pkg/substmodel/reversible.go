// Package substmodel provides continuous-time Markov substitution processes that
// can own an epoch of the likelihood.
package substmodel

import (
	"errors"
	"fmt"
	"math"

	"github.com/aretw0/epochlik/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidFrequencies = errors.New("state frequencies must be positive and sum to 1")
	ErrInvalidRates       = errors.New("invalid substitution rates")
)

// frequencyTolerance bounds how far frequencies may sum from 1.
const frequencyTolerance = 1e-6

// Reversible is a time-reversible process defined by symmetric exchangeabilities
// and stationary frequencies, normalised to one expected substitution per unit time.
// Its spectrum is real, so it always offers an eigen decomposition.
type Reversible struct {
	n      int
	rates  []float64 // Upper triangle of the exchangeability matrix, row by row
	freqs  []float64
	eigen  domain.EigenDecomposition
	vec    *mat.Dense
	inv    *mat.Dense
	scaled *mat.Dense
	result *mat.Dense
}

// NewReversible builds a process over len(freqs) states. exchangeabilities holds
// the n(n-1)/2 upper triangle entries in row order (for nucleotides: AC AG AT CG CT GT).
func NewReversible(exchangeabilities, freqs []float64) (*Reversible, error) {
	n := len(freqs)
	if n < 2 {
		return nil, fmt.Errorf("%w: %d states", ErrInvalidFrequencies, n)
	}
	r := &Reversible{
		n:      n,
		scaled: mat.NewDense(n, n, nil),
		result: mat.NewDense(n, n, nil),
	}
	if err := r.Set(exchangeabilities, freqs); err != nil {
		return nil, err
	}
	return r, nil
}

// NewJC returns the Jukes-Cantor process over n states.
func NewJC(n int) *Reversible {
	freqs := make([]float64, n)
	for i := range freqs {
		freqs[i] = 1 / float64(n)
	}
	r, _ := NewF81(freqs)
	return r
}

// NewF81 returns the equal-input process with the given frequencies.
func NewF81(freqs []float64) (*Reversible, error) {
	n := len(freqs)
	rates := make([]float64, n*(n-1)/2)
	for i := range rates {
		rates[i] = 1
	}
	return NewReversible(rates, freqs)
}

// NewHKY returns the nucleotide process with transition/transversion ratio kappa.
func NewHKY(kappa float64, freqs []float64) (*Reversible, error) {
	if len(freqs) != 4 {
		return nil, fmt.Errorf("%w: HKY needs 4 frequencies, got %d", ErrInvalidFrequencies, len(freqs))
	}
	return NewReversible([]float64{1, kappa, 1, 1, kappa, 1}, freqs)
}

// NewGTR returns the general time-reversible nucleotide process.
func NewGTR(rates [6]float64, freqs []float64) (*Reversible, error) {
	if len(freqs) != 4 {
		return nil, fmt.Errorf("%w: GTR needs 4 frequencies, got %d", ErrInvalidFrequencies, len(freqs))
	}
	return NewReversible(rates[:], freqs)
}

// Set replaces the parameters and refreshes the decomposition. On error the
// process keeps its previous parameters.
func (r *Reversible) Set(exchangeabilities, freqs []float64) error {
	n := r.n
	if len(freqs) != n {
		return fmt.Errorf("%w: expected %d frequencies, got %d", ErrInvalidFrequencies, n, len(freqs))
	}
	if err := validateFrequencies(freqs); err != nil {
		return err
	}
	if len(exchangeabilities) != n*(n-1)/2 {
		return fmt.Errorf("%w: expected %d exchangeabilities, got %d", ErrInvalidRates, n*(n-1)/2, len(exchangeabilities))
	}
	for _, v := range exchangeabilities {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: exchangeability %g", ErrInvalidRates, v)
		}
	}

	q := rateMatrix(exchangeabilities, freqs)
	// S = D^½ Q D^-½ is symmetric and shares the eigenvalues of Q.
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, q.At(i, j)*math.Sqrt(freqs[i]/freqs[j]))
		}
	}
	var es mat.EigenSym
	if ok := es.Factorize(s, true); !ok {
		return fmt.Errorf("%w: eigen decomposition failed", ErrInvalidRates)
	}
	var u mat.Dense
	es.VectorsTo(&u)

	ed := domain.EigenDecomposition{
		Vectors:        make([]float64, n*n),
		InverseVectors: make([]float64, n*n),
		Values:         es.Values(nil),
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			ed.Vectors[i*n+j] = u.At(i, j) / math.Sqrt(freqs[i])
			ed.InverseVectors[i*n+j] = u.At(j, i) * math.Sqrt(freqs[j])
		}
	}

	r.rates = append(r.rates[:0], exchangeabilities...)
	r.freqs = append(r.freqs[:0], freqs...)
	r.eigen = ed
	r.vec = mat.NewDense(n, n, ed.Vectors)
	r.inv = mat.NewDense(n, n, ed.InverseVectors)
	return nil
}

// rateMatrix builds Q with q_ij = r_ij π_j, scaled so that -Σ π_i q_ii = 1.
func rateMatrix(exchangeabilities, freqs []float64) *mat.Dense {
	n := len(freqs)
	q := mat.NewDense(n, n, nil)
	k := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			q.Set(i, j, exchangeabilities[k]*freqs[j])
			q.Set(j, i, exchangeabilities[k]*freqs[i])
			k++
		}
	}
	total := 0.0
	for i := 0; i < n; i++ {
		row := 0.0
		for j := 0; j < n; j++ {
			if i != j {
				row += q.At(i, j)
			}
		}
		q.Set(i, i, -row)
		total += freqs[i] * row
	}
	if total > 0 {
		q.Scale(1/total, q)
	}
	return q
}

func validateFrequencies(freqs []float64) error {
	sum := 0.0
	for _, f := range freqs {
		if f <= 0 || math.IsNaN(f) {
			return fmt.Errorf("%w: frequency %g", ErrInvalidFrequencies, f)
		}
		sum += f
	}
	if math.Abs(sum-1) > frequencyTolerance {
		return fmt.Errorf("%w: sum is %g", ErrInvalidFrequencies, sum)
	}
	return nil
}

func (r *Reversible) StateCount() int { return r.n }

func (r *Reversible) Frequencies() []float64 { return r.freqs }

// Exchangeabilities returns the upper triangle of the exchangeability matrix.
func (r *Reversible) Exchangeabilities() []float64 { return r.rates }

func (r *Reversible) EigenDecomposition() (domain.EigenDecomposition, bool) {
	return r.eigen, true
}

// TransitionProbabilities writes V·exp(Λ·rate·(olderAge-youngerAge))·V⁻¹ into out.
func (r *Reversible) TransitionProbabilities(olderAge, youngerAge, rate float64, out []float64) {
	t := (olderAge - youngerAge) * rate
	n := r.n
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			r.scaled.Set(i, k, r.vec.At(i, k)*math.Exp(r.eigen.Values[k]*t))
		}
	}
	r.result.Mul(r.scaled, r.inv)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i*n+j] = math.Max(0, r.result.At(i, j))
		}
	}
}
