package substmodel

import (
	"fmt"
	"math"

	"github.com/aretw0/epochlik/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

// General is a process with an arbitrary rate matrix, possibly irreversible.
// It never offers an eigen decomposition: its matrices are computed with a
// matrix exponential, and epochs owned by it are always composed on the host.
type General struct {
	n      int
	q      *mat.Dense
	freqs  []float64
	scaled *mat.Dense
	result *mat.Dense
}

// NewGeneral builds a process from a row-major n×n rate matrix. Diagonal entries
// are ignored and recomputed so that rows sum to zero. freqs are the root
// frequencies the process offers when it owns the root epoch.
func NewGeneral(rates, freqs []float64) (*General, error) {
	n := len(freqs)
	if n < 2 {
		return nil, fmt.Errorf("%w: %d states", ErrInvalidFrequencies, n)
	}
	if err := validateFrequencies(freqs); err != nil {
		return nil, err
	}
	if len(rates) != n*n {
		return nil, fmt.Errorf("%w: expected %d entries, got %d", ErrInvalidRates, n*n, len(rates))
	}
	q := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		row := 0.0
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			v := rates[i*n+j]
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: rate %g at (%d,%d)", ErrInvalidRates, v, i, j)
			}
			q.Set(i, j, v)
			row += v
		}
		q.Set(i, i, -row)
	}
	return &General{
		n:      n,
		q:      q,
		freqs:  append([]float64(nil), freqs...),
		scaled: mat.NewDense(n, n, nil),
		result: mat.NewDense(n, n, nil),
	}, nil
}

func (g *General) StateCount() int { return g.n }

func (g *General) Frequencies() []float64 { return g.freqs }

func (g *General) EigenDecomposition() (domain.EigenDecomposition, bool) {
	return domain.EigenDecomposition{}, false
}

// TransitionProbabilities writes exp(Q·rate·(olderAge-youngerAge)) into out.
func (g *General) TransitionProbabilities(olderAge, youngerAge, rate float64, out []float64) {
	g.scaled.Scale((olderAge-youngerAge)*rate, g.q)
	g.result.Exp(g.scaled)
	for i := 0; i < g.n; i++ {
		for j := 0; j < g.n; j++ {
			out[i*g.n+j] = math.Max(0, g.result.At(i, j))
		}
	}
}
