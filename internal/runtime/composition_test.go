package runtime

import (
	"testing"

	"github.com/aretw0/epochlik/pkg/ports"
	"github.com/aretw0/epochlik/pkg/substmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func threeEpochSchedule(t *testing.T) *EpochSchedule {
	t.Helper()
	a, err := substmodel.NewHKY(4, []float64{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, err)
	b, err := substmodel.NewGTR([6]float64{1, 2, 0.5, 0.7, 3, 1}, []float64{0.3, 0.2, 0.2, 0.3})
	require.NoError(t, err)
	c, err := substmodel.NewGeneral([]float64{
		0, 1, 2, 1,
		0.5, 0, 1, 3,
		2, 1, 0, 1,
		1, 0.2, 0.4, 0,
	}, []float64{0.25, 0.25, 0.25, 0.25})
	require.NoError(t, err)

	s, err := NewEpochSchedule([]float64{1, 2}, []ports.SubstitutionProcess{a, b, c})
	require.NoError(t, err)
	return s
}

func product(n int, a, b []float64) []float64 {
	var m mat.Dense
	m.Mul(mat.NewDense(n, n, a), mat.NewDense(n, n, b))
	return append([]float64(nil), m.RawMatrix().Data...)
}

func TestComposer_ChainsOlderToNewer(t *testing.T) {
	s := threeEpochSchedule(t)
	c := newComposer(4, 1)

	got := make([]float64, 16)
	c.compose(s, 0, 2, 0.5, 2.5, 1.3, got)

	p2, p1, p0 := make([]float64, 16), make([]float64, 16), make([]float64, 16)
	s.Process(2).TransitionProbabilities(2.5, 2, 1.3, p2)
	s.Process(1).TransitionProbabilities(2, 1, 1.3, p1)
	s.Process(0).TransitionProbabilities(1, 0.5, 1.3, p0)
	want := product(4, product(4, p2, p1), p0)

	assert.InDeltaSlice(t, want, got, 1e-12)
}

func TestComposer_SplitBranchesAgree(t *testing.T) {
	s := threeEpochSchedule(t)
	c := newComposer(4, 1)

	whole := make([]float64, 16)
	c.compose(s, 0, 2, 0.5, 2.5, 1, whole)

	older := make([]float64, 16)
	younger := make([]float64, 16)
	c.compose(s, 1, 2, 1.5, 2.5, 1, older)
	c.compose(s, 0, 1, 0.5, 1.5, 1, younger)

	assert.InDeltaSlice(t, product(4, older, younger), whole, 1e-10)
}

func TestComposer_Associative(t *testing.T) {
	s := threeEpochSchedule(t)
	c := newComposer(4, 1)

	p2, p1, p0 := make([]float64, 16), make([]float64, 16), make([]float64, 16)
	s.Process(2).TransitionProbabilities(2.7, 2, 0.9, p2)
	s.Process(1).TransitionProbabilities(2, 1, 0.9, p1)
	s.Process(0).TransitionProbabilities(1, 0.2, 0.9, p0)

	left := product(4, product(4, p2, p1), p0)
	right := product(4, p2, product(4, p1, p0))
	assert.InDeltaSlice(t, left, right, 1e-12)

	got := make([]float64, 16)
	c.compose(s, 0, 2, 0.2, 2.7, 0.9, got)
	assert.InDeltaSlice(t, right, got, 1e-12)
}

func TestComposer_SingleEpochIsPlainProcess(t *testing.T) {
	s := threeEpochSchedule(t)
	c := newComposer(4, 1)

	got := make([]float64, 16)
	c.compose(s, 1, 1, 1.2, 1.9, 0.8, got)

	want := make([]float64, 16)
	s.Process(1).TransitionProbabilities(1.9, 1.2, 0.8, want)
	assert.Equal(t, want, got)
}

func TestComposer_Categories(t *testing.T) {
	s := threeEpochSchedule(t)
	c := newComposer(4, 1)

	rates := []float64{0.5, 2}
	m := c.composeCategories(s, 0, 1, 0.5, 1.5, 1.5, rates)
	require.Len(t, m, 32)

	for i, r := range rates {
		want := make([]float64, 16)
		c2 := newComposer(4, 1)
		c2.compose(s, 0, 1, 0.5, 1.5, r*1.5, want)
		assert.InDeltaSlice(t, want, m[i*16:(i+1)*16], 1e-15)
	}
}
