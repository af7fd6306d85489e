package cpu

import (
	"fmt"
	"math"

	"github.com/aretw0/epochlik/pkg/domain"
)

// operand is a child of a partial update: either compact tip states or partials.
type operand struct {
	states   []int
	partials []float64
}

func (e *Engine) operand(buffer int) (operand, error) {
	if err := checkIndex("partial buffer", buffer, len(e.partials)); err != nil {
		return operand{}, err
	}
	if buffer < len(e.tipStates) && e.tipStates[buffer] != nil {
		return operand{states: e.tipStates[buffer]}, nil
	}
	if e.partials[buffer] == nil {
		return operand{}, fmt.Errorf("partial buffer %d has not been computed", buffer)
	}
	return operand{partials: e.partials[buffer]}, nil
}

// dot returns the probability of the child's partials given one row of its matrix.
func (o operand) dot(row []float64, offset int) float64 {
	v := o.partials[offset : offset+len(row)]
	sum := 0.0
	for j, p := range row {
		sum += p * v[j]
	}
	return sum
}

func (e *Engine) updatePartials(op domain.Operation) error {
	if err := checkIndex("partial buffer", op.Destination, len(e.partials)); err != nil {
		return err
	}
	if op.Destination < len(e.tipStates) {
		return fmt.Errorf("%w: partial buffer %d belongs to a tip", domain.ErrBufferIndex, op.Destination)
	}
	c1, err := e.operand(op.Child1)
	if err != nil {
		return err
	}
	c2, err := e.operand(op.Child2)
	if err != nil {
		return err
	}
	if err := checkIndex("matrix buffer", op.Matrix1, len(e.matrices)); err != nil {
		return err
	}
	if err := checkIndex("matrix buffer", op.Matrix2, len(e.matrices)); err != nil {
		return err
	}
	var write, read []float64
	if op.WriteScale != domain.None {
		if err := checkIndex("scale buffer", op.WriteScale, len(e.scales)); err != nil {
			return err
		}
		write = e.scales[op.WriteScale]
	}
	if op.ReadScale != domain.None {
		if err := checkIndex("scale buffer", op.ReadScale, len(e.scales)); err != nil {
			return err
		}
		read = e.scales[op.ReadScale]
	}

	if e.partials[op.Destination] == nil {
		e.partials[op.Destination] = make([]float64, e.partialSize())
	}
	dest := e.partials[op.Destination]
	m1, m2 := e.matrices[op.Matrix1], e.matrices[op.Matrix2]

	e.forPatterns(func(lo, hi int) {
		e.propagate(dest, c1, c2, m1, m2, lo, hi)
		switch {
		case write != nil:
			e.rescale(dest, write, lo, hi)
		case read != nil:
			e.applyScale(dest, read, lo, hi)
		}
	})
	return nil
}

func (e *Engine) propagate(dest []float64, c1, c2 operand, m1, m2 []float64, lo, hi int) {
	n := e.states
	nn := n * n
	for c := 0; c < e.categories; c++ {
		p1 := m1[c*nn : (c+1)*nn]
		p2 := m2[c*nn : (c+1)*nn]
		for p := lo; p < hi; p++ {
			offset := (c*e.patterns + p) * n
			for i := 0; i < n; i++ {
				dest[offset+i] = childProbability(c1, p1[i*n:(i+1)*n], p, offset, n) *
					childProbability(c2, p2[i*n:(i+1)*n], p, offset, n)
			}
		}
	}
}

func childProbability(o operand, row []float64, pattern, offset, n int) float64 {
	if o.states == nil {
		return o.dot(row, offset)
	}
	s := o.states[pattern]
	if s >= 0 && s < n {
		return row[s]
	}
	// Gaps and ambiguity codes are compatible with every state.
	sum := 0.0
	for _, v := range row {
		sum += v
	}
	return sum
}

// rescale divides every pattern by its largest entry and records the log factor.
func (e *Engine) rescale(dest, scale []float64, lo, hi int) {
	n := e.states
	for p := lo; p < hi; p++ {
		largest := 0.0
		for c := 0; c < e.categories; c++ {
			offset := (c*e.patterns + p) * n
			for _, v := range dest[offset : offset+n] {
				largest = math.Max(largest, v)
			}
		}
		if largest == 0 || math.IsNaN(largest) || math.IsInf(largest, 0) {
			scale[p] = 0
			continue
		}
		for c := 0; c < e.categories; c++ {
			offset := (c*e.patterns + p) * n
			for i := offset; i < offset+n; i++ {
				dest[i] /= largest
			}
		}
		scale[p] = math.Log(largest)
	}
}

// applyScale reuses factors recorded by an earlier rescale.
func (e *Engine) applyScale(dest, scale []float64, lo, hi int) {
	n := e.states
	for p := lo; p < hi; p++ {
		if scale[p] == 0 {
			continue
		}
		f := math.Exp(-scale[p])
		for c := 0; c < e.categories; c++ {
			offset := (c*e.patterns + p) * n
			for i := offset; i < offset+n; i++ {
				dest[i] *= f
			}
		}
	}
}
