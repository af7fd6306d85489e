package domain

// EigenDecomposition holds the spectral form of a rate matrix Q = V·diag(λ)·V⁻¹.
// Matrices are stored row-major with StateCount×StateCount entries.
type EigenDecomposition struct {
	Vectors        []float64
	InverseVectors []float64
	Values         []float64
}

// StateCount returns the dimension of the decomposed matrix.
func (e EigenDecomposition) StateCount() int {
	return len(e.Values)
}
