package runtime

import (
	"github.com/aretw0/epochlik/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

// unset marks a branch cache entry that must be recomputed on the next traversal.
const unset = -1.0

// BranchEntry is the last committed state of the branch above a node.
type BranchEntry struct {
	Time       float64
	StartEpoch int // Epoch containing the node
	EndEpoch   int // Epoch containing the parent
}

// BranchCache memoises per-node branch times and epoch membership so that the
// traversal can tell whether a branch matrix is still valid.
type BranchCache struct {
	entries []BranchEntry
	stored  []BranchEntry
}

// NewBranchCache creates a cache with every entry unset.
func NewBranchCache(nodeCount int) *BranchCache {
	c := &BranchCache{
		entries: make([]BranchEntry, nodeCount),
		stored:  make([]BranchEntry, nodeCount),
	}
	c.InvalidateAll()
	copy(c.stored, c.entries)
	return c
}

// Entry returns the cached state of node i.
func (c *BranchCache) Entry(i int) BranchEntry {
	return c.entries[i]
}

// Invalidate forces the branch above node i to be recomputed.
func (c *BranchCache) Invalidate(i int) {
	c.entries[i].Time = unset
}

// InvalidateAll forces every branch to be recomputed.
func (c *BranchCache) InvalidateAll() {
	for i := range c.entries {
		c.entries[i] = BranchEntry{Time: unset}
	}
}

func (c *BranchCache) commit(i int, e BranchEntry) {
	c.entries[i] = e
}

// Save copies the entries into the shadow cache.
func (c *BranchCache) Save() {
	copy(c.stored, c.entries)
}

// Rollback makes the shadow cache current.
func (c *BranchCache) Rollback() {
	c.entries, c.stored = c.stored, c.entries
}

func (c *BranchCache) records() []domain.BranchRecord {
	out := make([]domain.BranchRecord, len(c.entries))
	for i, e := range c.entries {
		out[i] = domain.BranchRecord{Time: e.Time, StartEpoch: e.StartEpoch, EndEpoch: e.EndEpoch}
	}
	return out
}

// composer builds transition matrices for branches that bypass the engine's
// exponentiation, chaining epochs from the parent's age down to the node's age.
type composer struct {
	n        int
	sub      []float64
	subM     *mat.Dense
	acc      *mat.Dense
	product  *mat.Dense
	matrices []float64 // One n×n block per rate category
}

func newComposer(stateCount, categoryCount int) *composer {
	n := stateCount
	sub := make([]float64, n*n)
	return &composer{
		n:        n,
		sub:      sub,
		subM:     mat.NewDense(n, n, sub),
		acc:      mat.NewDense(n, n, nil),
		product:  mat.NewDense(n, n, nil),
		matrices: make([]float64, n*n*categoryCount),
	}
}

func (c *composer) resize(categoryCount int) {
	if need := c.n * c.n * categoryCount; len(c.matrices) != need {
		c.matrices = make([]float64, need)
	}
}

// compose writes the matrix of a branch from parentHeight (in endEpoch) to height
// (in startEpoch) into out. Each epoch contributes the part of the branch it
// contains; the accumulated product is older × newer, so rows index the state at
// the parent and columns the state at the node.
func (c *composer) compose(s *EpochSchedule, startEpoch, endEpoch int, height, parentHeight, rate float64, out []float64) {
	older := parentHeight
	for k := endEpoch; k > startEpoch; k-- {
		younger := s.YoungerBound(k)
		s.Process(k).TransitionProbabilities(older, younger, rate, c.sub)
		if k == endEpoch {
			c.acc.Copy(c.subM)
		} else {
			c.product.Mul(c.acc, c.subM)
			c.acc.Copy(c.product)
		}
		older = younger
	}

	s.Process(startEpoch).TransitionProbabilities(older, height, rate, c.sub)
	if startEpoch == endEpoch {
		copy(out, c.sub)
		return
	}
	c.product.Mul(c.acc, c.subM)
	raw := c.product.RawMatrix()
	for i := 0; i < c.n; i++ {
		copy(out[i*c.n:(i+1)*c.n], raw.Data[i*raw.Stride:i*raw.Stride+c.n])
	}
}

// composeCategories fills c.matrices with one composed block per rate category.
// The joint rate of a category (site rate × branch rate) is applied to every
// sub-interval separately.
func (c *composer) composeCategories(s *EpochSchedule, startEpoch, endEpoch int, height, parentHeight, branchRate float64, categoryRates []float64) []float64 {
	c.resize(len(categoryRates))
	block := c.n * c.n
	for i, r := range categoryRates {
		c.compose(s, startEpoch, endEpoch, height, parentHeight, r*branchRate, c.matrices[i*block:(i+1)*block])
	}
	return c.matrices
}
