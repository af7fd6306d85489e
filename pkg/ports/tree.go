package ports

// Tree is the rooted binary time tree the likelihood walks.
// Tips occupy indices [0, TipCount); internal nodes occupy [TipCount, NodeCount).
// The tree owns dirty bookkeeping: the likelihood only reads it.
type Tree interface {
	NodeCount() int
	TipCount() int
	Root() int

	// Parent returns the parent index, or -1 for the root.
	Parent(node int) int

	// Children returns both child indices of an internal node.
	Children(node int) (left, right int)

	// Height returns the age of a node, measured backwards from the present.
	Height(node int) float64

	// IsDirty reports whether the node (or the branch above it) changed since the
	// tree last accepted its state.
	IsDirty(node int) bool
}

// BranchRateModel supplies the clock rate of the branch above a node.
type BranchRateModel interface {
	Rate(node int) float64
}
