package domain

// None marks an absent buffer in an Operation or a root reduction.
const None = -1

// Operation is one partial-combination instruction for the likelihood engine.
// The destination partials are the product over both children of the child
// partials propagated through the child's transition matrix.
type Operation struct {
	Destination int // Partial buffer written
	WriteScale  int // Scale buffer receiving fresh factors, or None
	ReadScale   int // Scale buffer whose factors are reapplied, or None
	Child1      int // Partial buffer of the first child
	Matrix1     int // Matrix buffer of the first child's branch
	Child2      int // Partial buffer of the second child
	Matrix2     int // Matrix buffer of the second child's branch
}
