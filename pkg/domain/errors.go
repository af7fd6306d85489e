package domain

import "errors"

// ErrNegativeBranchLength is returned when a branch evaluates to a negative length.
// The tree is malformed and the evaluation cannot proceed.
var ErrNegativeBranchLength = errors.New("negative branch length")

// ErrEpochModelMismatch is returned when the number of substitution processes is not
// one more than the number of epoch boundaries.
var ErrEpochModelMismatch = errors.New("epoch boundaries and substitution processes do not match")

// ErrUnsortedBoundaries is returned when epoch boundaries are not strictly increasing.
var ErrUnsortedBoundaries = errors.New("epoch boundaries must be strictly increasing")

// ErrStateCountMismatch is returned when collaborators disagree on the alphabet size.
var ErrStateCountMismatch = errors.New("state count mismatch")

// ErrTipCountMismatch is returned when the tree and the data disagree on the number of tips.
var ErrTipCountMismatch = errors.New("tip count mismatch")

// ErrEngineUnavailable is returned by an engine factory when the requested resource
// cannot be loaded. Callers fall back to the in-process engine.
var ErrEngineUnavailable = errors.New("likelihood engine unavailable")

// ErrBufferIndex is returned by engines when an instruction references a buffer
// outside the allocated range.
var ErrBufferIndex = errors.New("buffer index out of range")

// ErrCheckpointNotFound is returned when a checkpoint ID cannot be found in the store.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// ErrCheckpointShape is returned when a checkpoint does not fit the likelihood it is resumed into.
var ErrCheckpointShape = errors.New("checkpoint does not match likelihood layout")

// ErrCategoryCountChanged is returned when the site model changes its number of rate categories.
var ErrCategoryCountChanged = errors.New("rate category count changed")
