package runtime

import (
	"fmt"

	"github.com/aretw0/epochlik/pkg/domain"
)

// traverse walks the subtree below node in post-order, refreshing stale branch
// matrices and queueing partial updates in the epoch of each node. It returns how
// stale the subtree is; a non-clean result makes every ancestor recompute.
//
// With flip unset, recomputed partials and matrices overwrite their current
// buffers instead of alternating, which is what a retry after an underflow needs.
func (l *Likelihood) traverse(node int, flip bool) (domain.Dirt, error) {
	update := l.dirt
	if l.tree.IsDirty(node) {
		update = update.Max(domain.Dirty)
	}
	height := l.tree.Height(node)
	epoch := l.schedule.EpochOf(height)

	var left, right int
	children := domain.Clean
	if node >= l.tipCount {
		left, right = l.tree.Children(node)
		u1, err := l.traverse(left, flip)
		if err != nil {
			return domain.Clean, err
		}
		u2, err := l.traverse(right, flip)
		if err != nil {
			return domain.Clean, err
		}
		children = u1.Max(u2)
	}

	if parent := l.tree.Parent(node); parent >= 0 {
		recomputed, err := l.updateBranch(node, parent, height, epoch, update, flip)
		if err != nil {
			return domain.Clean, err
		}
		if recomputed {
			update = update.Max(domain.Dirty)
		}
	}

	if node >= l.tipCount && children != domain.Clean {
		l.queueOperation(node, left, right, epoch, flip)
		update = update.Max(children)
	}
	return update, nil
}

// updateBranch recomputes the transition matrix of the branch above node when the
// node is stale, the parent sits above the forced-dirty age, or the branch time or
// epoch membership moved. Branches inside one eigen-capable epoch are queued for
// batched exponentiation; all others are composed on the host and written directly.
func (l *Likelihood) updateBranch(node, parent int, height float64, startEpoch int, update domain.Dirt, flip bool) (bool, error) {
	parentHeight := l.tree.Height(parent)
	if parentHeight >= l.threshold {
		update = update.Max(domain.Dirty)
	}
	branchRate := l.branchRates.Rate(node)
	branchTime := (parentHeight - height) * branchRate
	endEpoch := l.schedule.EpochOf(parentHeight)

	cached := l.cache.Entry(node)
	if update == domain.Clean && branchTime == cached.Time &&
		startEpoch == cached.StartEpoch && endEpoch == cached.EndEpoch {
		return false, nil
	}
	if branchTime < 0 {
		return false, fmt.Errorf("node %d: %w: %g", node, domain.ErrNegativeBranchLength, branchTime)
	}

	l.cache.commit(node, BranchEntry{Time: branchTime, StartEpoch: startEpoch, EndEpoch: endEpoch})
	if flip {
		l.matrices.Flip(node)
	}
	target := l.matrices.Current(node)

	if startEpoch == endEpoch && l.eigenCapable[startEpoch] {
		l.matrixTargets[startEpoch] = append(l.matrixTargets[startEpoch], target)
		l.matrixLengths[startEpoch] = append(l.matrixLengths[startEpoch], branchTime)
	} else {
		m := l.composer.composeCategories(l.schedule, startEpoch, endEpoch, height, parentHeight, branchRate, l.categoryRates)
		if err := l.engine.SetTransitionMatrix(target, m); err != nil {
			return false, fmt.Errorf("set transition matrix for node %d: %w", node, err)
		}
		l.stats.direct++
	}
	l.stats.branches++
	return true, nil
}

func (l *Likelihood) queueOperation(node, left, right, epoch int, flip bool) {
	if flip {
		l.partials.Flip(node)
	}
	op := domain.Operation{
		Destination: l.partials.Current(node),
		WriteScale:  domain.None,
		ReadScale:   domain.None,
		Child1:      l.partials.Current(left),
		Matrix1:     l.matrices.Current(left),
		Child2:      l.partials.Current(right),
		Matrix2:     l.matrices.Current(right),
	}

	i := node - l.tipCount
	switch {
	case l.rescaler.UseScaleFactors():
		if l.rescaler.Recompute() {
			l.scales.Flip(i)
			l.scaleIndices[i] = l.scales.Current(i)
			op.WriteScale = l.scaleIndices[i]
		} else {
			op.ReadScale = l.scaleIndices[i]
		}
	case l.rescaler.useAutoScaling:
		// The engine keeps automatic factors alongside the partial buffer.
		l.scaleIndices[i] = op.Destination
	}

	l.operations[epoch] = append(l.operations[epoch], op)
	l.stats.operations++
}
