// Package tree provides a rooted binary time tree with dirty tracking.
package tree

import (
	"errors"
	"fmt"
)

var (
	ErrMalformed   = errors.New("malformed tree")
	ErrHeightOrder = errors.New("node is older than its parent")
)

// Tree is a rooted binary tree whose tips occupy indices [0, TipCount) and whose
// internal nodes occupy [TipCount, NodeCount). Height is age before the present.
//
// Changing a height marks the node and its children dirty: every branch touching
// the node changed. Accept clears the marks once a likelihood has consumed them.
type Tree struct {
	names    []string
	parents  []int
	children [][2]int
	heights  []float64
	dirty    []bool
	root     int
	tipCount int

	storedHeights []float64
}

// Node describes one node when building a tree.
type Node struct {
	Name   string
	Parent int // -1 for the root
	Height float64
}

// New builds a tree from a node list laid out with tips first.
func New(tipCount int, nodes []Node) (*Tree, error) {
	n := len(nodes)
	if tipCount < 2 || n != 2*tipCount-1 {
		return nil, fmt.Errorf("%w: %d nodes for %d tips", ErrMalformed, n, tipCount)
	}
	t := &Tree{
		names:         make([]string, n),
		parents:       make([]int, n),
		children:      make([][2]int, n),
		heights:       make([]float64, n),
		dirty:         make([]bool, n),
		root:          -1,
		tipCount:      tipCount,
		storedHeights: make([]float64, n),
	}
	for i := range t.children {
		t.children[i] = [2]int{-1, -1}
	}
	for i, node := range nodes {
		t.names[i] = node.Name
		t.parents[i] = node.Parent
		t.heights[i] = node.Height
		if node.Parent < 0 {
			if t.root >= 0 {
				return nil, fmt.Errorf("%w: nodes %d and %d are both roots", ErrMalformed, t.root, i)
			}
			t.root = i
			continue
		}
		if node.Parent < tipCount || node.Parent >= n {
			return nil, fmt.Errorf("%w: node %d has parent %d", ErrMalformed, i, node.Parent)
		}
		c := &t.children[node.Parent]
		switch {
		case c[0] < 0:
			c[0] = i
		case c[1] < 0:
			c[1] = i
		default:
			return nil, fmt.Errorf("%w: node %d has more than two children", ErrMalformed, node.Parent)
		}
	}
	if t.root < tipCount {
		return nil, fmt.Errorf("%w: root must be an internal node", ErrMalformed)
	}
	for i := tipCount; i < n; i++ {
		if t.children[i][1] < 0 {
			return nil, fmt.Errorf("%w: internal node %d has fewer than two children", ErrMalformed, i)
		}
	}
	for i := 0; i < n; i++ {
		if p := t.parents[i]; p >= 0 && t.heights[i] > t.heights[p] {
			return nil, fmt.Errorf("%w: node %d at %g, parent %d at %g", ErrHeightOrder, i, t.heights[i], p, t.heights[p])
		}
	}
	copy(t.storedHeights, t.heights)
	return t, nil
}

func (t *Tree) NodeCount() int { return len(t.parents) }

func (t *Tree) TipCount() int { return t.tipCount }

func (t *Tree) Root() int { return t.root }

func (t *Tree) Parent(node int) int { return t.parents[node] }

func (t *Tree) Children(node int) (left, right int) {
	c := t.children[node]
	return c[0], c[1]
}

func (t *Tree) Height(node int) float64 { return t.heights[node] }

func (t *Tree) IsDirty(node int) bool { return t.dirty[node] }

// Name returns the taxon or node label.
func (t *Tree) Name(node int) string { return t.names[node] }

// SetHeight moves a node. It does not check the parent/child order; a branch
// left with negative length surfaces when the likelihood is evaluated.
func (t *Tree) SetHeight(node int, height float64) {
	t.heights[node] = height
	t.dirty[node] = true
	if node >= t.tipCount {
		l, r := t.Children(node)
		t.dirty[l] = true
		t.dirty[r] = true
	}
}

// MarkDirty flags a single node, e.g. after its branch rate changed.
func (t *Tree) MarkDirty(node int) {
	t.dirty[node] = true
}

// Accept clears every dirty mark.
func (t *Tree) Accept() {
	clear(t.dirty)
}

// Store remembers the current heights.
func (t *Tree) Store() {
	copy(t.storedHeights, t.heights)
}

// Restore returns to the stored heights and clears the dirty marks.
func (t *Tree) Restore() {
	copy(t.heights, t.storedHeights)
	clear(t.dirty)
}
