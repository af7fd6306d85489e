package runtime

import (
	"fmt"

	"github.com/aretw0/epochlik/pkg/domain"
)

// BufferSlotTable maps logical buffer indices onto one of two physical buffers.
//
// Indices below the double-buffering threshold always map to themselves. Every
// other index i maps to either i or i+offsetCount, so the table needs
// 2*(maxIndex-minIndex)+minIndex physical buffers. Flipping moves a slot to its
// other physical buffer; Save and Rollback checkpoint which buffer is current
// without touching buffer contents.
type BufferSlotTable struct {
	maxIndex    int
	minIndex    int
	offsetCount int

	offsets []int
	stored  []int
}

// NewBufferSlotTable creates a table with maxIndex logical slots, of which the
// slots below minDoubleBuffered are single-buffered.
func NewBufferSlotTable(maxIndex, minDoubleBuffered int) *BufferSlotTable {
	if minDoubleBuffered > maxIndex {
		minDoubleBuffered = maxIndex
	}
	offsetCount := maxIndex - minDoubleBuffered
	return &BufferSlotTable{
		maxIndex:    maxIndex,
		minIndex:    minDoubleBuffered,
		offsetCount: offsetCount,
		offsets:     make([]int, offsetCount),
		stored:      make([]int, offsetCount),
	}
}

// Len returns the number of logical slots.
func (t *BufferSlotTable) Len() int {
	return t.maxIndex
}

// BufferCount returns the number of physical buffers the table addresses.
func (t *BufferSlotTable) BufferCount() int {
	return 2*t.offsetCount + t.minIndex
}

// Flip toggles the physical buffer of slot i. Single-buffered slots are left alone.
func (t *BufferSlotTable) Flip(i int) {
	if i < t.minIndex {
		return
	}
	k := i - t.minIndex
	t.offsets[k] = t.offsetCount - t.offsets[k]
}

// Current returns the physical buffer currently holding slot i.
func (t *BufferSlotTable) Current(i int) int {
	if i < t.minIndex {
		return i
	}
	return t.offsets[i-t.minIndex] + i
}

// Save copies the flip state into the shadow table.
func (t *BufferSlotTable) Save() {
	copy(t.stored, t.offsets)
}

// Rollback makes the shadow table current. The discarded state becomes the shadow.
func (t *BufferSlotTable) Rollback() {
	t.offsets, t.stored = t.stored, t.offsets
}

// Snapshot returns the physical buffer of every slot.
func (t *BufferSlotTable) Snapshot() []int {
	out := make([]int, t.maxIndex)
	for i := range out {
		out[i] = t.Current(i)
	}
	return out
}

// Load restores a state previously returned by Snapshot.
func (t *BufferSlotTable) Load(current []int) error {
	if len(current) != t.maxIndex {
		return fmt.Errorf("%w: %d slots, table has %d", domain.ErrCheckpointShape, len(current), t.maxIndex)
	}
	for i, phys := range current {
		switch {
		case i < t.minIndex:
			if phys != i {
				return fmt.Errorf("%w: single-buffered slot %d mapped to %d", domain.ErrCheckpointShape, i, phys)
			}
		case phys == i:
			t.offsets[i-t.minIndex] = 0
		case phys == i+t.offsetCount:
			t.offsets[i-t.minIndex] = t.offsetCount
		default:
			return fmt.Errorf("%w: slot %d mapped to %d", domain.ErrCheckpointShape, i, phys)
		}
	}
	copy(t.stored, t.offsets)
	return nil
}
