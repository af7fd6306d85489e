package runtime

import (
	"fmt"
	"slices"
	"sort"

	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/aretw0/epochlik/pkg/ports"
)

// EpochSchedule partitions the time axis into intervals, each owned by one
// substitution process. Interval 0 is the most recent; boundaries are ascending ages.
type EpochSchedule struct {
	boundaries []float64
	stored     []float64
	processes  []ports.SubstitutionProcess
}

// NewEpochSchedule validates and builds a schedule.
// It requires exactly one more process than boundaries.
func NewEpochSchedule(boundaries []float64, processes []ports.SubstitutionProcess) (*EpochSchedule, error) {
	if len(processes) != len(boundaries)+1 {
		return nil, fmt.Errorf("%w: %d boundaries need %d processes, got %d",
			domain.ErrEpochModelMismatch, len(boundaries), len(boundaries)+1, len(processes))
	}
	if err := validateBoundaries(boundaries); err != nil {
		return nil, err
	}
	stateCount := processes[0].StateCount()
	for i, p := range processes {
		if p.StateCount() != stateCount {
			return nil, fmt.Errorf("%w: epoch %d has %d states, epoch 0 has %d",
				domain.ErrStateCountMismatch, i, p.StateCount(), stateCount)
		}
	}

	b := make([]float64, len(boundaries))
	copy(b, boundaries)
	return &EpochSchedule{
		boundaries: b,
		stored:     slices.Clone(b),
		processes:  processes,
	}, nil
}

func validateBoundaries(boundaries []float64) error {
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] <= boundaries[i-1] {
			return fmt.Errorf("%w: %g follows %g", domain.ErrUnsortedBoundaries, boundaries[i], boundaries[i-1])
		}
	}
	return nil
}

// Len returns the number of epochs.
func (s *EpochSchedule) Len() int {
	return len(s.processes)
}

// StateCount returns the alphabet size shared by every process.
func (s *EpochSchedule) StateCount() int {
	return s.processes[0].StateCount()
}

// Process returns the process owning epoch e.
func (s *EpochSchedule) Process(e int) ports.SubstitutionProcess {
	return s.processes[e]
}

// Boundaries returns a copy of the boundary ages.
func (s *EpochSchedule) Boundaries() []float64 {
	out := make([]float64, len(s.boundaries))
	copy(out, s.boundaries)
	return out
}

// EpochOf returns the epoch containing age. An age equal to a boundary belongs
// to the younger interval.
func (s *EpochSchedule) EpochOf(age float64) int {
	return sort.SearchFloat64s(s.boundaries, age)
}

// YoungerBound returns the age at which epoch e starts (0 for the most recent epoch).
func (s *EpochSchedule) YoungerBound(e int) float64 {
	if e == 0 {
		return 0
	}
	return s.boundaries[e-1]
}

// RootEpoch returns the oldest epoch whose younger bound does not exceed the root
// age; its process supplies the root state frequencies.
func (s *EpochSchedule) RootEpoch(rootHeight float64) int {
	for e := len(s.processes) - 1; e > 0; e-- {
		if s.boundaries[e-1] <= rootHeight {
			return e
		}
	}
	return 0
}

func (s *EpochSchedule) save() {
	copy(s.stored, s.boundaries)
}

func (s *EpochSchedule) rollback() {
	s.boundaries, s.stored = s.stored, s.boundaries
}
