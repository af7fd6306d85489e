package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/epochlik/pkg/alignment"
	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/aretw0/epochlik/pkg/ports"
	"github.com/aretw0/epochlik/pkg/sitemodel"
	"github.com/aretw0/epochlik/pkg/substmodel"
	"github.com/aretw0/epochlik/pkg/tree"
)

// Components are the model objects a scenario describes.
type Components struct {
	Tree       *tree.Tree
	Patterns   *alignment.Patterns
	Boundaries []float64
	Processes  []ports.SubstitutionProcess
	SiteModel  *sitemodel.Gamma
	Clock      ports.BranchRateModel
	Scheme     domain.Scheme
}

// Build instantiates the tree, alignment and models of a scenario. Alignment
// rows are reordered to match the tip order of the tree.
func (s *Scenario) Build() (*Components, error) {
	t, err := tree.ParseNewick(s.Tree)
	if err != nil {
		return nil, invalid(err)
	}
	alphabet, err := alignment.ByName(s.Alignment.Alphabet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	taxa := make([]string, 0, len(s.Alignment.Sequences))
	for name := range s.Alignment.Sequences {
		taxa = append(taxa, name)
	}
	slices.Sort(taxa)
	seqs := make([]string, len(taxa))
	for i, name := range taxa {
		seqs[i] = s.Alignment.Sequences[name]
	}
	patterns, err := alignment.Compress(alphabet, taxa, seqs)
	if err != nil {
		return nil, invalid(err)
	}
	tips := make([]string, t.TipCount())
	for i := range tips {
		tips[i] = t.Name(i)
	}
	if err := patterns.Reorder(tips); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	processes := make([]ports.SubstitutionProcess, len(s.Epochs.Processes))
	for i, pc := range s.Epochs.Processes {
		p, err := pc.build(alphabet.StateCount())
		if err != nil {
			return nil, invalid(fmt.Errorf("epoch %d: %w", i, err))
		}
		processes[i] = p
	}

	site, err := sitemodel.NewGamma(s.SiteModel.Shape, s.SiteModel.Categories, s.SiteModel.ProportionInvariant)
	if err != nil {
		return nil, invalid(err)
	}
	scheme, err := domain.ParseScheme(s.Scaling)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	return &Components{
		Tree:       t,
		Patterns:   patterns,
		Boundaries: slices.Clone(s.Epochs.Boundaries),
		Processes:  processes,
		SiteModel:  site,
		Clock:      StrictClock(s.ClockRate),
		Scheme:     scheme,
	}, nil
}

// invalid marks err as a scenario error unless it already is one.
func invalid(err error) error {
	if errors.Is(err, ErrInvalidScenario) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
}

func (pc ProcessConfig) frequencies(n int) []float64 {
	if len(pc.Frequencies) > 0 {
		return pc.Frequencies
	}
	f := make([]float64, n)
	for i := range f {
		f[i] = 1 / float64(n)
	}
	return f
}

func (pc ProcessConfig) build(n int) (ports.SubstitutionProcess, error) {
	freqs := pc.frequencies(n)
	switch pc.Model {
	case "jc":
		return substmodel.NewJC(n), nil
	case "f81":
		return substmodel.NewF81(freqs)
	case "hky":
		return substmodel.NewHKY(pc.Kappa, freqs)
	case "gtr":
		if n != 4 {
			return substmodel.NewReversible(pc.Rates, freqs)
		}
		if len(pc.Rates) != 6 {
			return nil, fmt.Errorf("%w: gtr needs 6 rates, got %d", ErrInvalidScenario, len(pc.Rates))
		}
		return substmodel.NewGTR([6]float64(pc.Rates), freqs)
	case "general":
		return substmodel.NewGeneral(pc.Matrix, freqs)
	}
	return nil, fmt.Errorf("%w: unknown model %q", ErrInvalidScenario, pc.Model)
}

// StrictClock applies the same rate to every branch.
type StrictClock float64

func (c StrictClock) Rate(int) float64 { return float64(c) }
