// Package config loads likelihood scenarios from YAML files.
//
// Files are decoded with yaml.v3 into a generic map and then into typed structs
// with mapstructure, so unknown keys are reported instead of silently ignored.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario describes one likelihood: a tree, an alignment and the epoch model.
type Scenario struct {
	Name      string         `mapstructure:"name"`
	Tree      string         `mapstructure:"tree"`
	ClockRate float64        `mapstructure:"clock_rate"`
	Epochs    EpochsConfig   `mapstructure:"epochs"`
	Alignment AlignmentInput `mapstructure:"alignment"`
	SiteModel SiteModel      `mapstructure:"site_model"`

	Scaling         string    `mapstructure:"scaling"`
	Resource        string    `mapstructure:"resource"`
	Threads         int       `mapstructure:"threads"`
	TipPartials     bool      `mapstructure:"tip_partials"`
	RootFrequencies []float64 `mapstructure:"root_frequencies"`
}

type EpochsConfig struct {
	Boundaries []float64       `mapstructure:"boundaries"`
	Processes  []ProcessConfig `mapstructure:"processes"`
}

// ProcessConfig selects a substitution process. Model is one of jc, f81, hky,
// gtr or general.
type ProcessConfig struct {
	Model       string    `mapstructure:"model"`
	Kappa       float64   `mapstructure:"kappa"`
	Rates       []float64 `mapstructure:"rates"`
	Matrix      []float64 `mapstructure:"matrix"`
	Frequencies []float64 `mapstructure:"frequencies"`
}

type AlignmentInput struct {
	Alphabet  string            `mapstructure:"alphabet"`
	Sequences map[string]string `mapstructure:"sequences"`
}

type SiteModel struct {
	Categories          int     `mapstructure:"categories"`
	Shape               float64 `mapstructure:"shape"`
	ProportionInvariant float64 `mapstructure:"proportion_invariant"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes, defaults and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	var s Scenario
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &s,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) applyDefaults() {
	if s.ClockRate == 0 {
		s.ClockRate = 1
	}
	if s.SiteModel.Categories == 0 {
		s.SiteModel.Categories = 1
	}
	if s.SiteModel.Categories == 1 && s.SiteModel.Shape == 0 {
		s.SiteModel.Shape = math.Inf(1)
	}
	if s.Alignment.Alphabet == "" {
		s.Alignment.Alphabet = "nucleotide"
	}
	if s.Resource == "" {
		s.Resource = "cpu"
	}
	for i := range s.Epochs.Processes {
		p := &s.Epochs.Processes[i]
		if p.Model == "hky" && p.Kappa == 0 {
			p.Kappa = 1
		}
	}
}

// Validate checks the parts of a scenario that can be checked without building it.
func (s *Scenario) Validate() error {
	if s.Tree == "" {
		return fmt.Errorf("%w: tree is required", ErrInvalidScenario)
	}
	if len(s.Alignment.Sequences) == 0 {
		return fmt.Errorf("%w: alignment has no sequences", ErrInvalidScenario)
	}
	if got, want := len(s.Epochs.Processes), len(s.Epochs.Boundaries)+1; got != want {
		return fmt.Errorf("%w: %d boundaries need %d processes, got %d",
			ErrInvalidScenario, len(s.Epochs.Boundaries), want, got)
	}
	if !(s.ClockRate > 0) {
		return fmt.Errorf("%w: clock_rate must be positive", ErrInvalidScenario)
	}
	if s.SiteModel.Categories < 1 {
		return fmt.Errorf("%w: site_model.categories must be at least 1", ErrInvalidScenario)
	}
	if s.SiteModel.Categories > 1 && !(s.SiteModel.Shape > 0) {
		return fmt.Errorf("%w: site_model.shape is required with %d categories", ErrInvalidScenario, s.SiteModel.Categories)
	}
	if s.Threads < 0 {
		return fmt.Errorf("%w: threads must not be negative", ErrInvalidScenario)
	}
	for i, p := range s.Epochs.Processes {
		switch p.Model {
		case "jc", "f81", "hky", "gtr", "general":
		default:
			return fmt.Errorf("%w: epoch %d has unknown model %q", ErrInvalidScenario, i, p.Model)
		}
	}
	return nil
}
