package epochlik

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/epochlik/internal/config"
	"github.com/aretw0/epochlik/internal/runtime"
	"github.com/aretw0/epochlik/pkg/adapters/cpu"
	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/aretw0/epochlik/pkg/ports"
	"github.com/aretw0/epochlik/pkg/registry"
)

// Likelihood is the high-level entry point of the library.
// It wraps the internal runtime and adds the default engine registry.
type Likelihood struct {
	*runtime.Likelihood
	Name string
}

type settings struct {
	registry    *registry.Registry
	runtimeOpts []runtime.Option
	name        string
}

// Option defines a functional option for configuring a Likelihood.
type Option func(*settings)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithLogger(logger))
	}
}

// WithRegistry replaces the default registry, which only knows the in-process
// cpu engine.
func WithRegistry(r *registry.Registry) Option {
	return func(s *settings) {
		s.registry = r
	}
}

// WithResource selects the engine resource by name.
func WithResource(name string) Option {
	return func(s *settings) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithResource(name))
	}
}

// WithThreads bounds the parallelism of the engine.
func WithThreads(n int) Option {
	return func(s *settings) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithThreads(n))
	}
}

// WithScheme selects the rescaling scheme.
func WithScheme(scheme domain.Scheme) Option {
	return func(s *settings) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithScheme(scheme))
	}
}

// WithBranchRates sets the clock model (default: strict clock with rate 1).
func WithBranchRates(rates ports.BranchRateModel) Option {
	return func(s *settings) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithBranchRates(rates))
	}
}

// WithRootFrequencies overrides the root state frequencies.
func WithRootFrequencies(freqs []float64) Option {
	return func(s *settings) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithRootFrequencies(freqs))
	}
}

// WithTipPartials loads partially ambiguous tips as partial vectors.
func WithTipPartials(enabled bool) Option {
	return func(s *settings) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithTipPartials(enabled))
	}
}

// WithEvaluationHooks registers observability hooks.
func WithEvaluationHooks(hooks domain.EvaluationHooks) Option {
	return func(s *settings) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithHooks(hooks))
	}
}

// WithName labels the likelihood, e.g. with the scenario name.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// DefaultRegistry returns a registry with the in-process engine registered as "cpu".
func DefaultRegistry() *registry.Registry {
	r := registry.NewRegistry()
	r.Register(cpu.Name, cpu.Factory)
	return r
}

// New builds a likelihood over an epoch model: boundaries are ascending ages and
// processes holds one process per epoch, youngest first. Engines are resolved by
// resource name through the registry; an unavailable resource falls back to the
// in-process engine.
func New(
	tree ports.Tree,
	boundaries []float64,
	processes []ports.SubstitutionProcess,
	site ports.SiteModel,
	patterns ports.PatternSource,
	opts ...Option,
) (*Likelihood, error) {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = DefaultRegistry()
	}

	schedule, err := runtime.NewEpochSchedule(boundaries, processes)
	if err != nil {
		return nil, err
	}

	rtOpts := append([]runtime.Option{
		runtime.WithResource(cpu.Name),
		runtime.WithFallback(cpu.Factory),
	}, s.runtimeOpts...)

	l, err := runtime.NewLikelihood(tree, schedule, site, patterns, s.registry.Factory(), rtOpts...)
	if err != nil {
		return nil, err
	}
	return &Likelihood{Likelihood: l, Name: s.name}, nil
}

// Scenario is a loaded scenario together with the components built from it.
type Scenario struct {
	Config *config.Scenario
	*config.Components
}

// LoadScenario reads and builds a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	s, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c, err := s.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Scenario{Config: s, Components: c}, nil
}

// ParseScenario builds a scenario from YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	s, err := config.Parse(data)
	if err != nil {
		return nil, err
	}
	c, err := s.Build()
	if err != nil {
		return nil, err
	}
	return &Scenario{Config: s, Components: c}, nil
}

// Options translates the scenario settings into options. Explicit options passed
// to NewFromScenario are applied after these and win.
func (sc *Scenario) Options() []Option {
	opts := []Option{
		WithName(sc.Config.Name),
		WithResource(sc.Config.Resource),
		WithThreads(sc.Config.Threads),
		WithScheme(sc.Scheme),
		WithBranchRates(sc.Clock),
		WithTipPartials(sc.Config.TipPartials),
	}
	if len(sc.Config.RootFrequencies) > 0 {
		opts = append(opts, WithRootFrequencies(sc.Config.RootFrequencies))
	}
	return opts
}

// NewFromScenario builds the likelihood a scenario describes.
func NewFromScenario(sc *Scenario, opts ...Option) (*Likelihood, error) {
	return New(sc.Tree, sc.Boundaries, sc.Processes, sc.SiteModel, sc.Patterns,
		append(sc.Options(), opts...)...)
}
