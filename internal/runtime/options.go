package runtime

import (
	"log/slog"

	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/aretw0/epochlik/pkg/ports"
)

// Option configures a Likelihood.
type Option func(*Likelihood)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Likelihood) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithScheme selects the rescaling scheme.
func WithScheme(scheme domain.Scheme) Option {
	return func(l *Likelihood) {
		l.scheme = scheme
	}
}

// WithRescaleFrequency overrides how often a dynamic scheme refreshes its scale factors.
func WithRescaleFrequency(evaluations int) Option {
	return func(l *Likelihood) {
		l.rescaleFrequency = evaluations
	}
}

// WithBranchRates sets the clock model. The default is a strict clock with rate 1.
func WithBranchRates(rates ports.BranchRateModel) Option {
	return func(l *Likelihood) {
		if rates != nil {
			l.branchRates = rates
		}
	}
}

// WithRootFrequencies overrides the state frequencies used at the root.
func WithRootFrequencies(freqs []float64) Option {
	return func(l *Likelihood) {
		l.rootFrequencies = freqs
	}
}

// WithTipPartials loads ambiguous tips as partial vectors instead of compact states.
func WithTipPartials(enabled bool) Option {
	return func(l *Likelihood) {
		l.useTipPartials = enabled
	}
}

// WithFallback sets the factory used when the primary engine is unavailable.
func WithFallback(factory ports.EngineFactory) Option {
	return func(l *Likelihood) {
		l.fallback = factory
	}
}

// WithResource names the backend resource handed to the engine factory.
func WithResource(resource string) Option {
	return func(l *Likelihood) {
		l.resource = resource
	}
}

// WithThreads bounds the internal parallelism of the engine.
func WithThreads(threads int) Option {
	return func(l *Likelihood) {
		l.threads = threads
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.EvaluationHooks) Option {
	return func(l *Likelihood) {
		l.hooks = hooks
	}
}

type strictClock struct{}

func (strictClock) Rate(int) float64 { return 1 }
