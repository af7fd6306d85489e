package epochlik

import (
	"context"
	"math"
	"time"
)

// Evaluation is the JSON-friendly outcome of evaluating a scenario once.
// LogLikelihood is nil when the likelihood is not finite.
type Evaluation struct {
	Name          string    `json:"name" jsonschema_description:"Scenario name"`
	Engine        string    `json:"engine" jsonschema_description:"Engine that evaluated the scenario"`
	Threads       int       `json:"threads"`
	Scheme        string    `json:"scheme" jsonschema_description:"Rescaling scheme in effect"`
	Tips          int       `json:"tips"`
	Patterns      int       `json:"patterns"`
	Sites         int       `json:"sites"`
	Boundaries    []float64 `json:"boundaries" jsonschema_description:"Epoch boundary ages, youngest first"`
	LogLikelihood *float64  `json:"log_likelihood" jsonschema_description:"Log-likelihood, null when it is -Inf"`
	Finite        bool      `json:"finite"`
	DurationMS    float64   `json:"duration_ms"`

	PatternLogLikelihoods []float64 `json:"pattern_log_likelihoods,omitempty"`
}

// Evaluate parses a YAML scenario, evaluates it and closes the engine again.
// Pattern log-likelihoods are included on request when the total is finite.
func Evaluate(ctx context.Context, data []byte, withPatterns bool, opts ...Option) (*Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	lik, err := NewFromScenario(sc, opts...)
	if err != nil {
		return nil, err
	}
	defer lik.Close()

	start := time.Now()
	logL, err := lik.LogLikelihood()
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	caps := lik.Capabilities()
	ev := &Evaluation{
		Name:       lik.Name,
		Engine:     caps.Name,
		Threads:    caps.Threads,
		Scheme:     string(lik.Scheme()),
		Tips:       sc.Tree.TipCount(),
		Patterns:   sc.Patterns.PatternCount(),
		Sites:      sc.Patterns.SiteCount(),
		Boundaries: sc.Boundaries,
		DurationMS: float64(elapsed.Microseconds()) / 1000,
	}
	if ev.Boundaries == nil {
		ev.Boundaries = []float64{}
	}
	if math.IsInf(logL, 0) || math.IsNaN(logL) {
		return ev, nil
	}
	ev.LogLikelihood = &logL
	ev.Finite = true

	if withPatterns {
		if ev.PatternLogLikelihoods, err = lik.PatternLogLikelihoods(); err != nil {
			return nil, err
		}
	}
	return ev, nil
}
