package runtime

import (
	"github.com/aretw0/epochlik/pkg/domain"
)

const (
	// DefaultRescaleFrequency is the number of evaluations after which a dynamic
	// scheme recomputes its scale factors again.
	DefaultRescaleFrequency = 10000
	// DefaultRescaleTimes is the number of consecutive evaluations a dynamic scheme
	// recomputes scale factors for once triggered.
	DefaultRescaleTimes = 1
)

// Rescaler decides, per evaluation, whether scale factors are used and whether they
// are recomputed, and drives the single retry after an underflow.
type Rescaler struct {
	scheme    domain.Scheme
	frequency int
	times     int

	useScaleFactors bool
	useAutoScaling  bool
	recompute       bool
	everUnderflowed bool

	count int
	inner int
}

// NewRescaler creates a controller for the scheme. AUTO degrades to DYNAMIC when
// the engine cannot scale automatically; the effective scheme is reported by Scheme.
func NewRescaler(scheme domain.Scheme, caps domain.Capabilities, frequency, times int) *Rescaler {
	if frequency < 1 {
		frequency = DefaultRescaleFrequency
	}
	if times < 1 {
		times = DefaultRescaleTimes
	}
	r := &Rescaler{
		scheme:    scheme,
		frequency: frequency,
		times:     times,
	}
	if scheme == domain.SchemeAuto {
		if caps.AutoScaling {
			r.useAutoScaling = true
		} else {
			r.scheme = domain.SchemeDynamic
		}
	}
	return r
}

// Scheme returns the effective scheme.
func (r *Rescaler) Scheme() domain.Scheme {
	return r.scheme
}

// EverUnderflowed reports whether any evaluation has produced a non-finite likelihood.
func (r *Rescaler) EverUnderflowed() bool {
	return r.everUnderflowed
}

// UseScaleFactors reports whether scale buffers take part in the current evaluation.
func (r *Rescaler) UseScaleFactors() bool {
	return r.useScaleFactors
}

// Recompute reports whether the current evaluation writes fresh scale factors.
func (r *Rescaler) Recompute() bool {
	return r.recompute
}

// Begin prepares an evaluation. It returns Filthy when every partial has to be
// recomputed so that fresh scale factors cover the whole tree.
func (r *Rescaler) Begin() domain.Dirt {
	r.recompute = false
	dirt := domain.Clean

	switch r.scheme {
	case domain.SchemeAlways:
		r.useScaleFactors = true
		r.recompute = true
	case domain.SchemeDynamic:
		if !r.everUnderflowed {
			break
		}
		r.useScaleFactors = true
		if r.inner < r.times {
			r.recompute = true
			dirt = domain.Filthy
		}
		r.inner++
		r.count++
		if r.count > r.frequency {
			r.count = 0
			r.inner = 0
		}
	case domain.SchemeDelayed:
		if !r.everUnderflowed {
			break
		}
		r.useScaleFactors = true
		r.recompute = true
		dirt = domain.Filthy
		r.count++
	}
	return dirt
}

// Underflow records a non-finite likelihood and reports whether the evaluation
// should be retried with freshly computed scale factors.
func (r *Rescaler) Underflow(firstAttempt bool) bool {
	r.everUnderflowed = true
	if !firstAttempt || !r.scheme.Retries() {
		return false
	}
	r.useScaleFactors = true
	r.recompute = true
	return true
}

// invalidate makes the next evaluation recompute scale factors for every node.
// Only DYNAMIC needs it; the other rescaling schemes recompute on every
// evaluation once scale factors are in use.
func (r *Rescaler) invalidate() {
	if r.scheme == domain.SchemeDynamic && r.everUnderflowed {
		r.inner = 0
	}
}

func (r *Rescaler) checkpoint(cp *domain.Checkpoint) {
	cp.Scheme = r.scheme
	cp.EverUnderflowed = r.everUnderflowed
	cp.RescaleCount = r.count
	cp.RescaleInner = r.inner
}

func (r *Rescaler) resume(cp *domain.Checkpoint) {
	r.everUnderflowed = cp.EverUnderflowed
	r.count = cp.RescaleCount
	r.inner = cp.RescaleInner
	if r.scheme == domain.SchemeDynamic || r.scheme == domain.SchemeDelayed {
		r.useScaleFactors = r.everUnderflowed
	}
	if r.scheme == domain.SchemeDynamic && r.everUnderflowed {
		// Scale buffers are empty after a resume; recompute on the next evaluation.
		r.inner = 0
	}
}
