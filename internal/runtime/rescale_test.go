package runtime

import (
	"testing"

	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestRescaler_Dynamic(t *testing.T) {
	r := NewRescaler(domain.SchemeDynamic, domain.Capabilities{}, 2, 1)

	assert.Equal(t, domain.Clean, r.Begin())
	assert.False(t, r.UseScaleFactors())
	assert.True(t, r.Underflow(true))
	assert.True(t, r.UseScaleFactors())
	assert.True(t, r.Recompute())
	assert.False(t, r.Underflow(false))

	var recomputed []bool
	for i := 0; i < 5; i++ {
		dirt := r.Begin()
		recomputed = append(recomputed, r.Recompute())
		if r.Recompute() {
			assert.Equal(t, domain.Filthy, dirt)
		} else {
			assert.Equal(t, domain.Clean, dirt)
		}
		assert.True(t, r.UseScaleFactors())
	}
	assert.Equal(t, []bool{true, false, false, true, false}, recomputed)
}

func TestRescaler_Schemes(t *testing.T) {
	t.Run("none never retries", func(t *testing.T) {
		r := NewRescaler(domain.SchemeNone, domain.Capabilities{}, 0, 0)
		r.Begin()
		assert.False(t, r.Underflow(true))
		assert.True(t, r.EverUnderflowed())
		r.Begin()
		assert.False(t, r.UseScaleFactors())
	})

	t.Run("always recomputes", func(t *testing.T) {
		r := NewRescaler(domain.SchemeAlways, domain.Capabilities{}, 0, 0)
		for i := 0; i < 3; i++ {
			assert.Equal(t, domain.Clean, r.Begin())
			assert.True(t, r.Recompute())
		}
		assert.False(t, r.Underflow(true))
	})

	t.Run("delayed recomputes after the first underflow", func(t *testing.T) {
		r := NewRescaler(domain.SchemeDelayed, domain.Capabilities{}, 0, 0)
		r.Begin()
		assert.False(t, r.UseScaleFactors())
		assert.True(t, r.Underflow(true))
		for i := 0; i < 3; i++ {
			assert.Equal(t, domain.Filthy, r.Begin())
			assert.True(t, r.Recompute())
		}
	})

	t.Run("auto without engine support", func(t *testing.T) {
		r := NewRescaler(domain.SchemeAuto, domain.Capabilities{}, 0, 0)
		assert.Equal(t, domain.SchemeDynamic, r.Scheme())
		assert.False(t, r.useAutoScaling)
	})

	t.Run("auto with engine support", func(t *testing.T) {
		r := NewRescaler(domain.SchemeAuto, domain.Capabilities{AutoScaling: true}, 0, 0)
		assert.Equal(t, domain.SchemeAuto, r.Scheme())
		assert.True(t, r.useAutoScaling)
		assert.False(t, r.Underflow(true))
	})
}

func TestRescaler_CheckpointResume(t *testing.T) {
	r := NewRescaler(domain.SchemeDynamic, domain.Capabilities{}, 5, 1)
	r.Begin()
	r.Underflow(true)
	r.Begin()
	r.Begin()

	var cp domain.Checkpoint
	r.checkpoint(&cp)
	assert.True(t, cp.EverUnderflowed)
	assert.Equal(t, 2, cp.RescaleCount)

	resumed := NewRescaler(domain.SchemeDynamic, domain.Capabilities{}, 5, 1)
	resumed.resume(&cp)
	assert.True(t, resumed.UseScaleFactors())
	assert.Equal(t, domain.Filthy, resumed.Begin())
	assert.True(t, resumed.Recompute())
}
