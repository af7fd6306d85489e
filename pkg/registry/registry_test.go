package registry_test

import (
	"testing"

	"github.com/aretw0/epochlik/pkg/adapters/cpu"
	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/aretw0/epochlik/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func layout(resource string) domain.EngineConfig {
	return domain.EngineConfig{
		TipCount:           2,
		PartialBufferCount: 4,
		CompactBufferCount: 2,
		StateCount:         4,
		PatternCount:       3,
		EigenBufferCount:   2,
		MatrixBufferCount:  6,
		CategoryCount:      1,
		ScaleBufferCount:   4,
		Resource:           resource,
	}
}

func TestRegistry_Open(t *testing.T) {
	r := registry.NewRegistry()
	r.Register(cpu.Name, cpu.Factory)

	engine, err := r.Open(layout(cpu.Name))
	require.NoError(t, err)
	assert.Equal(t, cpu.Name, engine.Capabilities().Name)
	assert.Equal(t, []string{cpu.Name}, r.Names())
}

func TestRegistry_Unknown(t *testing.T) {
	r := registry.NewRegistry()
	_, err := r.Factory()(layout("gpu"))
	assert.ErrorIs(t, err, domain.ErrEngineUnavailable)
}
