package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/epochlik/pkg/adapters/memory"
	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/aretw0/epochlik/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunCheckpointStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	cp := &domain.Checkpoint{ID: "chain-0", Partials: []int{0, 1, 2}}

	require.NoError(t, store.Save(ctx, cp))
	cp.Partials[0] = 99

	loaded, err := store.Load(ctx, "chain-0")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, loaded.Partials)

	loaded.Partials[1] = 42
	again, err := store.Load(ctx, "chain-0")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, again.Partials)
}
