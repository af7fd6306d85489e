package ports

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCheckpointStoreContract runs a suite of tests to verify that a CheckpointStore
// implementation adheres to the defined interface contract.
func RunCheckpointStoreContract(t *testing.T, store CheckpointStore) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")

	sample := func(id string) *domain.Checkpoint {
		return &domain.Checkpoint{
			ID:              id,
			NodeCount:       7,
			EpochCount:      2,
			Boundaries:      []float64{1.0},
			Partials:        []int{0, 3, 0},
			Matrices:        []int{7, 0, 0, 7, 0, 0, 7},
			Eigen:           []int{0, 2},
			Scales:          []int{0, 0, 4, 0},
			Branches:        []domain.BranchRecord{{Time: 0.5, StartEpoch: 0, EndEpoch: 1}, {Time: -1}},
			Scheme:          domain.SchemeDynamic,
			EverUnderflowed: true,
			RescaleCount:    12,
			RescaleInner:    1,
			LogLikelihood:   -1234.5,
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		cp := sample(runID)
		err := store.Save(ctx, cp)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, cp, loaded)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		cp := sample(runID)
		cp.LogLikelihood = math.Inf(-1)
		require.NoError(t, store.Save(ctx, cp))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.True(t, math.IsInf(loaded.LogLikelihood, -1))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrCheckpointNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sample(runID)))

		err := store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrCheckpointNotFound, "Load after Delete should return ErrCheckpointNotFound")

		assert.NoError(t, store.Delete(ctx, runID), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = store.Save(ctx, sample(id1))
		_ = store.Save(ctx, sample(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
