package ports

import (
	"context"

	"github.com/aretw0/epochlik/pkg/domain"
)

// CheckpointStore persists likelihood checkpoints so a long-running sampler can be
// stopped and resumed.
type CheckpointStore interface {
	// Save persists the checkpoint under its ID, replacing any previous one.
	Save(ctx context.Context, cp *domain.Checkpoint) error

	// Load retrieves a checkpoint.
	// Returns domain.ErrCheckpointNotFound if the ID does not exist.
	Load(ctx context.Context, id string) (*domain.Checkpoint, error)

	// Delete removes a checkpoint. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the stored checkpoint IDs.
	List(ctx context.Context) ([]string, error)
}
