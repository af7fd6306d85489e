package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/epochlik/internal/codec"
	"github.com/aretw0/epochlik/pkg/domain"
)

const ext = ".cbor"

// Store implements ports.CheckpointStore using the local filesystem.
// Each checkpoint is one CBOR file named after its ID.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".epochlik/checkpoints".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".epochlik", "checkpoints")
	}
	return &Store{BasePath: basePath}
}

// Save persists the checkpoint atomically: it writes a temporary file in the
// same directory, syncs it and renames it over the destination.
func (s *Store) Save(ctx context.Context, cp *domain.Checkpoint) error {
	path, err := s.path(cp.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure checkpoint directory: %w", err)
	}

	data, err := codec.EncodeCheckpoint(cp)
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+cp.ID+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove existing checkpoint for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to checkpoint: %w", err)
	}
	return nil
}

// Load reads and decodes a checkpoint file.
func (s *Store) Load(ctx context.Context, id string) (*domain.Checkpoint, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}
	return codec.DecodeCheckpoint(data)
}

// Delete removes the checkpoint file.
func (s *Store) Delete(ctx context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint file: %w", err)
	}
	return nil
}

// List returns the stored checkpoint IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Store) path(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("checkpoint id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid checkpoint id %q", id)
	}
	return filepath.Join(s.BasePath, id+ext), nil
}
