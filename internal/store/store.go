// Package store persists and loads the deployment descriptor that makes
// stop/restart possible from a cold process.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/p-mongodb/mongo-manager/internal/model"
)

// FileName is the descriptor's name within a deployment directory.
const FileName = "mongo-manager.yml"

// Path returns the descriptor path for a deployment directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Save writes the descriptor to <dir>/mongo-manager.yml. It is only ever
// called at known quiescent points (after init completes a stage, never
// concurrently with another writer for the same dir), so no locking is
// attempted.
func Save(dir string, d *model.Descriptor) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}
	if err := os.WriteFile(Path(dir), data, 0644); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}
	return nil
}

// Load reads and parses the descriptor from dir. A missing descriptor
// means this tool has no view of a deployment there.
func Load(dir string) (*model.Descriptor, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	var d model.Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse descriptor: %w", err)
	}
	return &d, nil
}
