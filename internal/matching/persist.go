package matching

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

const (
	definiteFileName = "definite.json"
	cacheFileName    = "cache.json"
)

// FileCheckpoint persists matching State to definite.json and cache.json
// inside a directory after every user step.
type FileCheckpoint struct {
	Dir string
}

// Save writes both the definite-only summary and the full cache.
func (f FileCheckpoint) Save(s *State) error {
	if err := writeDefinite(filepath.Join(f.Dir, definiteFileName), s); err != nil {
		return err
	}
	return writeCache(filepath.Join(f.Dir, cacheFileName), s)
}

func writeDefinite(path string, s *State) error {
	b, err := json.MarshalIndent(s.Definite, "", "  ")
	if err != nil {
		return fmt.Errorf("matching: marshal definite: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("matching: write %s: %w", path, err)
	}
	return nil
}

func writeCache(path string, s *State) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("matching: marshal cache: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("matching: write %s: %w", path, err)
	}
	return nil
}

// LoadCache reads a previously checkpointed cache.json from dir, letting a
// depth sweep resume mid-run.
func LoadCache(dir string) (*State, error) {
	b, err := os.ReadFile(filepath.Join(dir, cacheFileName))
	if err != nil {
		return nil, fmt.Errorf("matching: read cache: %w", err)
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("matching: unmarshal cache: %w", err)
	}
	if s.Definite == nil {
		s.Definite = make(map[int64]model.Address)
	}
	if s.Pending == nil {
		s.Pending = make(map[int64]*Candidates)
	}
	return &s, nil
}
