package congestion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileSnapshot stores the cache table as a single JSON file, mapping each
// quantized key to a [currentSpeed, freeFlowSpeed] pair. The file is
// rewritten wholesale on each flush via a temp file and atomic rename.
type FileSnapshot struct {
	path string
}

func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{path: path}
}

// Load reads the snapshot file. A missing file is an empty cache, not an
// error.
func (fs *FileSnapshot) Load() (map[string]Speeds, error) {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return map[string]Speeds{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache snapshot: %w", err)
	}

	var raw map[string][2]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse cache snapshot: %w", err)
	}

	entries := make(map[string]Speeds, len(raw))
	for k, pair := range raw {
		entries[k] = Speeds{Current: pair[0], FreeFlow: pair[1]}
	}
	return entries, nil
}

// Store atomically replaces the snapshot file with the given table.
func (fs *FileSnapshot) Store(entries map[string]Speeds) error {
	raw := make(map[string][2]float64, len(entries))
	for k, s := range entries {
		raw[k] = [2]float64{s.Current, s.FreeFlow}
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal cache snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".cache_*.json")
	if err != nil {
		return fmt.Errorf("failed to create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot temp file: %w", err)
	}

	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}
