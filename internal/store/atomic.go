package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"NewsCurator/internal/domain"
)

// WriteFileAtomic writes data to a temporary sibling of path and renames it into
// place, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// Overviews maps a tier to the handle of its live overview message.
type Overviews map[domain.Status]string

// LoadOverviews reads the overview handles; a missing file is empty.
func LoadOverviews(path string) (Overviews, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Overviews{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read overviews %s: %w", path, err)
	}
	out := Overviews{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode overviews %s: %w", path, err)
	}
	return out, nil
}

// SaveOverviews persists non-empty overview handles.
func SaveOverviews(path string, overviews Overviews) error {
	clean := Overviews{}
	for tier, handle := range overviews {
		if handle != "" {
			clean[tier] = handle
		}
	}
	raw, err := json.MarshalIndent(clean, "", "  ")
	if err != nil {
		return fmt.Errorf("encode overviews: %w", err)
	}
	return WriteFileAtomic(path, raw)
}
