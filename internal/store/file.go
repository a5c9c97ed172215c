package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LoadFile reads a snapshot from path, reading zone-less timestamps in loc.
func LoadFile(path string, loc *time.Location) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()
	return ReadSnapshot(f, loc)
}

// SaveFile writes s to path atomically (temp file + rename), creating the
// parent directory when needed.
func SaveFile(path string, s Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".courtboard-snapshot-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := WriteSnapshot(tmp, s); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
