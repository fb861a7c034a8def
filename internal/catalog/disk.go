package catalog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	diskFileName = "catalog.json.gz"
	// diskFormatVersion guards against reading a snapshot written by an
	// incompatible build.
	diskFormatVersion = 2
	// maxSnapshotAge is how old an on-disk snapshot may be before startup
	// ignores it and waits for a live populate instead.
	maxSnapshotAge = 7 * 24 * time.Hour
)

// diskSnapshot is the persisted catalog: the flat list plus the by-name
// index, wrapped in a small version header.
type diskSnapshot struct {
	Version int               `json:"version"`
	SavedAt time.Time         `json:"saved_at"`
	Items   []Item            `json:"items"`
	ByName  map[string]string `json:"by_name"`
}

// LoadFromDisk restores the cache from the persisted snapshot if one
// exists, parses, and is younger than maxSnapshotAge. Returns true when
// the cache came up populated.
func (c *Cache) LoadFromDisk() bool {
	path := filepath.Join(c.dir, diskFileName)
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn().Err(err).Str("path", path).Msg("opening catalog snapshot")
		}
		return false
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		c.log.Warn().Err(err).Msg("catalog snapshot is not valid gzip, ignoring")
		return false
	}
	defer gz.Close()

	var snap diskSnapshot
	if err := json.NewDecoder(gz).Decode(&snap); err != nil {
		c.log.Warn().Err(err).Msg("catalog snapshot is corrupt, ignoring")
		return false
	}
	if snap.Version != diskFormatVersion {
		c.log.Info().Int("found", snap.Version).Int("want", diskFormatVersion).
			Msg("catalog snapshot format mismatch, ignoring")
		return false
	}
	if age := time.Since(snap.SavedAt); age > maxSnapshotAge {
		c.log.Info().Dur("age", age).Msg("catalog snapshot too old, ignoring")
		return false
	}
	if len(snap.Items) == 0 {
		return false
	}

	c.commit(snap.Items)
	c.log.Info().Int("items", len(snap.Items)).Msg("catalog restored from disk")
	return true
}

// saveToDisk writes the current indices atomically: temp file in the same
// directory, fsync-free rename over the target.
func (c *Cache) saveToDisk() error {
	c.mu.Lock()
	snap := diskSnapshot{
		Version: diskFormatVersion,
		SavedAt: time.Now(),
		Items:   append([]Item{}, c.items...),
		ByName:  make(map[string]string, len(c.byName)),
	}
	for k, v := range c.byName {
		snap.ByName[k] = v
	}
	c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating catalog directory %s: %w", c.dir, err)
	}

	tmp, err := os.CreateTemp(c.dir, diskFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating catalog temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	gz := gzip.NewWriter(tmp)
	if err := json.NewEncoder(gz).Encode(snap); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encoding catalog snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("finishing catalog gzip stream: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing catalog temp file: %w", err)
	}

	target := filepath.Join(c.dir, diskFileName)
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("replacing catalog snapshot: %w", err)
	}
	return nil
}
