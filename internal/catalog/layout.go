// Package catalog reads the on-disk recipe catalogs and merges them into a
// single raw recipe map.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File names inside the data directory.
const (
	BaseFile        = "forging.json"
	LegacyFile      = "gemstone_recipes.json"
	RemoteFile      = "recipes_remote.json"
	RemoteForgeFile = "recipes_remote_forge.json"
	SourcesFile     = "remote_sources.json"
	SourcesMetaFile = "remote_sources_meta.json"
)

// DefaultNEUSource is the community item repository archive used when no
// remote sources are configured.
const DefaultNEUSource = "https://codeload.github.com/NotEnoughUpdates/NotEnoughUpdates-REPO/zip/refs/heads/master"

// Layout locates the catalog files under a data directory.
type Layout struct {
	DataDir string
}

// Path returns the absolute path of a file in the data directory.
func (l Layout) Path(name string) string {
	return filepath.Join(l.DataDir, name)
}

// CatalogFiles returns the four recipe catalog file names in merge
// precedence order.
func CatalogFiles() []string {
	return []string{BaseFile, LegacyFile, RemoteFile, RemoteForgeFile}
}

// RemoteSource is one entry of remote_sources.json.
type RemoteSource struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// SourcesConfig is the content of remote_sources.json.
type SourcesConfig struct {
	Sources []RemoteSource `json:"sources"`
}

// DefaultSources returns the configuration written on first start.
func DefaultSources() SourcesConfig {
	return SourcesConfig{Sources: []RemoteSource{{Type: "neu-zip", URL: DefaultNEUSource}}}
}

// Bootstrap creates the data directory and writes a default
// remote_sources.json when none exists. Existing files are never touched.
func (l Layout) Bootstrap() error {
	if err := os.MkdirAll(l.DataDir, 0o755); err != nil {
		return fmt.Errorf("catalog: create data dir: %w", err)
	}
	path := l.Path(SourcesFile)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("catalog: stat %s: %w", SourcesFile, err)
	}

	data, err := json.MarshalIndent(DefaultSources(), "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: marshal default sources: %w", err)
	}
	return WriteFileAtomic(path, append(data, '\n'))
}

// ReadSources loads remote_sources.json. A missing or empty file yields an
// empty configuration.
func (l Layout) ReadSources() (SourcesConfig, error) {
	var cfg SourcesConfig
	data, err := os.ReadFile(l.Path(SourcesFile))
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(data) == 0) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("catalog: read %s: %w", SourcesFile, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("catalog: parse %s: %w", SourcesFile, err)
	}
	return cfg, nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it into
// place, so readers never observe a half-written catalog.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
