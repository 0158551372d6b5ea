// Package artifacts persists pipeline outputs as JSON files under the data
// directory. Writes go through a temp file plus rename so readers never see
// a torn artifact.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Well-known artifact file names.
const (
	MasterFile        = "masterlist.json"
	ParentFile        = "parent_masterlist.json"
	MetricsByCodeFile = "metrics_by_code.json"
	ParentMetricsFile = "metrics_parent_reps.json"
)

// Store reads and writes JSON artifacts in a single directory.
type Store struct {
	dir string
	log zerolog.Logger
}

// New creates an artifact store rooted at dir, creating it if needed.
func New(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &Store{dir: dir, log: log.With().Str("component", "artifacts").Logger()}, nil
}

// Path returns the absolute path of a named artifact.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether a named artifact is present on disk.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// WriteJSON atomically replaces the named artifact with the encoding of v.
func (s *Store) WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	target := s.Path(name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}

	s.log.Debug().Str("artifact", name).Int("bytes", len(data)).Msg("Artifact written")
	return nil
}

// ReadJSON decodes the named artifact into v. A missing artifact returns
// os.ErrNotExist wrapped, so callers can distinguish absence from corruption.
func (s *Store) ReadJSON(name string, v any) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}
