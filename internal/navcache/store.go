package navcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"fundlens/internal/provider"
)

// Freshness is how long a cached series file is served without refetching.
const Freshness = 7 * 24 * time.Hour

// A cached series shorter than this is treated as a miss; a single point
// cannot support any return computation.
const minPoints = 2

// Store is the on-disk NAV series cache. Concurrent requests for the same
// code collapse into one provider fetch.
type Store struct {
	dir      string
	maxAge   time.Duration
	provider provider.Provider
	group    singleflight.Group
	log      zerolog.Logger
}

// New creates a series cache rooted at dir, creating it if needed.
func New(dir string, p provider.Provider, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create nav cache directory: %w", err)
	}
	return &Store{
		dir:      dir,
		maxAge:   Freshness,
		provider: p,
		log:      log.With().Str("component", "navcache").Logger(),
	}, nil
}

// Get returns the NAV series for a code, reading the cache file when it is
// fresh and usable, otherwise fetching from the provider. A provider payload
// with no usable points yields an empty series and no error.
func (s *Store) Get(code string) (Series, error) {
	if series, ok := s.readFresh(code); ok {
		return series, nil
	}

	v, err, _ := s.group.Do(code, func() (any, error) {
		// another caller may have refreshed while this one waited
		if series, ok := s.readFresh(code); ok {
			return series, nil
		}
		return s.fetch(code)
	})
	if err != nil {
		return nil, err
	}
	return v.(Series), nil
}

func (s *Store) fetch(code string) (Series, error) {
	raw, err := s.provider.GetHistoricalNav(code)
	if err != nil {
		// a stale file beats no data when the provider is down
		if series, ok := s.readAny(code); ok {
			s.log.Warn().Err(err).Str("code", code).Msg("History fetch failed, serving stale series")
			return series, nil
		}
		return nil, fmt.Errorf("failed to fetch history for %s: %w", code, err)
	}

	series := ParseSeries(raw)
	if len(series) == 0 {
		s.log.Debug().Str("code", code).Msg("History payload had no usable points")
		return nil, nil
	}

	if err := s.write(code, series); err != nil {
		s.log.Warn().Err(err).Str("code", code).Msg("Failed to persist series file")
	}
	return series, nil
}

func (s *Store) path(code string) string {
	return filepath.Join(s.dir, code+".json")
}

func (s *Store) readFresh(code string) (Series, bool) {
	info, err := os.Stat(s.path(code))
	if err != nil || time.Since(info.ModTime()) > s.maxAge {
		return nil, false
	}
	return s.readAny(code)
}

func (s *Store) readAny(code string) (Series, bool) {
	data, err := os.ReadFile(s.path(code))
	if err != nil {
		return nil, false
	}
	var pts []filePoint
	if err := json.Unmarshal(data, &pts); err != nil {
		s.log.Warn().Err(err).Str("code", code).Msg("Corrupt series file, will refetch")
		return nil, false
	}

	series := make(Series, 0, len(pts))
	for _, p := range pts {
		t, err := time.Parse(fileDateLayout, p.Date)
		if err != nil || p.Nav <= 0 {
			continue
		}
		series = append(series, Point{Date: t, Nav: p.Nav})
	}
	series = normalizeSeries(series)
	if len(series) < minPoints {
		return nil, false
	}
	return series, true
}

func (s *Store) write(code string, series Series) error {
	pts := make([]filePoint, len(series))
	for i, p := range series {
		pts[i] = filePoint{Date: p.Date.Format(fileDateLayout), Nav: p.Nav}
	}
	data, err := json.Marshal(pts)
	if err != nil {
		return fmt.Errorf("failed to encode series: %w", err)
	}

	target := s.path(code)
	tmp, err := os.CreateTemp(s.dir, code+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp series file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write series file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close series file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace series file: %w", err)
	}
	return nil
}
