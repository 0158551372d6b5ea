// Package navcache caches historical NAV series as one JSON file per scheme
// code, refreshing from the provider when the file is stale or too thin.
package navcache

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Point is one dated NAV observation.
type Point struct {
	Date time.Time
	Nav  float64
}

// Series is an ascending, date-deduplicated NAV history.
type Series []Point

// First returns the earliest point. Callers must check Len first.
func (s Series) First() Point { return s[0] }

// Last returns the latest point. Callers must check Len first.
func (s Series) Last() Point { return s[len(s)-1] }

// Navs returns just the NAV column.
func (s Series) Navs() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Nav
	}
	return out
}

// Years is the calendar span of the series in fractional years.
func (s Series) Years() float64 {
	if len(s) < 2 {
		return 0
	}
	return s.Last().Date.Sub(s.First().Date).Hours() / 24 / 365
}

const (
	wireDateLayout = "02-01-2006"
	fileDateLayout = "2006-01-02"
)

// filePoint is the on-disk shape of one observation.
type filePoint struct {
	Date string  `json:"date"`
	Nav  float64 `json:"nav"`
}

// recordPayload is the provider's record-list history shape.
type recordPayload struct {
	Data []struct {
		Date string `json:"date"`
		Nav  any    `json:"nav"`
	} `json:"data"`
}

// tabularPayload is the provider's columns/rows history shape.
type tabularPayload struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ParseSeries decodes a raw history payload in either the record-list or
// the tabular shape. Rows with unparseable dates or non-positive NAVs are
// dropped; the result is sorted ascending and deduplicated by date. An
// empty payload parses to an empty series, not an error.
func ParseSeries(raw json.RawMessage) Series {
	if len(raw) == 0 {
		return nil
	}

	var points []Point

	var records recordPayload
	if err := json.Unmarshal(raw, &records); err == nil && len(records.Data) > 0 {
		for _, rec := range records.Data {
			if p, ok := makePoint(rec.Date, rec.Nav); ok {
				points = append(points, p)
			}
		}
		return normalizeSeries(points)
	}

	var table tabularPayload
	if err := json.Unmarshal(raw, &table); err == nil && len(table.Columns) >= 2 {
		dateCol, navCol := columnIndexes(table.Columns)
		if dateCol < 0 || navCol < 0 {
			return nil
		}
		for _, row := range table.Rows {
			if len(row) <= dateCol || len(row) <= navCol {
				continue
			}
			date, _ := row[dateCol].(string)
			if p, ok := makePoint(date, row[navCol]); ok {
				points = append(points, p)
			}
		}
		return normalizeSeries(points)
	}

	return nil
}

func columnIndexes(columns []string) (dateCol, navCol int) {
	dateCol, navCol = -1, -1
	for i, c := range columns {
		switch strings.ToLower(strings.TrimSpace(c)) {
		case "date":
			dateCol = i
		case "nav":
			navCol = i
		}
	}
	return dateCol, navCol
}

func makePoint(date string, nav any) (Point, bool) {
	t, err := time.Parse(wireDateLayout, strings.TrimSpace(date))
	if err != nil {
		t, err = time.Parse(fileDateLayout, strings.TrimSpace(date))
		if err != nil {
			return Point{}, false
		}
	}
	v, ok := toFloat(nav)
	if !ok || v <= 0 {
		return Point{}, false
	}
	return Point{Date: t, Nav: v}, true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(x), ",", ""), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// normalizeSeries sorts ascending and keeps the first observation per date.
func normalizeSeries(points []Point) Series {
	if len(points) == 0 {
		return nil
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	out := points[:1]
	for _, p := range points[1:] {
		if !p.Date.Equal(out[len(out)-1].Date) {
			out = append(out, p)
		}
	}
	return out
}
