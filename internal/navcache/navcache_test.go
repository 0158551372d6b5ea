package navcache

import (
	"encoding/json"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	payload json.RawMessage
	err     error
	calls   atomic.Int64
}

func (f *fakeHistory) ListCodes() (map[string]string, error)        { return nil, nil }
func (f *fakeHistory) GetDetails(string) (map[string]any, error)    { return nil, nil }
func (f *fakeHistory) GetQuote(string) (map[string]any, error)      { return nil, nil }
func (f *fakeHistory) GetHistoricalNav(string) (json.RawMessage, error) {
	f.calls.Add(1)
	return f.payload, f.err
}

func newTestStore(t *testing.T, p *fakeHistory) *Store {
	store, err := New(t.TempDir(), p, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestParseSeries_RecordListShape(t *testing.T) {
	raw := json.RawMessage(`{"data":[
		{"date":"03-01-2026","nav":"102.5"},
		{"date":"01-01-2026","nav":"100.0"},
		{"date":"02-01-2026","nav":"101.25"},
		{"date":"02-01-2026","nav":"999.0"},
		{"date":"bad-date","nav":"5.0"},
		{"date":"04-01-2026","nav":"0"}
	]}`)

	series := ParseSeries(raw)
	require.Len(t, series, 3, "dupes, bad dates and non-positive NAVs are dropped")
	assert.Equal(t, 100.0, series[0].Nav)
	assert.Equal(t, 101.25, series[1].Nav, "first observation wins on duplicate dates")
	assert.Equal(t, 102.5, series[2].Nav)
	assert.True(t, series[0].Date.Before(series[1].Date))
}

func TestParseSeries_TabularShape(t *testing.T) {
	raw := json.RawMessage(`{"columns":["date","nav"],"rows":[
		["02-01-2026",101.0],
		["01-01-2026","100.0"]
	]}`)

	series := ParseSeries(raw)
	require.Len(t, series, 2)
	assert.Equal(t, 100.0, series[0].Nav)
	assert.Equal(t, 101.0, series[1].Nav)
}

func TestParseSeries_EmptyAndGarbage(t *testing.T) {
	assert.Empty(t, ParseSeries(nil))
	assert.Empty(t, ParseSeries(json.RawMessage(`{"data":[]}`)))
	assert.Empty(t, ParseSeries(json.RawMessage(`"nonsense"`)))
}

func TestGet_FetchesThenServesFile(t *testing.T) {
	p := &fakeHistory{payload: json.RawMessage(`{"data":[
		{"date":"01-01-2026","nav":"100.0"},
		{"date":"02-01-2026","nav":"101.0"}
	]}`)}
	store := newTestStore(t, p)

	series, err := store.Get("100033")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, int64(1), p.calls.Load())

	series, err = store.Get("100033")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, int64(1), p.calls.Load(), "fresh file must be served without a fetch")
}

func TestGet_SinglePointCacheIsAMiss(t *testing.T) {
	p := &fakeHistory{payload: json.RawMessage(`{"data":[
		{"date":"01-01-2026","nav":"100.0"},
		{"date":"02-01-2026","nav":"101.0"}
	]}`)}
	store := newTestStore(t, p)

	// seed a one-point file; it must be refetched, not served
	require.NoError(t, store.write("100033", Series{{Date: time.Now(), Nav: 50}}))

	series, err := store.Get("100033")
	require.NoError(t, err)
	assert.Len(t, series, 2)
	assert.Equal(t, int64(1), p.calls.Load())
}

func TestGet_EmptyPayloadIsNotAnError(t *testing.T) {
	p := &fakeHistory{payload: json.RawMessage(`{"data":[]}`)}
	store := newTestStore(t, p)

	series, err := store.Get("100033")
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestGet_FetchErrorServesStaleFile(t *testing.T) {
	p := &fakeHistory{payload: json.RawMessage(`{"data":[
		{"date":"01-01-2026","nav":"100.0"},
		{"date":"02-01-2026","nav":"101.0"}
	]}`)}
	store := newTestStore(t, p)

	_, err := store.Get("100033")
	require.NoError(t, err)

	// age the file past freshness and break the provider
	old := time.Now().Add(-8 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(store.path("100033"), old, old))
	p.err = errors.New("provider down")

	series, err := store.Get("100033")
	require.NoError(t, err)
	assert.Len(t, series, 2)
}

func TestGet_FetchErrorWithoutFileFails(t *testing.T) {
	p := &fakeHistory{err: errors.New("provider down")}
	store := newTestStore(t, p)

	_, err := store.Get("100033")
	assert.Error(t, err)
}

func TestSeriesYears(t *testing.T) {
	s := Series{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Nav: 100},
		{Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Nav: 121},
	}
	assert.InDelta(t, 2.0, s.Years(), 0.01)
	assert.Empty(t, Series{{Nav: 1}}.Years())
}
