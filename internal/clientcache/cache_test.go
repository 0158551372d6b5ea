package clientcache

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	repo := NewRepository(setupTestDB(t))
	return NewCache("scheme_quotes", TTLQuotes, repo, zerolog.Nop())
}

func TestGetOrFetch_FetchesOnceThenServesMemory(t *testing.T) {
	cache := newTestCache(t)

	fetches := 0
	fetch := func(code string) (map[string]any, error) {
		fetches++
		return map[string]any{"nav": "42.5"}, nil
	}

	payload, err := cache.GetOrFetch("100033", fetch)
	require.NoError(t, err)
	assert.Equal(t, "42.5", payload["nav"])

	payload, err = cache.GetOrFetch("100033", fetch)
	require.NoError(t, err)
	assert.Equal(t, "42.5", payload["nav"])

	assert.Equal(t, 1, fetches, "second read must hit the in-memory cache")
}

func TestGetOrFetch_FailedFetchCachesEmptyPayload(t *testing.T) {
	cache := newTestCache(t)

	fetches := 0
	fetch := func(code string) (map[string]any, error) {
		fetches++
		return nil, errors.New("provider down")
	}

	payload, err := cache.GetOrFetch("100033", fetch)
	assert.Error(t, err)
	assert.Empty(t, payload)

	// The failure is cached; the code is not retried within the run
	_, err = cache.GetOrFetch("100033", fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)
}

func TestCheckpoint_FlushesDirtyEntries(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	cache := NewCache("scheme_quotes", TTLQuotes, repo, zerolog.Nop())

	cache.Put("100033", map[string]any{"nav": "1.0"})
	cache.Put("100034", map[string]any{"nav": "2.0"})

	require.NoError(t, cache.Checkpoint())

	fresh, err := repo.LoadFresh("scheme_quotes")
	require.NoError(t, err)
	assert.Len(t, fresh, 2)

	// Nothing dirty left; a second checkpoint is a no-op
	require.NoError(t, cache.Checkpoint())
}

func TestLoad_WarmsFromDisk(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	first := NewCache("scheme_quotes", TTLQuotes, repo, zerolog.Nop())
	first.Put("100033", map[string]any{"nav": "7.7"})
	require.NoError(t, first.Checkpoint())

	second := NewCache("scheme_quotes", TTLQuotes, repo, zerolog.Nop())
	require.NoError(t, second.Load())

	payload, ok := second.Get("100033")
	require.True(t, ok)
	assert.Equal(t, "7.7", payload["nav"])
}

func TestInvalidate(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	cache := NewCache("scheme_quotes", TTLQuotes, repo, zerolog.Nop())

	cache.Put("100033", map[string]any{"nav": "1.0"})
	require.NoError(t, cache.Checkpoint())

	require.NoError(t, cache.Invalidate("100033"))

	_, ok := cache.Get("100033")
	assert.False(t, ok)

	raw, err := repo.GetIfFresh("scheme_quotes", "100033")
	require.NoError(t, err)
	assert.Nil(t, raw)
}
