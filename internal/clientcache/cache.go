package clientcache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Cache is an in-memory read-through cache over one client cache table.
//
// Many filter workers share a single Cache. Reads hit memory first, then the
// database, then the fetch function; writes stay in memory and are flushed to
// the database in one transaction by Checkpoint. A per-key last-writer-wins
// race between workers is tolerated: every worker writes the same
// deterministic payload for a given code.
type Cache struct {
	table string
	ttl   time.Duration
	repo  *Repository
	log   zerolog.Logger

	mu    sync.RWMutex
	mem   map[string]json.RawMessage
	dirty map[string]struct{}
}

// NewCache creates a cache over the given table.
func NewCache(table string, ttl time.Duration, repo *Repository, log zerolog.Logger) *Cache {
	return &Cache{
		table: table,
		ttl:   ttl,
		repo:  repo,
		log:   log.With().Str("component", "clientcache").Str("table", table).Logger(),
		mem:   make(map[string]json.RawMessage),
		dirty: make(map[string]struct{}),
	}
}

// Load warms the in-memory cache with all unexpired rows.
func (c *Cache) Load() error {
	fresh, err := c.repo.LoadFresh(c.table)
	if err != nil {
		return err
	}

	c.mu.Lock()
	for code, data := range fresh {
		c.mem[code] = data
	}
	loaded := len(c.mem)
	c.mu.Unlock()

	c.log.Info().Int("entries", loaded).Msg("Warmed cache from disk")
	return nil
}

// Get returns the cached payload for a code, if present in memory.
func (c *Cache) Get(code string) (map[string]any, bool) {
	c.mu.RLock()
	raw, ok := c.mem[code]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	return payload, true
}

// Put stores a payload in memory and marks it dirty for the next checkpoint.
func (c *Cache) Put(code string, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		c.log.Warn().Err(err).Str("code", code).Msg("Failed to marshal payload")
		return
	}

	c.mu.Lock()
	c.mem[code] = raw
	c.dirty[code] = struct{}{}
	c.mu.Unlock()
}

// GetOrFetch returns the cached payload for a code, falling back to the
// database and then the fetch function. A failed fetch caches an empty
// payload (so the batch does not retry the code) and reports the error.
func (c *Cache) GetOrFetch(code string, fetch func(string) (map[string]any, error)) (map[string]any, error) {
	if payload, ok := c.Get(code); ok {
		return payload, nil
	}

	// Not in memory; check the durable table before going to the network
	if raw, err := c.repo.GetIfFresh(c.table, code); err == nil && raw != nil {
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err == nil {
			c.mu.Lock()
			c.mem[code] = raw
			c.mu.Unlock()
			return payload, nil
		}
	}

	payload, err := fetch(code)
	if err != nil {
		c.Put(code, map[string]any{})
		return map[string]any{}, err
	}
	if payload == nil {
		payload = map[string]any{}
	}

	c.Put(code, payload)
	return payload, nil
}

// Invalidate drops a code from memory and from the durable table.
func (c *Cache) Invalidate(code string) error {
	c.mu.Lock()
	delete(c.mem, code)
	delete(c.dirty, code)
	c.mu.Unlock()

	return c.repo.Delete(c.table, code)
}

// Checkpoint flushes dirty entries to the durable table in one transaction.
func (c *Cache) Checkpoint() error {
	c.mu.Lock()
	if len(c.dirty) == 0 {
		c.mu.Unlock()
		return nil
	}
	batch := make(map[string]json.RawMessage, len(c.dirty))
	for code := range c.dirty {
		batch[code] = c.mem[code]
	}
	c.dirty = make(map[string]struct{})
	c.mu.Unlock()

	if err := c.repo.StoreBatch(c.table, batch, c.ttl); err != nil {
		// Re-mark as dirty so a later checkpoint retries
		c.mu.Lock()
		for code := range batch {
			c.dirty[code] = struct{}{}
		}
		c.mu.Unlock()
		return err
	}

	c.log.Debug().Int("entries", len(batch)).Msg("Checkpointed cache")
	return nil
}

// Size returns the number of in-memory entries.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mem)
}
