// Package clientcache provides persistent caching for provider payloads.
// Detail and quote payloads are stored as JSON blobs with expiration
// timestamps; batch runs layer an in-memory read-through cache on top (see
// Cache) and flush to these tables at checkpoint intervals.
package clientcache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Schema creates the client cache tables. Owned by this package; applied via
// database.DB.Migrate at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS scheme_details (
	code       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scheme_quotes (
	code       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
`

// AllTables lists all tables in the client cache database for cleanup.
var AllTables = []string{
	"scheme_details",
	"scheme_quotes",
}

// validTables is a set for O(1) table name validation.
var validTables = func() map[string]bool {
	m := make(map[string]bool, len(AllTables))
	for _, t := range AllTables {
		m[t] = true
	}
	return m
}()

// Repository provides cache operations over the client cache tables.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new client cache repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// validateTable ensures the table name is in our allowed list.
// This prevents SQL injection through table names.
func validateTable(table string) error {
	if !validTables[table] {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}

// Store saves data with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert data.
func (r *Repository) Store(table, code string, data interface{}, ttl time.Duration) error {
	if err := validateTable(table); err != nil {
		return err
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()

	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (code, data, expires_at) VALUES (?, ?, ?)",
		table,
	)

	_, err = r.db.Exec(query, code, string(jsonData), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}

	return nil
}

// StoreBatch upserts many entries in a single transaction. Used by cache
// checkpoints so a mid-run crash loses at most one checkpoint interval.
func (r *Repository) StoreBatch(table string, entries map[string]json.RawMessage, ttl time.Duration) error {
	if err := validateTable(table); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin checkpoint transaction: %w", err)
	}
	defer tx.Rollback() // Will be no-op if Commit succeeds

	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (code, data, expires_at) VALUES (?, ?, ?)",
		table,
	))
	if err != nil {
		return fmt.Errorf("failed to prepare checkpoint statement: %w", err)
	}
	defer stmt.Close()

	expiresAt := time.Now().Add(ttl).Unix()
	for code, data := range entries {
		if _, err := stmt.Exec(code, string(data), expiresAt); err != nil {
			return fmt.Errorf("failed to checkpoint %s for %s: %w", table, code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint for %s: %w", table, err)
	}

	return nil
}

// GetIfFresh returns data only if expires_at > now, nil otherwise.
// Returns nil, nil if the key doesn't exist or data is expired.
func (r *Repository) GetIfFresh(table, code string) (json.RawMessage, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}

	now := time.Now().Unix()

	query := fmt.Sprintf(
		"SELECT data FROM %s WHERE code = ? AND expires_at > ?",
		table,
	)

	var data string
	err := r.db.QueryRow(query, code, now).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}

	return json.RawMessage(data), nil
}

// LoadFresh returns all unexpired entries in a table, keyed by code.
// Used to warm the in-memory caches before a batch run.
func (r *Repository) LoadFresh(table string) (map[string]json.RawMessage, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}

	now := time.Now().Unix()

	query := fmt.Sprintf("SELECT code, data FROM %s WHERE expires_at > ?", table)

	rows, err := r.db.Query(query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var code, data string
		if err := rows.Scan(&code, &data); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		out[code] = json.RawMessage(data)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table, err)
	}

	return out, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(table, code string) error {
	if err := validateTable(table); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE code = ?", table)

	_, err := r.db.Exec(query, code)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}

	return nil
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(table string) (int64, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}

	now := time.Now().Unix()

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table)

	result, err := r.db.Exec(query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}

	return deleted, nil
}

// DeleteAllExpired removes all expired entries from all tables.
// Returns a map of table name to number of rows deleted.
func (r *Repository) DeleteAllExpired() (map[string]int64, error) {
	results := make(map[string]int64)

	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(table)
		if err != nil {
			return results, fmt.Errorf("failed to delete expired from %s: %w", table, err)
		}
		results[table] = deleted
	}

	return results, nil
}
