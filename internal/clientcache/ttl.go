package clientcache

import "time"

// TTL constants for provider payloads.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Scheme details (type, category, fund house) rarely change
	TTLDetails = 30 * 24 * time.Hour

	// Quotes carry the last published NAV; published once per business day
	TTLQuotes = 24 * time.Hour
)
