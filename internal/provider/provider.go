// Package provider defines the market-data provider boundary.
//
// The core pipeline only ever assumes four operations: enumerate the scheme
// directory, fetch per-scheme details, fetch the latest quote, and fetch the
// historical NAV series. The transport behind them is an implementation
// detail; a single client is constructed at startup and injected into every
// component that needs it.
package provider

import "encoding/json"

// Provider is the upstream market-data interface.
type Provider interface {
	// ListCodes returns the full scheme directory as code -> raw display name.
	ListCodes() (map[string]string, error)

	// GetDetails returns the detail payload for a scheme code.
	GetDetails(code string) (map[string]any, error)

	// GetQuote returns the latest quote payload for a scheme code.
	GetQuote(code string) (map[string]any, error)

	// GetHistoricalNav returns the raw historical NAV payload. The response
	// may be in either the record-list or the tabular shape; callers
	// normalize it (see navcache.ParseSeries).
	GetHistoricalNav(code string) (json.RawMessage, error)
}

// StringField returns the first non-empty string value among the given keys.
// Provider payloads are loosely typed, so numeric values are also accepted
// and are ignored here (callers that need numbers coerce separately).
func StringField(payload map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := payload[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
