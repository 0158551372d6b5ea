package masterlist

import (
	"sort"
	"strings"

	"fundlens/internal/normalize"
)

// Group buckets every scheme in the directory under its normalized parent
// key. Grouping runs over the full directory, not just active codes, so a
// parent's plan inventory is complete even when some plans are dormant.
//
// Names that normalize to nothing (pure plan/option token soup) fall back
// to the lowercased raw name so the scheme is never silently dropped.
// Entries within a group are ordered by code for deterministic output.
func Group(directory map[string]string) map[string][]Entry {
	groups := make(map[string][]Entry)
	for code, name := range directory {
		key := normalize.Normalize(name)
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(name))
		}
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], Entry{Code: code, Name: name})
	}
	for key := range groups {
		sort.Slice(groups[key], func(i, j int) bool {
			return groups[key][i].Code < groups[key][j].Code
		})
	}
	return groups
}

// SortedKeys returns the parent keys in lexical order.
func SortedKeys(groups map[string][]Entry) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
