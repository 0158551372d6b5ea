// Package normalize reduces raw scheme names to canonical parent keys.
//
// Plan/option variants of the same underlying product (Direct/Regular ×
// Growth/IDCW, payout frequencies, investor classes) differ only in a known
// vocabulary of tokens and qualifiers. Stripping that vocabulary and
// normalizing punctuation leaves the parent product identity; grouping is
// exact string equality on the result, never fuzzy.
package normalize

import (
	"regexp"
	"strings"
)

// Rule is a single normalization step: a pattern and its replacement.
// Rules are applied in order; the vocabulary lives here so it can be unit
// tested in isolation and extended without touching the pipeline.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// planOptionTokens is the plan/option vocabulary removed as whole words,
// case-insensitively. Longer phrases come first so they match as a unit.
const planOptionTokens = `direct plan|regular plan|direct|regular|plan|option|growth|idcw|dividend reinvestment|dividend|div|reinvestment|monthly|quarterly|annual|fortnightly|weekly|institutional|inst|super institutional|sub-plan|sub plan|retail|payout|bonus`

var rules = []Rule{
	{
		Name:        "separators_to_hyphen",
		Pattern:     regexp.MustCompile(`[/|` + "•" + `]+`),
		Replacement: "-",
	},
	{
		Name:        "idcw_payout_phrases",
		Pattern:     regexp.MustCompile(`(?i)\b(payout of income distribution cum capital withdrawal|payout of income distribution|income distribution cum capital withdrawal)\b`),
		Replacement: " ",
	},
	{
		Name:        "bracketed_qualifiers",
		Pattern:     regexp.MustCompile(`[(\[{][^)\]}]*[)\]}]`),
		Replacement: " ",
	},
	{
		Name:        "plan_option_tokens",
		Pattern:     regexp.MustCompile(`(?i)\b(?:` + planOptionTokens + `)\b`),
		Replacement: " ",
	},
	{
		Name:        "collapse_hyphens",
		Pattern:     regexp.MustCompile(`-{2,}`),
		Replacement: "-",
	},
	{
		Name:        "space_hyphens",
		Pattern:     regexp.MustCompile(`\s*-\s*`),
		Replacement: " - ",
	},
	{
		Name:        "collapse_spaces",
		Pattern:     regexp.MustCompile(`\s{2,}`),
		Replacement: " ",
	},
	{
		Name:        "trim_edges",
		Pattern:     regexp.MustCompile(`(^[\s\-:]+|[\s\-:]+$)`),
		Replacement: "",
	},
	{
		Name:        "list_punctuation",
		Pattern:     regexp.MustCompile(`[,;:]+`),
		Replacement: " ",
	},
	{
		Name:        "residual_punctuation",
		Pattern:     regexp.MustCompile(`[.'"/()\[\]:]+`),
		Replacement: " ",
	},
}

// Rules returns the ordered rule list.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Normalize reduces a raw scheme name to its canonical parent key.
// Deterministic, no I/O. Returns "" for names that are nothing but
// plan/option vocabulary; callers fall back to the lowercased raw name.
func Normalize(name string) string {
	if name == "" {
		return ""
	}

	s := name
	for _, r := range rules {
		s = r.Pattern.ReplaceAllString(s, r.Replacement)
	}

	// Collapse whitespace and lowercase for the final key
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ToLower(s)

	// The hyphen spacing rule can leave a bare trailing/leading hyphen
	s = strings.Trim(s, "- ")

	return s
}

// Simple lowercases a name and collapses internal whitespace. This is the
// master-map key: variants stay distinct, only formatting is unified.
func Simple(name string) string {
	if name == "" {
		return ""
	}
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
