// Package masterlist builds the investable-scheme master map and the parent
// product grouping with per-parent representatives.
package masterlist

// Entry is one plan-level scheme inside a parent group.
type Entry struct {
	Code string
	Name string
}

// Representative selection reasons, in cascade order.
const (
	ReasonDirectGrowth     = "direct_growth"
	ReasonDirect           = "direct"
	ReasonRegularGrowth    = "regular_growth"
	ReasonHighestAUMCached = "highest_aum_cached"
	ReasonHighestAUMLive   = "highest_aum_live"
	ReasonFirstFallback    = "first_fallback"
	ReasonEmpty            = "empty"
)

// Representative is the single child scheme chosen to stand in for a parent
// product. Score is monotonic within one parent's candidate set only; it is
// a diagnostic ranking, not comparable across parents.
type Representative struct {
	Code   string
	Name   string
	Reason string
	Score  float64
}

// IsZero reports whether no representative could be chosen (empty group).
func (r Representative) IsZero() bool {
	return r.Code == ""
}

// Classification is the outcome of the activity check for one scheme code.
type Classification struct {
	Code    string
	Active  bool
	Details map[string]any
	Quote   map[string]any
}
