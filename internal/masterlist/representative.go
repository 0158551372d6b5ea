package masterlist

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"fundlens/internal/clientcache"
	"fundlens/internal/provider"
)

var (
	tokenDirect   = wordToken("direct")
	tokenRegular  = wordToken("regular")
	tokenGrowth   = wordToken("growth")
	tokenIDCW     = wordToken("idcw")
	tokenDividend = wordToken("dividend")
)

func wordToken(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
}

var aumKeys = []string{
	"aum", "AUM", "asset_under_management", "assets_under_management",
	"scheme_aum", "fund_size",
}

// Selector picks the canonical child scheme for a parent group. AUM tie
// breaking prefers cached quotes so a rebuild does not hammer the provider;
// live lookups fire only when nothing usable is cached.
type Selector struct {
	provider provider.Provider
	quotes   *clientcache.Cache
	log      zerolog.Logger
}

// NewSelector creates a representative selector.
func NewSelector(p provider.Provider, quotes *clientcache.Cache, log zerolog.Logger) *Selector {
	return &Selector{
		provider: p,
		quotes:   quotes,
		log:      log.With().Str("component", "masterlist_selector").Logger(),
	}
}

// Choose applies the selection cascade over the group's entries: a direct
// plan that is growth-flavored (or at least not a payout plan), then any
// direct plan, then regular+growth, then highest AUM from cached quotes,
// then highest AUM from live quotes, then the first entry as a last
// resort. An empty group yields a zero Representative with reason "empty".
func (s *Selector) Choose(entries []Entry) Representative {
	if len(entries) == 0 {
		return Representative{Reason: ReasonEmpty}
	}

	for _, e := range entries {
		if tokenDirect.MatchString(e.Name) &&
			(tokenGrowth.MatchString(e.Name) ||
				(!tokenIDCW.MatchString(e.Name) && !tokenDividend.MatchString(e.Name))) {
			return Representative{Code: e.Code, Name: e.Name, Reason: ReasonDirectGrowth, Score: 100}
		}
	}
	for _, e := range entries {
		if tokenDirect.MatchString(e.Name) {
			return Representative{Code: e.Code, Name: e.Name, Reason: ReasonDirect, Score: 80}
		}
	}
	for _, e := range entries {
		if tokenRegular.MatchString(e.Name) && tokenGrowth.MatchString(e.Name) {
			return Representative{Code: e.Code, Name: e.Name, Reason: ReasonRegularGrowth, Score: 60}
		}
	}

	if rep, ok := s.bestByAUM(entries, s.cachedQuote); ok {
		rep.Reason = ReasonHighestAUMCached
		return rep
	}
	if rep, ok := s.bestByAUM(entries, s.liveQuote); ok {
		rep.Reason = ReasonHighestAUMLive
		return rep
	}

	first := entries[0]
	return Representative{Code: first.Code, Name: first.Name, Reason: ReasonFirstFallback, Score: 10}
}

func (s *Selector) bestByAUM(entries []Entry, lookup func(code string) map[string]any) (Representative, bool) {
	best := Representative{Score: -1}
	found := false
	for _, e := range entries {
		quote := lookup(e.Code)
		if quote == nil {
			continue
		}
		aum := extractAUM(quote)
		if aum > best.Score {
			best = Representative{Code: e.Code, Name: e.Name, Score: aum}
			found = true
		}
	}
	return best, found
}

func (s *Selector) cachedQuote(code string) map[string]any {
	quote, ok := s.quotes.Get(code)
	if !ok {
		return nil
	}
	return quote
}

func (s *Selector) liveQuote(code string) map[string]any {
	quote, err := s.quotes.GetOrFetch(code, s.provider.GetQuote)
	if err != nil {
		s.log.Debug().Err(err).Str("code", code).Msg("Live quote lookup failed")
		return nil
	}
	return quote
}

// extractAUM pulls a numeric AUM from a quote payload, tolerating thousand
// separators and stray unit suffixes. Missing or unparseable values count
// as zero so a scheme with any reported AUM beats one with none.
func extractAUM(quote map[string]any) float64 {
	for _, key := range aumKeys {
		raw, ok := quote[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return v
		case string:
			cleaned := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
			cleaned = strings.TrimSuffix(cleaned, "%")
			if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
				return f
			}
		}
	}
	return 0
}
