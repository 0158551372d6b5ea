package masterlist

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fundlens/internal/clientcache"
	"fundlens/internal/provider"
)

// navFreshness is how recent the latest NAV date must be for a scheme to
// count as active. Closed or merged schemes keep their stale last NAV
// forever, so anything older than this is treated as dead.
const navFreshness = 30 * 24 * time.Hour

var closedTypeMarkers = []string{
	"closed ended", "close ended", "close-end", "closed-end", "closed", "maturity",
}

var openTypeMarkers = []string{
	"open", "open ended", "open-ended", "etf", "exchange traded", "index",
	"liquid", "equity", "debt", "hybrid", "interval", "fund of funds",
}

var detailNavKeys = []string{"nav", "nav_value", "nav_val", "latest_nav"}

var navDateKeys = []string{"last_updated", "nav_date", "date", "last_updated_date"}

// Filter decides whether a scheme code is an active, investable open-ended
// scheme. Lookups go through the durable payload caches so a full-universe
// sweep only hits the provider for cold codes.
type Filter struct {
	provider provider.Provider
	details  *clientcache.Cache
	quotes   *clientcache.Cache
	now      func() time.Time
	log      zerolog.Logger
}

// NewFilter creates an activity filter backed by the given provider and caches.
func NewFilter(p provider.Provider, details, quotes *clientcache.Cache, log zerolog.Logger) *Filter {
	return &Filter{
		provider: p,
		details:  details,
		quotes:   quotes,
		now:      time.Now,
		log:      log.With().Str("component", "masterlist_filter").Logger(),
	}
}

// Classify runs the activity checks for one code. Provider failures are not
// errors at this level: a code whose payloads cannot be fetched is simply
// inactive this run and will be retried on the next build.
func (f *Filter) Classify(code string) Classification {
	out := Classification{Code: code}

	details, err := f.details.GetOrFetch(code, f.provider.GetDetails)
	if err != nil {
		f.log.Debug().Err(err).Str("code", code).Msg("Details fetch failed")
	}
	out.Details = details

	// A scheme explicitly typed as close-ended is out regardless of NAV.
	schemeType := strings.ToLower(provider.StringField(details, "scheme_type", "type", "status"))
	if matchesAny(schemeType, closedTypeMarkers) {
		return out
	}

	quote, err := f.quotes.GetOrFetch(code, f.provider.GetQuote)
	if err != nil {
		f.log.Debug().Err(err).Str("code", code).Msg("Quote fetch failed")
	}
	out.Quote = quote

	nav := provider.StringField(quote, detailNavKeys...)
	if nav == "" {
		nav = provider.StringField(details, detailNavKeys...)
	}
	if !isNumeric(nav) {
		return out
	}

	lastUpdated := provider.StringField(quote, navDateKeys...)
	if lastUpdated == "" {
		lastUpdated = provider.StringField(details, navDateKeys...)
	}
	navDate, ok := ParseFlexibleDate(lastUpdated)
	if !ok || f.now().Sub(navDate) > navFreshness {
		return out
	}

	// When a type is declared it must name an eligible open-ended category;
	// an empty type with a fresh numeric NAV still passes.
	if schemeType != "" && !matchesAny(schemeType, openTypeMarkers) {
		return out
	}

	out.Active = true
	return out
}

func matchesAny(s string, markers []string) bool {
	if s == "" {
		return false
	}
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return false
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && v > 0
}

var dateLayouts = []string{
	"02-01-2006",
	"2006-01-02",
	"02-Jan-2006",
	"2006-01-02T15:04:05Z07:00",
}

// ParseFlexibleDate parses the date formats seen in provider payloads.
// The primary wire format is dd-mm-yyyy.
func ParseFlexibleDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
