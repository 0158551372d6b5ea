package masterlist

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestFilter(t *testing.T, p *fakeProvider) *Filter {
	details, quotes := newTestCaches(t)
	f := NewFilter(p, details, quotes, zerolog.Nop())
	f.now = func() time.Time { return testNow }
	return f
}

func TestClassify_OpenEndedFreshNavIsActive(t *testing.T) {
	p := &fakeProvider{
		details: map[string]map[string]any{
			"100033": {"scheme_type": "Open Ended Schemes"},
		},
		quotes: map[string]map[string]any{
			"100033": {"nav": "412.553", "last_updated": freshDate(testNow.AddDate(0, 0, -2))},
		},
	}

	c := newTestFilter(t, p).Classify("100033")
	assert.True(t, c.Active)
	assert.Equal(t, "100033", c.Code)
}

func TestClassify_CloseEndedIsInactive(t *testing.T) {
	p := &fakeProvider{
		details: map[string]map[string]any{
			"100034": {"scheme_type": "Close Ended Schemes"},
		},
		quotes: map[string]map[string]any{
			"100034": {"nav": "10.0", "last_updated": freshDate(testNow)},
		},
	}

	c := newTestFilter(t, p).Classify("100034")
	assert.False(t, c.Active, "close-ended schemes are never active, even with a fresh NAV")
}

func TestClassify_StaleNavIsInactive(t *testing.T) {
	p := &fakeProvider{
		details: map[string]map[string]any{
			"100035": {"scheme_type": "Open Ended Schemes"},
		},
		quotes: map[string]map[string]any{
			"100035": {"nav": "55.1", "last_updated": freshDate(testNow.AddDate(0, 0, -45))},
		},
	}

	c := newTestFilter(t, p).Classify("100035")
	assert.False(t, c.Active)
}

func TestClassify_NonNumericNavIsInactive(t *testing.T) {
	p := &fakeProvider{
		details: map[string]map[string]any{
			"100036": {"scheme_type": "Open Ended Schemes"},
		},
		quotes: map[string]map[string]any{
			"100036": {"nav": "N.A.", "last_updated": freshDate(testNow)},
		},
	}

	c := newTestFilter(t, p).Classify("100036")
	assert.False(t, c.Active)
}

func TestClassify_EmptyTypeWithFreshNavIsActive(t *testing.T) {
	p := &fakeProvider{
		details: map[string]map[string]any{
			"100037": {},
		},
		quotes: map[string]map[string]any{
			"100037": {"nav": "1,234.56", "last_updated": freshDate(testNow.AddDate(0, 0, -1))},
		},
	}

	c := newTestFilter(t, p).Classify("100037")
	assert.True(t, c.Active, "schemes without a declared type pass on NAV evidence alone")
}

func TestClassify_UnknownTypeWithFreshNavIsInactive(t *testing.T) {
	p := &fakeProvider{
		details: map[string]map[string]any{
			"100038": {"scheme_type": "Something Else"},
		},
		quotes: map[string]map[string]any{
			"100038": {"nav": "20.0", "last_updated": freshDate(testNow)},
		},
	}

	c := newTestFilter(t, p).Classify("100038")
	assert.False(t, c.Active)
}

func TestClassify_TypeVocabulary(t *testing.T) {
	tests := []struct {
		schemeType string
		active     bool
	}{
		{"Open Ended Schemes", true},
		{"Interval Fund", true},
		{"ETF", true},
		{"Exchange Traded Fund", true},
		{"Index Funds", true},
		{"Liquid Fund", true},
		{"Equity Scheme", true},
		{"Debt Scheme", true},
		{"Hybrid Scheme", true},
		{"Fund of Funds", true},
		{"Close Ended Schemes", false},
		{"Closed-End Fund", false},
		{"Fixed Maturity Plan", false},
		{"Something Else", false},
	}
	for _, tt := range tests {
		p := &fakeProvider{
			details: map[string]map[string]any{
				"200001": {"scheme_type": tt.schemeType},
			},
			quotes: map[string]map[string]any{
				"200001": {"nav": "25.0", "last_updated": freshDate(testNow)},
			},
		}

		c := newTestFilter(t, p).Classify("200001")
		assert.Equal(t, tt.active, c.Active, tt.schemeType)
	}
}

func TestClassify_ProviderFailureIsInactive(t *testing.T) {
	p := &fakeProvider{}

	c := newTestFilter(t, p).Classify("999999")
	assert.False(t, c.Active)
}

func TestParseFlexibleDate(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want time.Time
	}{
		{"28-08-2026", true, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)},
		{"2026-08-28", true, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)},
		{"28-Aug-2026", true, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)},
		{"", false, time.Time{}},
		{"not a date", false, time.Time{}},
	}
	for _, tt := range tests {
		got, ok := ParseFlexibleDate(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.True(t, got.Equal(tt.want), tt.in)
		}
	}
}
