package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundlens/internal/navcache"
)

func day(offset int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestCompute_CAGRTwoYearDouble(t *testing.T) {
	// 100 -> 121 over exactly 730 days is 10% annualized
	series := navcache.Series{
		{Date: day(0), Nav: 100},
		{Date: day(730), Nav: 121},
	}

	result := Compute("100033", series, RiskFreeDefault)
	require.NotNil(t, result.CAGR)
	assert.InDelta(t, 0.10, *result.CAGR, 1e-9)
	assert.Equal(t, 2, result.DataPoints)
	assert.Equal(t, "2024-01-01", *result.FirstDate)
	assert.Equal(t, "2025-12-31", *result.LastDate)
}

func TestCompute_ShortSeriesYieldsAllNil(t *testing.T) {
	series := navcache.Series{{Date: day(0), Nav: 100}}

	result := Compute("100033", series, RiskFreeDefault)
	assert.Zero(t, result.DataPoints)
	assert.Nil(t, result.FirstDate)
	assert.Nil(t, result.CAGR)
	assert.Nil(t, result.VolatilityAnnual)
	assert.Nil(t, result.Sharpe)
	assert.Nil(t, result.Sortino)
	assert.Nil(t, result.MaxDrawdown)
	assert.Nil(t, result.Beta)
	assert.Nil(t, result.TrackingError)
}

func TestMaxDrawdown(t *testing.T) {
	series := navcache.Series{
		{Date: day(0), Nav: 100},
		{Date: day(1), Nav: 120},
		{Date: day(2), Nav: 90},
		{Date: day(3), Nav: 110},
	}

	dd := maxDrawdown(series)
	require.NotNil(t, dd)
	assert.InDelta(t, -0.25, *dd, 1e-9)
}

func TestMaxDrawdown_MonotonicSeriesIsZero(t *testing.T) {
	series := navcache.Series{
		{Date: day(0), Nav: 100},
		{Date: day(1), Nav: 101},
		{Date: day(2), Nav: 102},
	}

	dd := maxDrawdown(series)
	require.NotNil(t, dd)
	assert.Zero(t, *dd)
}

func TestRollingReturn_WindowNarrowerThanSeries(t *testing.T) {
	series := navcache.Series{
		{Date: day(0), Nav: 50},
		{Date: day(1000), Nav: 100},
		{Date: day(1365), Nav: 110},
	}

	r := rollingReturn(series, 365)
	require.NotNil(t, r)
	// the trailing year covers 100 -> 110 over 365 days
	assert.InDelta(t, 0.10, *r, 1e-9)
}

func TestRollingReturn_InsufficientWindow(t *testing.T) {
	series := navcache.Series{
		{Date: day(0), Nav: 100},
		{Date: day(800), Nav: 120},
	}

	// only one observation falls inside the trailing year
	assert.Nil(t, rollingReturn(series, 365))
}

func TestSortino_RequiresTwoNegativeReturns(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.01, 0.005}
	assert.Nil(t, sortino(returns, RiskFreeDefault), "one negative return is not enough")

	returns = []float64{0.01, -0.02, -0.01, 0.005}
	assert.NotNil(t, sortino(returns, RiskFreeDefault))
}

func TestSharpe_ZeroVolatilityIsNil(t *testing.T) {
	returns := []float64{0.01, 0.01, 0.01}
	assert.Nil(t, sharpe(returns, RiskFreeDefault))
}

func TestAnnualizedVolatility(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.02, -0.02}
	v := annualizedVolatility(returns)
	require.NotNil(t, v)
	assert.Greater(t, *v, 0.0)
}
