package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"fundlens/internal/navcache"
)

// RiskFreeDefault is the annual risk-free rate used when none is configured.
const RiskFreeDefault = 0.06

// tradingDays is the annualization factor for daily returns.
const tradingDays = 252.0

const isoDate = "2006-01-02"

// Compute derives the full metric set from a NAV series. A series with
// fewer than two points produces a Result whose metric fields are all nil.
func Compute(code string, series navcache.Series, riskFree float64) *Result {
	out := &Result{SchemeCode: code}
	if len(series) < 2 {
		return out
	}

	out.DataPoints = len(series)
	first := series.First().Date.Format(isoDate)
	last := series.Last().Date.Format(isoDate)
	out.FirstDate = &first
	out.LastDate = &last

	returns := dailyReturns(series)

	out.CAGR = cagr(series)
	out.Rolling1Y = rollingReturn(series, 365)
	out.Rolling3Y = rollingReturn(series, 365*3)
	out.Rolling5Y = rollingReturn(series, 365*5)

	out.VolatilityAnnual = annualizedVolatility(returns)
	out.MaxDrawdown = maxDrawdown(series)
	out.Sharpe = sharpe(returns, riskFree)
	out.Sortino = sortino(returns, riskFree)

	return out
}

func dailyReturns(series navcache.Series) []float64 {
	out := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1].Nav
		if prev == 0 {
			continue
		}
		out = append(out, series[i].Nav/prev-1)
	}
	return out
}

// cagr is the annualized point-to-point return over the full series span.
func cagr(series navcache.Series) *float64 {
	if len(series) < 2 {
		return nil
	}
	start, end := series.First(), series.Last()
	if start.Nav <= 0 {
		return nil
	}
	days := end.Date.Sub(start.Date).Hours() / 24
	if days <= 0 {
		return nil
	}
	years := days / 365.0
	v := math.Pow(end.Nav/start.Nav, 1.0/years) - 1.0
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return ptr(v)
}

// rollingReturn is the annualized return over the trailing window ending at
// the last observation.
func rollingReturn(series navcache.Series, windowDays int) *float64 {
	if len(series) < 2 {
		return nil
	}
	cutoff := series.Last().Date.AddDate(0, 0, -windowDays)
	start := 0
	for start < len(series) && series[start].Date.Before(cutoff) {
		start++
	}
	window := series[start:]
	if len(window) < 2 {
		return nil
	}
	return cagr(window)
}

func annualizedVolatility(returns []float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	v := stat.StdDev(returns, nil) * math.Sqrt(tradingDays)
	if math.IsNaN(v) {
		return nil
	}
	return ptr(v)
}

func annualizedReturn(returns []float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	return ptr(stat.Mean(returns, nil) * tradingDays)
}

// maxDrawdown is the worst peak-to-trough decline, as a negative fraction.
func maxDrawdown(series navcache.Series) *float64 {
	if len(series) < 2 {
		return nil
	}
	peak := series.First().Nav
	worst := 0.0
	for _, p := range series {
		if p.Nav > peak {
			peak = p.Nav
		}
		if peak > 0 {
			dd := p.Nav/peak - 1.0
			if dd < worst {
				worst = dd
			}
		}
	}
	return ptr(worst)
}

func sharpe(returns []float64, riskFree float64) *float64 {
	annRet := annualizedReturn(returns)
	annVol := annualizedVolatility(returns)
	if annRet == nil || annVol == nil || *annVol == 0 {
		return nil
	}
	return ptr((*annRet - riskFree) / *annVol)
}

// sortino penalizes downside volatility only. It needs at least two
// negative daily returns to estimate downside deviation.
func sortino(returns []float64, riskFree float64) *float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return nil
	}
	annRet := annualizedReturn(returns)
	if annRet == nil {
		return nil
	}
	dd := stat.StdDev(downside, nil) * math.Sqrt(tradingDays)
	if dd == 0 || math.IsNaN(dd) {
		return nil
	}
	return ptr((*annRet - riskFree) / dd)
}
