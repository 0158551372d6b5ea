// Package metrics computes performance, risk and fee metrics for scheme NAV
// series. Every metric is independently optional: a series too short for one
// computation yields null for that field, never an error.
package metrics

// Result holds the computed metrics for one scheme code. Pointer fields
// render as JSON null when the underlying series cannot support them.
type Result struct {
	SchemeCode string  `json:"scheme_code"`
	DataPoints int     `json:"data_points"`
	FirstDate  *string `json:"first_date"`
	LastDate   *string `json:"last_date"`

	CAGR      *float64 `json:"cagr"`
	Rolling1Y *float64 `json:"rolling_1y"`
	Rolling3Y *float64 `json:"rolling_3y"`
	Rolling5Y *float64 `json:"rolling_5y"`

	VolatilityAnnual *float64 `json:"volatility_annual"`
	Sharpe           *float64 `json:"sharpe"`
	Sortino          *float64 `json:"sortino"`
	MaxDrawdown      *float64 `json:"max_drawdown"`

	ExpenseRatioPercent *float64 `json:"expense_ratio_percent"`
	ExitLoadPercent     *float64 `json:"exit_load_percent"`
	AUM                 *float64 `json:"aum"`

	// Benchmark-relative metrics are reserved until a benchmark series
	// source is wired in.
	Beta          *float64 `json:"beta"`
	TrackingError *float64 `json:"tracking_error"`
}

func ptr(v float64) *float64 { return &v }
