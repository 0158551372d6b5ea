package metrics

import (
	"regexp"
	"strconv"
	"strings"
)

var expenseRatioKeys = []string{
	"expense_ratio", "expenseRatio", "Expense Ratio", "Expense_Ratio",
}

var feesAUMKeys = []string{
	"scheme_aum", "AUM", "aum", "assets_under_management", "fund_size",
}

// Exit load is usually buried in free text, e.g. "Exit load of 1% if
// redeemed within 1 year".
var exitLoadPattern = regexp.MustCompile(`exit\s*load[^\d%]{0,15}(\d+(?:\.\d+)?)\s*%?`)

// Fees holds the cost fields extracted from scheme payloads.
type Fees struct {
	ExpenseRatioPercent *float64
	ExitLoadPercent     *float64
	AUM                 *float64
}

// ExtractFees pulls expense ratio, exit load and AUM out of the details and
// quote payloads, checking details first for each field.
func ExtractFees(details, quote map[string]any) Fees {
	var out Fees
	sources := []map[string]any{details, quote}

	for _, src := range sources {
		if out.ExpenseRatioPercent != nil {
			break
		}
		out.ExpenseRatioPercent = firstNumeric(src, expenseRatioKeys)
	}
	for _, src := range sources {
		if out.AUM != nil {
			break
		}
		out.AUM = firstNumeric(src, feesAUMKeys)
	}

	var texts []string
	for _, src := range sources {
		for _, v := range src {
			if s, ok := v.(string); ok {
				texts = append(texts, strings.ToLower(s))
			}
		}
	}
	if m := exitLoadPattern.FindStringSubmatch(strings.Join(texts, " ")); m != nil {
		out.ExitLoadPercent = coerceFloat(m[1])
	}

	return out
}

func firstNumeric(src map[string]any, keys []string) *float64 {
	for _, key := range keys {
		raw, ok := src[key]
		if !ok || raw == nil {
			continue
		}
		if v := coerceAny(raw); v != nil {
			return v
		}
	}
	return nil
}

func coerceAny(raw any) *float64 {
	switch v := raw.(type) {
	case float64:
		return ptr(v)
	case string:
		return coerceFloat(v)
	default:
		return nil
	}
}

// coerceFloat parses a number with optional thousand separators and a
// trailing percent sign.
func coerceFloat(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return ptr(f)
}
