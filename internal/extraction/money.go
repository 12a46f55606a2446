package extraction

import "github.com/shopspring/decimal"

// Round2 rounds a monetary value to 2 decimal places. Done in decimal space;
// repeated float rounding drifts on amounts produced by multiplication.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
