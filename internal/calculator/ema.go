package calculator

import "GapSentinel/internal/model"

// CalculateEMA computes the exponential moving average of values with smoothing 2/(period+1).
// The average is seeded with the first value. When there are fewer values than period
// the last value is returned unsmoothed.
func CalculateEMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period <= 0 || len(values) < period {
		return values[len(values)-1]
	}
	k := 2.0 / float64(period+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = v*k + ema*(1-k)
	}
	return ema
}

// Closes extracts the close prices of bars, oldest first.
func Closes(bars []model.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
