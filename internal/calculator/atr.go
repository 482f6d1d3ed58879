package calculator

import (
	"math"

	"GapSentinel/internal/model"
)

// DefaultATR is returned when there is not enough history.
const DefaultATR = 0.5

// CalculateATR averages the true range of the last period bars.
// Each true range needs the previous close, so period+1 bars are required.
func CalculateATR(bars []model.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return DefaultATR
	}
	n := len(bars)
	sum := 0.0
	for i := n - period; i < n; i++ {
		sum += trueRange(bars[i], bars[i-1].Close)
	}
	return sum / float64(period)
}

func trueRange(b model.Bar, prevClose float64) float64 {
	return math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
}
