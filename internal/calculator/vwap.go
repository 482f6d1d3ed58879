package calculator

import "GapSentinel/internal/model"

// CalculateVWAP returns the volume-weighted mean of the typical price (h+l+c)/3.
// With no traded volume it falls back to the last close.
func CalculateVWAP(bars []model.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	var pv, vol float64
	for _, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3
		pv += typical * b.Volume
		vol += b.Volume
	}
	if vol == 0 {
		return bars[len(bars)-1].Close
	}
	return pv / vol
}
