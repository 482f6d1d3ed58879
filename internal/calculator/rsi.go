package calculator

// DefaultRSI is returned when there is not enough history.
const DefaultRSI = 50.0

const rsiEpsilon = 1e-10

// CalculateRSI computes the relative strength index over the last period close-to-close changes.
// Requires at least period+1 closes. Returns DefaultRSI if data is insufficient.
func CalculateRSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return DefaultRSI
	}

	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		avgLoss = rsiEpsilon
	}

	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
