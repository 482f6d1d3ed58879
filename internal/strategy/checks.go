package strategy

import (
	"fmt"

	"GapSentinel/internal/model"
)

// entryChecks evaluates every entry condition so rejections can be explained.
// Trend: close above VWAP and EMA8, EMA8 above EMA15. Momentum: RSI not overextended.
func entryChecks(ind model.Indicators, p Params) []model.EntryCheck {
	return []model.EntryCheck{
		{
			Name:       "close>vwap",
			Passed:     ind.Close > ind.VWAP,
			Commentary: fmt.Sprintf("close=%.2f vwap=%.2f", ind.Close, ind.VWAP),
		},
		{
			Name:       "close>ema8",
			Passed:     ind.Close > ind.EMA8,
			Commentary: fmt.Sprintf("close=%.2f ema8=%.2f", ind.Close, ind.EMA8),
		},
		{
			Name:       "ema8>ema15",
			Passed:     ind.EMA8 > ind.EMA15,
			Commentary: fmt.Sprintf("ema8=%.2f ema15=%.2f", ind.EMA8, ind.EMA15),
		},
		{
			Name:       "rsi<=max",
			Passed:     ind.RSI <= p.RSIMax,
			Commentary: fmt.Sprintf("rsi=%.1f max=%.0f", ind.RSI, p.RSIMax),
		},
	}
}

func allPassed(checks []model.EntryCheck) bool {
	for _, c := range checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// FirstFailure returns the first failed check, if any.
func FirstFailure(checks []model.EntryCheck) (model.EntryCheck, bool) {
	for _, c := range checks {
		if !c.Passed {
			return c, true
		}
	}
	return model.EntryCheck{}, false
}
