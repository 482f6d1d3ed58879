package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"GapSentinel/internal/calculator"
	"GapSentinel/internal/model"
)

// Params configures signal generation and position sizing.
type Params struct {
	RSIMax    float64
	StopPct   float64
	ATRMult   float64
	RiskPct   float64
	MinBars   int
	FastEMA   int
	SlowEMA   int
	RSIPeriod int
	ATRPeriod int
}

// DefaultParams returns the stock configuration.
func DefaultParams() Params {
	return Params{
		RSIMax:    70,
		StopPct:   0.03,
		ATRMult:   2,
		RiskPct:   0.01,
		MinBars:   50,
		FastEMA:   8,
		SlowEMA:   15,
		RSIPeriod: 14,
		ATRPeriod: 14,
	}
}

// ComputeIndicators derives every indicator the entry rule needs from minute bars.
func ComputeIndicators(bars []model.Bar, p Params) model.Indicators {
	closes := calculator.Closes(bars)
	ind := model.Indicators{
		VWAP:  calculator.CalculateVWAP(bars),
		EMA8:  calculator.CalculateEMA(closes, p.FastEMA),
		EMA15: calculator.CalculateEMA(closes, p.SlowEMA),
		RSI:   calculator.CalculateRSI(closes, p.RSIPeriod),
		ATR:   calculator.CalculateATR(bars, p.ATRPeriod),
	}
	if len(closes) > 0 {
		ind.Close = closes[len(closes)-1]
	}
	return ind
}

// Evaluate decides whether to enter cand given its minute bars and the account equity.
// It returns nil when any entry condition fails; the checks explain the decision either way.
func Evaluate(cand model.Candidate, bars []model.Bar, equity float64, p Params) (*model.Signal, []model.EntryCheck) {
	if len(bars) < p.MinBars {
		return nil, []model.EntryCheck{{
			Name:       "bars",
			Passed:     false,
			Commentary: fmt.Sprintf("need %d bars, have %d", p.MinBars, len(bars)),
		}}
	}

	ind := ComputeIndicators(bars, p)
	checks := entryChecks(ind, p)
	if !allPassed(checks) {
		return nil, checks
	}

	entry := round2(ind.Close)
	if entry <= 0 || p.StopPct <= 0 {
		return nil, append(checks, model.EntryCheck{Name: "sizing", Commentary: "non-positive stop distance"})
	}

	return &model.Signal{
		Symbol:      cand.Symbol,
		EntryPrice:  entry,
		StopPrice:   round2(entry * (1 - p.StopPct)),
		TargetPrice: round2(entry + p.ATRMult*ind.ATR),
		Quantity:    PositionSize(equity, p.RiskPct, entry, p.StopPct),
		Indicators:  ind,
		Checks:      checks,
	}, checks
}

// PositionSize risks riskPct of equity against the stop distance, never less than one share.
func PositionSize(equity, riskPct, entry, stopPct float64) int {
	risk := decimal.NewFromFloat(equity).Mul(decimal.NewFromFloat(riskPct))
	perShare := decimal.NewFromFloat(entry).Mul(decimal.NewFromFloat(stopPct))
	if !perShare.IsPositive() {
		return 1
	}
	qty := risk.Div(perShare).Floor().IntPart()
	if qty < 1 {
		return 1
	}
	return int(qty)
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
