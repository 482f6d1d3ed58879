package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GapSentinel/internal/model"
)

// zigzagBars builds 50 minute bars ending at 5.00: +3c on odd steps, -2c on even steps.
func zigzagBars(n int) []model.Bar {
	start := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	cents := 500 - (n-1)/2*3 + (n-1)/2*2
	if (n-1)%2 == 1 {
		cents -= 3
	}
	bars := make([]model.Bar, n)
	for i := 0; i < n; i++ {
		if i > 0 {
			if i%2 == 1 {
				cents += 3
			} else {
				cents -= 2
			}
		}
		c := float64(cents) / 100
		bars[i] = model.Bar{
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   float64(cents+1) / 100,
			Low:    float64(cents-1) / 100,
			Close:  c,
			Volume: 10_000,
		}
	}
	return bars
}

func risingBars(n int) []model.Bar {
	start := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	for i := range bars {
		c := 4 + float64(i)*0.02
		bars[i] = model.Bar{Time: start.Add(time.Duration(i) * time.Minute), Open: c, High: c + 0.01, Low: c - 0.01, Close: c, Volume: 10_000}
	}
	return bars
}

func fallingBars(n int) []model.Bar {
	bars := risingBars(n)
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i].Open, bars[j].Open = bars[j].Open, bars[i].Open
		bars[i].High, bars[j].High = bars[j].High, bars[i].High
		bars[i].Low, bars[j].Low = bars[j].Low, bars[i].Low
		bars[i].Close, bars[j].Close = bars[j].Close, bars[i].Close
	}
	return bars
}

func TestZigzagFixture(t *testing.T) {
	bars := zigzagBars(50)
	require.Len(t, bars, 50)
	assert.InDelta(t, 5.00, bars[49].Close, 1e-9)
	assert.InDelta(t, 4.73, bars[0].Close, 1e-9)
}

func TestEvaluate_Deterministic(t *testing.T) {
	p := DefaultParams()
	p.StopPct = 0.03
	p.ATRMult = 2
	p.RiskPct = 0.01

	sig, checks := Evaluate(model.Candidate{Symbol: "GAPR"}, zigzagBars(50), 25000, p)
	require.NotNil(t, sig, "checks: %+v", checks)

	assert.Equal(t, "GAPR", sig.Symbol)
	assert.Equal(t, 5.00, sig.EntryPrice)
	assert.Equal(t, 4.85, sig.StopPrice)
	assert.InDelta(t, 0.035, sig.Indicators.ATR, 1e-9)
	assert.Equal(t, round2(5.00+2*sig.Indicators.ATR), sig.TargetPrice)
	assert.Equal(t, 5.07, sig.TargetPrice)
	assert.Equal(t, 1666, sig.Quantity)
	assert.InDelta(t, 60.0, sig.Indicators.RSI, 1e-6)
	for _, c := range checks {
		assert.True(t, c.Passed, c.Name)
	}
}

func TestEvaluate_InsufficientBars(t *testing.T) {
	for _, n := range []int{0, 1, 20, 49} {
		sig, checks := Evaluate(model.Candidate{Symbol: "GAPR"}, zigzagBars(n), 25000, DefaultParams())
		assert.Nil(t, sig, "n=%d", n)
		require.Len(t, checks, 1)
		assert.Equal(t, "bars", checks[0].Name)
	}
}

func TestEvaluate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		bars   []model.Bar
		failed string
	}{
		{"downtrend below vwap", fallingBars(60), "close>vwap"},
		{"overextended rsi", risingBars(60), "rsi<=max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, checks := Evaluate(model.Candidate{Symbol: "GAPR"}, tt.bars, 25000, DefaultParams())
			assert.Nil(t, sig)
			failed, ok := FirstFailure(checks)
			require.True(t, ok)
			assert.Equal(t, tt.failed, failed.Name)
		})
	}
}

func TestEvaluate_QuantityIgnoresCandidateVolume(t *testing.T) {
	p := DefaultParams()
	small, _ := Evaluate(model.Candidate{Symbol: "A", DayVolume: 600_000}, zigzagBars(50), 25000, p)
	large, _ := Evaluate(model.Candidate{Symbol: "B", DayVolume: 90_000_000}, zigzagBars(50), 25000, p)
	require.NotNil(t, small)
	require.NotNil(t, large)
	assert.Equal(t, small.Quantity, large.Quantity)
}

func TestPositionSize(t *testing.T) {
	tests := []struct {
		equity, risk, entry, stop float64
		want                      int
	}{
		{25000, 0.01, 5.00, 0.03, 1666},
		{100000, 0.01, 10, 0.05, 2000},
		{100, 0.01, 20, 0.03, 1},
		{10, 0.01, 20, 0.03, 1},
		{0, 0.01, 5, 0.03, 1},
		{1000, 0.01, 5, 0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PositionSize(tt.equity, tt.risk, tt.entry, tt.stop), "%+v", tt)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 4.85, round2(5.00*(1-0.03)))
	assert.Equal(t, 1.01, round2(1.005))
	assert.Equal(t, 12.35, round2(12.3456))
}
