package collector

import (
	"context"
	"time"

	"GapSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and paper trading.
type MockFetcher struct {
	Tickers      []model.RawTicker
	Fundamentals map[string]Fundamentals
	Bars         map[string][]model.Bar
	Err          error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchTickers(_ context.Context) ([]model.RawTicker, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tickers, nil
}

func (m *MockFetcher) FetchFundamentals(_ context.Context, symbol string) (Fundamentals, error) {
	if m.Err != nil {
		return Fundamentals{}, m.Err
	}
	return m.Fundamentals[symbol], nil
}

func (m *MockFetcher) FetchMinuteBars(_ context.Context, symbol string, limit int) ([]model.Bar, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Bars[symbol]; ok {
		if limit > 0 && len(bars) > limit {
			return bars[len(bars)-limit:], nil
		}
		return bars, nil
	}
	for _, t := range m.Tickers {
		if t.Symbol == symbol {
			return generateMockBars(t.LastPrice, limit), nil
		}
	}
	return nil, nil
}

// generateMockBars produces a gently rising minute series ending near basePrice.
func generateMockBars(basePrice float64, count int) []model.Bar {
	if count <= 0 {
		return nil
	}
	bars := make([]model.Bar, count)
	now := time.Now().Truncate(time.Minute)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count+1)*0.001)
		if i%2 == 0 {
			p *= 0.998
		}
		bars[i] = model.Bar{
			Time:   now.Add(-time.Duration(count-i) * time.Minute),
			Open:   p * 0.999,
			High:   p * 1.002,
			Low:    p * 0.997,
			Close:  p,
			Volume: 20000,
		}
	}
	return bars
}
