package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GapSentinel/internal/model"
	"GapSentinel/internal/strategy"
)

type countingFetcher struct {
	MockFetcher
	fundamentalCalls map[string]int
	failSymbol       string
}

func (c *countingFetcher) FetchFundamentals(ctx context.Context, symbol string) (Fundamentals, error) {
	c.fundamentalCalls[symbol]++
	if symbol == c.failSymbol {
		return Fundamentals{}, errors.New("details unavailable")
	}
	return c.MockFetcher.FetchFundamentals(ctx, symbol)
}

func newCountingFetcher() *countingFetcher {
	return &countingFetcher{
		MockFetcher: MockFetcher{
			Tickers: []model.RawTicker{
				{Symbol: "GAPR", LastPrice: 6, DayVolume: 3_000_000, PrevClose: 5},
				{Symbol: "BAD", LastPrice: 7, DayVolume: 3_000_000, PrevClose: 5},
				{Symbol: "PENNY", LastPrice: 0.5, DayVolume: 9_000_000, PrevClose: 0.4},
				{Symbol: "^VIX", LastPrice: 15, DayVolume: 3_000_000, PrevClose: 5},
			},
			Fundamentals: map[string]Fundamentals{
				"GAPR": {MarketCap: 100_000_000, FloatShares: 5_000_000},
			},
		},
		fundamentalCalls: map[string]int{},
		failSymbol:       "BAD",
	}
}

func TestCollector_ListCandidates(t *testing.T) {
	f := newCountingFetcher()
	c := NewCollector(f, strategy.DefaultFilter())

	got, err := c.ListCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "GAPR", got[0].Symbol)
	assert.Equal(t, 100_000_000.0, got[0].MarketCap)
	assert.Equal(t, 5_000_000.0, got[0].FloatShares)

	// prescreen keeps detail lookups off the rest of the universe
	assert.Equal(t, map[string]int{"GAPR": 1, "BAD": 1}, f.fundamentalCalls)

	_, err = c.ListCandidates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.fundamentalCalls["GAPR"], "fundamentals are cached")
	assert.Equal(t, 2, f.fundamentalCalls["BAD"], "failures are not cached")
}

func TestCollector_ListCandidatesError(t *testing.T) {
	c := NewCollector(&MockFetcher{Err: errors.New("snapshot down")}, strategy.DefaultFilter())
	got, err := c.ListCandidates(context.Background())
	assert.Error(t, err)
	assert.Empty(t, got)
}

func TestCollector_GetBars(t *testing.T) {
	f := &MockFetcher{Tickers: []model.RawTicker{{Symbol: "GAPR", LastPrice: 6}}}
	c := NewCollector(f, strategy.DefaultFilter())

	bars, err := c.GetBars(context.Background(), "GAPR", 60)
	require.NoError(t, err)
	require.Len(t, bars, 60)
	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i-1].Time.Before(bars[i].Time))
	}
	assert.InDelta(t, 6.0, bars[59].Close, 1e-9)

	bars, err = c.GetBars(context.Background(), "UNKNOWN", 60)
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestMockFetcher_NonPositiveLimit(t *testing.T) {
	f := &MockFetcher{Tickers: []model.RawTicker{{Symbol: "GAPR", LastPrice: 6}}}
	for _, limit := range []int{0, -1} {
		bars, err := f.FetchMinuteBars(context.Background(), "GAPR", limit)
		require.NoError(t, err)
		assert.Empty(t, bars)
	}
}
