package collector

import (
	"context"

	"GapSentinel/internal/model"
)

// Fundamentals are the slow-moving reference figures used by the scan filter.
type Fundamentals struct {
	MarketCap   float64
	FloatShares float64
}

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchTickers(ctx context.Context) ([]model.RawTicker, error)
	FetchFundamentals(ctx context.Context, symbol string) (Fundamentals, error)
	FetchMinuteBars(ctx context.Context, symbol string, limit int) ([]model.Bar, error)
	Name() string
}
