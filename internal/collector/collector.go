package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"

	"GapSentinel/internal/model"
	"GapSentinel/internal/strategy"
)

// fundamentalsTTL bounds how stale market cap and share counts may get within a session.
const fundamentalsTTL = 6 * time.Hour

// Collector turns a Fetcher into the market data provider used by the scan cycle.
type Collector struct {
	Fetcher Fetcher
	Filter  strategy.Filter

	fundamentals *cache.Cache
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, filter strategy.Filter) *Collector {
	return &Collector{
		Fetcher:      fetcher,
		Filter:       filter,
		fundamentals: cache.New(fundamentalsTTL, time.Hour),
	}
}

// ListCandidates returns snapshot tickers that pass the cheap prescreen, enriched with fundamentals.
// A symbol whose fundamentals cannot be loaded is skipped rather than failing the whole list.
func (c *Collector) ListCandidates(ctx context.Context) ([]model.RawTicker, error) {
	tickers, err := c.Fetcher.FetchTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch tickers: %w", err)
	}

	out := make([]model.RawTicker, 0, 32)
	for _, t := range tickers {
		if !c.Filter.Prescreen(t) {
			continue
		}
		f, err := c.loadFundamentals(ctx, t.Symbol)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			log.WithField("symbol", t.Symbol).Warnf("fundamentals unavailable, skipping: %v", err)
			continue
		}
		t.MarketCap = f.MarketCap
		t.FloatShares = f.FloatShares
		out = append(out, t)
	}
	log.Debugf("%s: %d of %d tickers passed prescreen", c.Fetcher.Name(), len(out), len(tickers))
	return out, nil
}

// GetBars fetches the most recent limit minute bars for symbol.
func (c *Collector) GetBars(ctx context.Context, symbol string, limit int) ([]model.Bar, error) {
	bars, err := c.Fetcher.FetchMinuteBars(ctx, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch bars %s: %w", symbol, err)
	}
	return bars, nil
}

func (c *Collector) loadFundamentals(ctx context.Context, symbol string) (Fundamentals, error) {
	if v, ok := c.fundamentals.Get(symbol); ok {
		return v.(Fundamentals), nil
	}
	f, err := c.Fetcher.FetchFundamentals(ctx, symbol)
	if err != nil {
		return Fundamentals{}, err
	}
	c.fundamentals.Set(symbol, f, cache.DefaultExpiration)
	return f, nil
}
