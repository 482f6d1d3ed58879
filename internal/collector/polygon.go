package collector

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	log "github.com/sirupsen/logrus"

	"GapSentinel/internal/model"
)

// barLookback bounds the aggregate request; it covers premarket plus a full session.
const barLookback = 24 * time.Hour

// PolygonFetcher implements Fetcher using the Polygon.io REST API.
type PolygonFetcher struct {
	Client *polygon.Client
}

// NewPolygonFetcher creates a fetcher authenticated with apiKey.
func NewPolygonFetcher(apiKey string) *PolygonFetcher {
	return &PolygonFetcher{Client: polygon.New(apiKey)}
}

func (f *PolygonFetcher) Name() string { return "polygon" }

// FetchTickers returns the full US stock snapshot.
func (f *PolygonFetcher) FetchTickers(ctx context.Context) ([]model.RawTicker, error) {
	res, err := f.Client.GetAllTickersSnapshot(ctx, &models.GetAllTickersSnapshotParams{
		Locale:     models.US,
		MarketType: models.Stocks,
	})
	if err != nil {
		return nil, fmt.Errorf("polygon snapshot: %w", err)
	}

	out := make([]model.RawTicker, 0, len(res.Tickers))
	for _, t := range res.Tickers {
		price := t.LastTrade.Price
		if price == 0 {
			price = t.Day.Close
		}
		if price == 0 {
			continue // no prints yet today
		}
		out = append(out, model.RawTicker{
			Symbol:    t.Ticker,
			LastPrice: price,
			DayVolume: t.Day.Volume,
			PrevClose: t.PrevDay.Close,
		})
	}
	log.Debugf("polygon snapshot: %d tickers", len(out))
	return out, nil
}

// FetchFundamentals reads market cap and share count from ticker details.
// Polygon has no free-float figure, so share-class shares outstanding stands in for it.
func (f *PolygonFetcher) FetchFundamentals(ctx context.Context, symbol string) (Fundamentals, error) {
	res, err := f.Client.GetTickerDetails(ctx, &models.GetTickerDetailsParams{Ticker: symbol})
	if err != nil {
		return Fundamentals{}, fmt.Errorf("polygon ticker details %s: %w", symbol, err)
	}
	shares := float64(res.Results.ShareClassSharesOutstanding)
	if shares == 0 {
		shares = float64(res.Results.WeightedSharesOutstanding)
	}
	return Fundamentals{MarketCap: res.Results.MarketCap, FloatShares: shares}, nil
}

// FetchMinuteBars returns up to limit of the most recent one-minute aggregates, oldest first.
func (f *PolygonFetcher) FetchMinuteBars(ctx context.Context, symbol string, limit int) ([]model.Bar, error) {
	to := time.Now()
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Minute,
		From:       models.Millis(to.Add(-barLookback)),
		To:         models.Millis(to),
	}.WithOrder(models.Asc).WithAdjusted(true)

	iter := f.Client.ListAggs(ctx, params)
	var bars []model.Bar
	for iter.Next() {
		a := iter.Item()
		bars = append(bars, model.Bar{
			Time:   time.Time(a.Timestamp),
			Open:   a.Open,
			High:   a.High,
			Low:    a.Low,
			Close:  a.Close,
			Volume: a.Volume,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("polygon aggs %s: %w", symbol, err)
	}

	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}
