package strategy

import (
	"sort"
	"strings"

	"GapSentinel/internal/model"
)

// relVolumeBaseline scales the previous close into an expected day volume.
const relVolumeBaseline = 100_000

// indexMarkers flag index and preferred/warrant style symbols.
const indexMarkers = "^."

// Filter holds the candidate screen thresholds.
type Filter struct {
	MinPrice          float64
	MaxPrice          float64
	MinDayVolume      float64
	MinRelativeVolume float64
	MaxMarketCap      float64
	MaxFloatShares    float64
	MaxCandidates     int
}

// DefaultFilter returns the gap-and-go screen.
func DefaultFilter() Filter {
	return Filter{
		MinPrice:          1,
		MaxPrice:          20,
		MinDayVolume:      500_000,
		MinRelativeVolume: 2.5,
		MaxMarketCap:      500_000_000,
		MaxFloatShares:    20_000_000,
		MaxCandidates:     20,
	}
}

// RelativeVolume normalizes day volume against a baseline derived from the previous close.
func RelativeVolume(dayVolume, prevClose float64) float64 {
	if prevClose <= 0 {
		return 0
	}
	return dayVolume / (prevClose * relVolumeBaseline)
}

// Prescreen applies the checks that need only snapshot data (price, volume, symbol).
// Providers use it to avoid fetching fundamentals for the whole universe.
func (f Filter) Prescreen(t model.RawTicker) bool {
	if t.Symbol == "" || strings.ContainsAny(t.Symbol, indexMarkers) {
		return false
	}
	if t.LastPrice < f.MinPrice || t.LastPrice > f.MaxPrice {
		return false
	}
	if t.DayVolume < f.MinDayVolume {
		return false
	}
	return RelativeVolume(t.DayVolume, t.PrevClose) >= f.MinRelativeVolume
}

// Accept applies the full screen, fundamentals included.
func (f Filter) Accept(t model.RawTicker) bool {
	if !f.Prescreen(t) {
		return false
	}
	return t.MarketCap <= f.MaxMarketCap && t.FloatShares <= f.MaxFloatShares
}

// FilterCandidates screens raw tickers and ranks survivors by relative volume, highest first.
// Ties keep provider order. The result is capped at MaxCandidates.
func FilterCandidates(raw []model.RawTicker, f Filter) []model.Candidate {
	out := make([]model.Candidate, 0, len(raw))
	for _, t := range raw {
		if !f.Accept(t) {
			continue
		}
		out = append(out, model.Candidate{
			Symbol:         t.Symbol,
			LastPrice:      t.LastPrice,
			DayVolume:      t.DayVolume,
			RelativeVolume: RelativeVolume(t.DayVolume, t.PrevClose),
			MarketCap:      t.MarketCap,
			FloatShares:    t.FloatShares,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RelativeVolume > out[j].RelativeVolume })
	if f.MaxCandidates > 0 && len(out) > f.MaxCandidates {
		out = out[:f.MaxCandidates]
	}
	return out
}
