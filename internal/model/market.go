package model

import "time"

// Bar represents a single one-minute candlestick.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// RawTicker is one entry of the provider's ticker universe, before filtering.
type RawTicker struct {
	Symbol      string  `json:"symbol"`
	LastPrice   float64 `json:"last_price"`
	DayVolume   float64 `json:"day_volume"`
	PrevClose   float64 `json:"prev_close"`
	MarketCap   float64 `json:"market_cap"`
	FloatShares float64 `json:"float_shares"`
}

// Candidate is a ticker that passed the scan filter.
type Candidate struct {
	Symbol         string  `json:"symbol"`
	LastPrice      float64 `json:"last_price"`
	DayVolume      float64 `json:"day_volume"`
	RelativeVolume float64 `json:"relative_volume"`
	MarketCap      float64 `json:"market_cap"`
	FloatShares    float64 `json:"float_shares"`
}
