package model

import "time"

// Position is an open broker position.
type Position struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	EntryPrice    float64 `json:"entry_price"`
	CurrentPrice  float64 `json:"current_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// RiskState is the persisted daily-loss record.
type RiskState struct {
	DailyLossAccumulated float64   `json:"daily_loss_accumulated"`
	UpdatedAt            time.Time `json:"updated_at"`
}
