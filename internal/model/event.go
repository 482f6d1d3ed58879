package model

import "time"

// EventType names a notification topic.
type EventType string

const (
	EventHeartbeat   EventType = "heartbeat"
	EventScan        EventType = "scan"
	EventSignal      EventType = "signal"
	EventOrder       EventType = "order"
	EventOrderFailed EventType = "order_failed"
	EventExit        EventType = "exit"
	EventDailyPnL    EventType = "daily_pnl"
)

// Event is what the notifier carries to its subscribers.
type Event struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// HeartbeatPayload is published at the start of every scan cycle.
type HeartbeatPayload struct {
	CycleID string `json:"cycle_id"`
}

// ScanPayload carries the filtered candidate list of one cycle.
type ScanPayload struct {
	CycleID    string      `json:"cycle_id"`
	Candidates []Candidate `json:"candidates"`
}

// OrderPayload describes a submitted (or failed) bracket order.
type OrderPayload struct {
	Signal        Signal `json:"signal"`
	ClientOrderID string `json:"client_order_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ExitPayload describes one end-of-day position close.
type ExitPayload struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	EntryPrice  float64 `json:"entry_price"`
	ExitPrice   float64 `json:"exit_price"`
	RealizedPnL float64 `json:"realized_pnl"`
}

// DailyPnLPayload summarizes the end-of-day liquidation.
type DailyPnLPayload struct {
	TotalPnL  float64 `json:"total_pnl"`
	DailyLoss float64 `json:"daily_loss"`
	Positions int     `json:"positions"`
}
