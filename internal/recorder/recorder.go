package recorder

import (
	"time"

	"GapSentinel/internal/model"
)

// ScanRecord holds the outcome of one scan cycle's candidate fetch.
type ScanRecord struct {
	CycleID    string
	Timestamp  time.Time
	Candidates []model.Candidate
}

// OrderRecord holds a submitted or failed bracket order.
type OrderRecord struct {
	Timestamp     time.Time
	ClientOrderID string
	Signal        model.Signal
	Error         string
}

// ExitRecord holds one end-of-day close.
type ExitRecord struct {
	Timestamp time.Time
	Exit      model.ExitPayload
}

// DailyPnLRecord holds a liquidation summary.
type DailyPnLRecord struct {
	Timestamp time.Time
	Summary   model.DailyPnLPayload
}

// Recorder persists the trade journal for later analysis.
type Recorder interface {
	RecordScan(rec *ScanRecord) error
	RecordOrder(rec *OrderRecord) error
	RecordExit(rec *ExitRecord) error
	RecordDailyPnL(rec *DailyPnLRecord) error
	Close() error
}

// JournalEvents are the topics the recorder persists.
var JournalEvents = []model.EventType{
	model.EventScan,
	model.EventOrder,
	model.EventOrderFailed,
	model.EventExit,
	model.EventDailyPnL,
}

// HandleEvent maps a notifier event onto the matching Record call.
func HandleEvent(r Recorder, evt model.Event) error {
	switch p := evt.Payload.(type) {
	case model.ScanPayload:
		return r.RecordScan(&ScanRecord{CycleID: p.CycleID, Timestamp: evt.Timestamp, Candidates: p.Candidates})
	case model.OrderPayload:
		return r.RecordOrder(&OrderRecord{Timestamp: evt.Timestamp, ClientOrderID: p.ClientOrderID, Signal: p.Signal, Error: p.Error})
	case model.ExitPayload:
		return r.RecordExit(&ExitRecord{Timestamp: evt.Timestamp, Exit: p})
	case model.DailyPnLPayload:
		return r.RecordDailyPnL(&DailyPnLRecord{Timestamp: evt.Timestamp, Summary: p})
	}
	return nil
}
