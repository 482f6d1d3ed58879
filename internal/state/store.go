package state

import (
	"sync"
	"time"

	"GapSentinel/internal/model"
)

// DefaultMaxTrades bounds the trade history kept in memory.
const DefaultMaxTrades = 200

// TradeSide distinguishes entries from exits in the trade log.
type TradeSide string

const (
	SideEntry TradeSide = "entry"
	SideExit  TradeSide = "exit"
)

// Trade is one line of the dashboard trade log.
type Trade struct {
	Time          time.Time `json:"time"`
	Symbol        string    `json:"symbol"`
	Side          TradeSide `json:"side"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"`
	StopPrice     float64   `json:"stop_price,omitempty"`
	TargetPrice   float64   `json:"target_price,omitempty"`
	PnL           float64   `json:"pnl,omitempty"`
	ClientOrderID string    `json:"client_order_id,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// Stats are running counters since process start.
type Stats struct {
	Cycles          int       `json:"cycles"`
	ActiveCycles    int       `json:"active_cycles"`
	LastCycleID     string    `json:"last_cycle_id"`
	LastHeartbeat   time.Time `json:"last_heartbeat"`
	Signals         int       `json:"signals"`
	OrdersSubmitted int       `json:"orders_submitted"`
	OrdersFailed    int       `json:"orders_failed"`
	OrdersSkipped   int       `json:"orders_skipped"`
	Exits           int       `json:"exits"`
	LastDailyPnL    float64   `json:"last_daily_pnl"`
	LastLiquidation time.Time `json:"last_liquidation"`
}

// Snapshot is a consistent copy of the store.
type Snapshot struct {
	Scanner   []model.Candidate `json:"scanner"`
	ScannedAt time.Time         `json:"scanned_at"`
	Trades    []Trade           `json:"trades"`
	Stats     Stats             `json:"stats"`
}

// Store owns the scanner, trade and stats state shown on the dashboard.
type Store struct {
	mu        sync.RWMutex
	maxTrades int
	scanner   []model.Candidate
	scannedAt time.Time
	trades    []Trade
	stats     Stats
}

// NewStore creates an empty store keeping at most maxTrades trades.
func NewStore(maxTrades int) *Store {
	if maxTrades <= 0 {
		maxTrades = DefaultMaxTrades
	}
	return &Store{maxTrades: maxTrades}
}

// RecordHeartbeat counts a cycle start.
func (s *Store) RecordHeartbeat(cycleID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Cycles++
	s.stats.LastCycleID = cycleID
	s.stats.LastHeartbeat = at
}

// MarkActive counts a cycle that got past the scan window gate.
func (s *Store) MarkActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.ActiveCycles++
}

// SetScanner replaces the latest candidate list.
func (s *Store) SetScanner(cands []model.Candidate, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanner = append([]model.Candidate(nil), cands...)
	s.scannedAt = at
}

// CountSignals adds n generated signals.
func (s *Store) CountSignals(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Signals += n
}

// CountSkipped records a signal dropped by the pending order guard.
func (s *Store) CountSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.OrdersSkipped++
}

// AddTrade appends to the trade log and updates the counters.
func (s *Store) AddTrade(t Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case t.Side == SideExit:
		s.stats.Exits++
	case t.Error != "":
		s.stats.OrdersFailed++
	default:
		s.stats.OrdersSubmitted++
	}
	s.trades = append(s.trades, t)
	if over := len(s.trades) - s.maxTrades; over > 0 {
		s.trades = append([]Trade(nil), s.trades[over:]...)
	}
}

// RecordLiquidation stores the outcome of an end-of-day run.
func (s *Store) RecordLiquidation(totalPnL float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.LastDailyPnL = totalPnL
	s.stats.LastLiquidation = at
}

// Snapshot returns a copy safe to read without locks.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Scanner:   append([]model.Candidate(nil), s.scanner...),
		ScannedAt: s.scannedAt,
		Trades:    append([]Trade(nil), s.trades...),
		Stats:     s.stats,
	}
}
