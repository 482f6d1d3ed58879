package broker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"GapSentinel/internal/model"
)

// paperOrder is a bracket order accepted by the paper broker.
type paperOrder struct {
	ClientOrderID string
	Signal        model.Signal
}

// PaperBroker fills every bracket order at its limit price and keeps positions in memory.
type PaperBroker struct {
	mu        sync.Mutex
	cash      float64
	positions map[string]*model.Position
	orders    []paperOrder
	realized  float64
}

// NewPaperBroker creates a paper account holding equity in cash.
func NewPaperBroker(equity float64) *PaperBroker {
	return &PaperBroker{cash: equity, positions: make(map[string]*model.Position)}
}

func (p *PaperBroker) Name() string { return "paper" }

// GetEquity returns cash plus the marked value of open positions.
func (p *PaperBroker) GetEquity(_ context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	eq := p.cash
	for _, pos := range p.positions {
		eq += pos.Quantity * pos.CurrentPrice
	}
	return eq, nil
}

// GetOpenPositions returns the open positions sorted by symbol.
func (p *PaperBroker) GetOpenPositions(_ context.Context) ([]model.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// PlaceBracketOrder fills the entry immediately; the exit legs are not simulated.
func (p *PaperBroker) PlaceBracketOrder(_ context.Context, sig model.Signal, clientOrderID string) error {
	if sig.Quantity < 1 {
		return fmt.Errorf("paper: invalid quantity %d", sig.Quantity)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	qty := float64(sig.Quantity)
	cost := qty * sig.EntryPrice
	if pos, ok := p.positions[sig.Symbol]; ok {
		total := pos.Quantity + qty
		pos.EntryPrice = (pos.EntryPrice*pos.Quantity + cost) / total
		pos.Quantity = total
		pos.UnrealizedPnL = (pos.CurrentPrice - pos.EntryPrice) * pos.Quantity
	} else {
		p.positions[sig.Symbol] = &model.Position{
			Symbol:       sig.Symbol,
			Quantity:     qty,
			EntryPrice:   sig.EntryPrice,
			CurrentPrice: sig.EntryPrice,
		}
	}
	p.cash -= cost
	p.orders = append(p.orders, paperOrder{ClientOrderID: clientOrderID, Signal: sig})
	return nil
}

// ClosePosition sells the whole position at its current mark.
func (p *PaperBroker) ClosePosition(_ context.Context, symbol string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[symbol]
	if !ok {
		return fmt.Errorf("paper close %s: %w", symbol, ErrNoPosition)
	}
	p.cash += pos.Quantity * pos.CurrentPrice
	p.realized += pos.UnrealizedPnL
	delete(p.positions, symbol)
	return nil
}

// Mark updates the current price of an open position. Unknown symbols are ignored.
func (p *PaperBroker) Mark(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos, ok := p.positions[symbol]; ok {
		pos.CurrentPrice = price
		pos.UnrealizedPnL = (price - pos.EntryPrice) * pos.Quantity
	}
}

func (p *PaperBroker) acceptedOrders() []paperOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]paperOrder(nil), p.orders...)
}

func (p *PaperBroker) realizedPnL() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.realized
}
