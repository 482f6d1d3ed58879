package guard

import (
	"sync"
	"time"
)

// DefaultTTL is how long a reservation blocks re-entry of the same symbol.
const DefaultTTL = 20 * time.Minute

// PendingOrders remembers symbols with a recently submitted entry order.
// Reservations expire after the TTL; nothing removes them earlier.
type PendingOrders struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time
	now     func() time.Time
}

// NewPendingOrders creates an empty guard. A non-positive ttl selects DefaultTTL.
func NewPendingOrders(ttl time.Duration) *PendingOrders {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PendingOrders{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (p *PendingOrders) WithClock(now func() time.Time) *PendingOrders {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
	return p
}

// IsPending reports whether symbol has an unexpired reservation.
func (p *PendingOrders) IsPending(symbol string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.liveLocked(symbol, p.now())
}

// Reserve inserts or refreshes the reservation for symbol.
func (p *PendingOrders) Reserve(symbol string) time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	exp := p.now().Add(p.ttl)
	p.entries[symbol] = exp
	return exp
}

// TryReserve reserves symbol only if it has no live reservation.
// Check and insert happen under one lock so overlapping cycles cannot both win.
func (p *PendingOrders) TryReserve(symbol string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if p.liveLocked(symbol, now) {
		return false
	}
	p.entries[symbol] = now.Add(p.ttl)
	return true
}

// Cleanup drops reservations that expired before now and returns how many were removed.
func (p *PendingOrders) Cleanup(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	removed := 0
	for sym, exp := range p.entries {
		if exp.Before(now) {
			delete(p.entries, sym)
			removed++
		}
	}
	return removed
}

// Snapshot copies the stored reservations, including any not yet cleaned up.
func (p *PendingOrders) Snapshot() map[string]time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]time.Time, len(p.entries))
	for k, v := range p.entries {
		out[k] = v
	}
	return out
}

func (p *PendingOrders) liveLocked(symbol string, now time.Time) bool {
	exp, ok := p.entries[symbol]
	return ok && !exp.Before(now)
}
