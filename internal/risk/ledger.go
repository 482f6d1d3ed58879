package risk

import (
	"fmt"
	"sync"

	"GapSentinel/internal/model"
)

// Ledger is the single shared daily-loss record. The value is a loss, so
// losses raise it and gains lower it; liquidation adds the negated realized P&L.
type Ledger interface {
	GetDailyLoss() (float64, error)
	SetDailyLoss(v float64) error
	// AddDailyLoss applies delta as one read-modify-write and returns the new value.
	AddDailyLoss(delta float64) (float64, error)
}

// FileLedger persists the daily loss to a JSON file with concurrency safety.
type FileLedger struct {
	mu       sync.Mutex
	state    *model.RiskState
	filePath string
}

// NewFileLedger loads the ledger from filePath, starting at zero if the file is absent.
func NewFileLedger(filePath string) (*FileLedger, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, fmt.Errorf("load risk state: %w", err)
	}
	return &FileLedger{state: state, filePath: filePath}, nil
}

// GetDailyLoss returns the accumulated daily loss.
func (l *FileLedger) GetDailyLoss() (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.DailyLossAccumulated, nil
}

// SetDailyLoss overwrites the accumulated daily loss.
func (l *FileLedger) SetDailyLoss(v float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.state.DailyLossAccumulated
	l.state.DailyLossAccumulated = v
	if err := l.save(); err != nil {
		l.state.DailyLossAccumulated = prev
		return fmt.Errorf("save risk state: %w", err)
	}
	return nil
}

// AddDailyLoss adds delta to the accumulated daily loss.
func (l *FileLedger) AddDailyLoss(delta float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.state.DailyLossAccumulated
	l.state.DailyLossAccumulated = prev + delta
	if err := l.save(); err != nil {
		l.state.DailyLossAccumulated = prev
		return prev, fmt.Errorf("save risk state: %w", err)
	}
	return l.state.DailyLossAccumulated, nil
}

func (l *FileLedger) save() error {
	return SaveState(l.filePath, l.state)
}

// MemoryLedger is an in-process Ledger for tests and dry runs.
type MemoryLedger struct {
	mu   sync.Mutex
	loss float64
}

func (m *MemoryLedger) GetDailyLoss() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loss, nil
}

func (m *MemoryLedger) SetDailyLoss(v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loss = v
	return nil
}

func (m *MemoryLedger) AddDailyLoss(delta float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loss += delta
	return m.loss, nil
}
