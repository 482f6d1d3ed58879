package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GapSentinel/internal/broker"
	"GapSentinel/internal/engine"
	"GapSentinel/internal/model"
	"GapSentinel/internal/risk"
	"GapSentinel/internal/state"
)

type emptyMarket struct{}

func (emptyMarket) ListCandidates(context.Context) ([]model.RawTicker, error) { return nil, nil }

func (emptyMarket) GetBars(context.Context, string, int) ([]model.Bar, error) { return nil, nil }

func newTestScheduler(t *testing.T) (*Scheduler, *broker.PaperBroker, *risk.MemoryLedger) {
	t.Helper()
	paper := broker.NewPaperBroker(25_000)
	ledger := &risk.MemoryLedger{}
	store := state.NewStore(0)
	deps := engine.Deps{Market: emptyMarket{}, Broker: paper, Ledger: ledger, Store: store}
	cfg := engine.DefaultConfig()
	cfg.Location = time.UTC
	cfg.Window = engine.Window{Start: 0, End: 24 * time.Hour}

	s := NewScheduler(context.Background(), time.UTC, engine.NewScanner(cfg, deps), engine.NewLiquidator(deps), paper, ledger, store)
	return s, paper, ledger
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	require.NoError(t, s.RegisterAll(Schedule{
		ScanCron:      "0 * 9-11 * * 1-5",
		LiquidateCron: "0 55 15 * * 1-5",
		RiskResetCron: "0 0 9 * * 1-5",
	}))
	assert.Len(t, s.Cron.Entries(), 3)

	s2, _, _ := newTestScheduler(t)
	assert.Error(t, s2.RegisterAll(Schedule{ScanCron: "every minute", LiquidateCron: "0 55 15 * * 1-5"}))
}

func TestRunScanNow_RejectsOverlap(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	s.scanMu.Lock()
	_, err := s.RunScanNow()
	assert.True(t, errors.Is(err, ErrBusy))
	s.scanMu.Unlock()

	res, err := s.RunScanNow()
	require.NoError(t, err)
	assert.Equal(t, "no_candidates", res.Outcome)
	assert.Equal(t, 1, s.Store.Snapshot().Stats.Cycles)
}

func TestRunLiquidationNow_RejectsOverlap(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	s.liquidateMu.Lock()
	defer s.liquidateMu.Unlock()

	_, err := s.RunLiquidationNow()
	assert.True(t, errors.Is(err, ErrBusy))
}

func TestHandleCommand(t *testing.T) {
	s, paper, ledger := newTestScheduler(t)
	require.NoError(t, paper.PlaceBracketOrder(context.Background(), model.Signal{Symbol: "GAPR", EntryPrice: 5, Quantity: 100}, "id-1"))
	paper.Mark("GAPR", 4.9)

	assert.Contains(t, s.HandleCommand("/status"), "Engine status")
	assert.Contains(t, s.HandleCommand("/positions"), "GAPR")
	assert.Contains(t, s.HandleCommand("/scan"), "no_candidates")
	assert.Contains(t, s.HandleCommand("/liquidate"), "closed 1 positions")
	assert.Equal(t, helpText, s.HandleCommand("hello"))
	assert.Equal(t, helpText, s.HandleCommand(""))

	loss, _ := ledger.GetDailyLoss()
	assert.InDelta(t, 10, loss, 1e-6)
	assert.Equal(t, "No open positions", s.HandleCommand("/positions"))

	s.resetRisk()
	loss, _ = ledger.GetDailyLoss()
	assert.Equal(t, 0.0, loss)
}
