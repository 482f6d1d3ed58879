package engine

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"GapSentinel/internal/broker"
	"GapSentinel/internal/model"
	"GapSentinel/internal/state"
)

// LiquidationResult summarizes one end-of-day run.
type LiquidationResult struct {
	Exits     []model.ExitPayload
	Failed    []string
	TotalPnL  float64
	DailyLoss float64
}

func (r LiquidationResult) String() string {
	return fmt.Sprintf("closed %d positions, %d failed, pnl %+.2f, daily loss %.2f",
		len(r.Exits), len(r.Failed), r.TotalPnL, r.DailyLoss)
}

// Liquidator flattens every open position at the end of the session.
type Liquidator struct {
	deps Deps
}

// NewLiquidator creates a liquidator. Broker is required.
func NewLiquidator(deps Deps) *Liquidator {
	deps.fill()
	return &Liquidator{deps: deps}
}

// Run closes all open positions and books the realized P&L against the risk ledger.
// Losses raise the ledger's daily loss and gains lower it. Only closes the broker
// accepted count toward the total.
func (l *Liquidator) Run(ctx context.Context) (LiquidationResult, error) {
	var res LiquidationResult
	positions, err := l.deps.Broker.GetOpenPositions(ctx)
	if err != nil {
		return res, fmt.Errorf("get positions: %w", err)
	}
	if l.refreshMarks(ctx, positions) {
		if positions, err = l.deps.Broker.GetOpenPositions(ctx); err != nil {
			return res, fmt.Errorf("get positions: %w", err)
		}
	}
	log.Infof("liquidating %d positions", len(positions))

	for _, pos := range positions {
		logger := log.WithField("symbol", pos.Symbol)
		if err := l.deps.Broker.ClosePosition(ctx, pos.Symbol); err != nil {
			logger.Errorf("close position: %v", err)
			res.Failed = append(res.Failed, pos.Symbol)
			continue
		}

		exit := model.ExitPayload{
			Symbol:      pos.Symbol,
			Quantity:    pos.Quantity,
			EntryPrice:  pos.EntryPrice,
			ExitPrice:   pos.CurrentPrice,
			RealizedPnL: pos.UnrealizedPnL,
		}
		now := l.deps.Now()
		res.Exits = append(res.Exits, exit)
		res.TotalPnL += exit.RealizedPnL
		logger.Infof("closed qty=%.0f pnl=%+.2f", exit.Quantity, exit.RealizedPnL)

		l.deps.Store.AddTrade(state.Trade{
			Time:     now,
			Symbol:   pos.Symbol,
			Side:     state.SideExit,
			Quantity: pos.Quantity,
			Price:    pos.CurrentPrice,
			PnL:      exit.RealizedPnL,
		})
		l.deps.Metrics.CountExit()
		l.deps.Notifier.Publish(model.EventExit, exit, now)
	}

	now := l.deps.Now()
	l.deps.Store.RecordLiquidation(res.TotalPnL, now)

	if res.TotalPnL != 0 {
		loss, err := l.deps.Ledger.AddDailyLoss(-res.TotalPnL)
		if err != nil {
			log.Errorf("update daily loss: %v", err)
		}
		res.DailyLoss = loss
	} else if loss, err := l.deps.Ledger.GetDailyLoss(); err == nil {
		res.DailyLoss = loss
	}
	l.deps.Metrics.SetDailyLoss(res.DailyLoss)

	if res.TotalPnL < 0 {
		l.deps.Notifier.Publish(model.EventDailyPnL, model.DailyPnLPayload{
			TotalPnL:  res.TotalPnL,
			DailyLoss: res.DailyLoss,
			Positions: len(res.Exits),
		}, now)
	}
	return res, nil
}

// refreshMarks prices positions at their last minute close when the broker has no live quotes.
// It reports whether any mark was applied.
func (l *Liquidator) refreshMarks(ctx context.Context, positions []model.Position) bool {
	m, ok := l.deps.Broker.(broker.Marker)
	if !ok || l.deps.Market == nil {
		return false
	}
	marked := false
	for _, pos := range positions {
		logger := log.WithField("symbol", pos.Symbol)
		bars, err := l.deps.Market.GetBars(ctx, pos.Symbol, 1)
		if err != nil {
			logger.Warnf("get mark bar: %v", err)
			continue
		}
		if len(bars) == 0 {
			logger.Warn("no bar to mark, closing at last known price")
			continue
		}
		m.Mark(pos.Symbol, bars[len(bars)-1].Close)
		marked = true
	}
	return marked
}
