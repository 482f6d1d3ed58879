package notifier

import (
	"fmt"
	"strings"
	"time"

	"GapSentinel/internal/model"
	"GapSentinel/internal/state"
)

// FormatEvent renders an event as a Telegram HTML message. Unknown events render empty.
func FormatEvent(evt model.Event) string {
	switch p := evt.Payload.(type) {
	case model.OrderPayload:
		if p.Error != "" {
			return fmt.Sprintf("❌ <b>Order failed</b> %s\n%s", p.Signal.Symbol, p.Error)
		}
		return FormatOrder(p.Signal)
	case model.ExitPayload:
		return fmt.Sprintf("🚪 <b>Exit</b> %s\nqty %.0f @ %.2f → %.2f\nP&L: %+.2f",
			p.Symbol, p.Quantity, p.EntryPrice, p.ExitPrice, p.RealizedPnL)
	case model.DailyPnLPayload:
		return fmt.Sprintf("📉 <b>Daily P&L</b> | %s\n\nRealized: %+.2f over %d positions\nDaily loss: %.2f",
			evt.Timestamp.Format("2006-01-02"), p.TotalPnL, p.Positions, p.DailyLoss)
	default:
		return ""
	}
}

// FormatOrder formats a submitted bracket order.
func FormatOrder(sig model.Signal) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🚀 <b>Entry</b> %s x%d\n\n", sig.Symbol, sig.Quantity))
	b.WriteString(fmt.Sprintf("Limit: %.2f\n", sig.EntryPrice))
	b.WriteString(fmt.Sprintf("Stop: %.2f | Target: %.2f\n", sig.StopPrice, sig.TargetPrice))
	ind := sig.Indicators
	if ind.Close > 0 {
		b.WriteString(fmt.Sprintf("VWAP %.2f | EMA8 %.2f | EMA15 %.2f | RSI %.0f | ATR %.3f\n",
			ind.VWAP, ind.EMA8, ind.EMA15, ind.RSI, ind.ATR))
	}
	return b.String()
}

// FormatStatus formats the engine counters and latest scan for display.
func FormatStatus(snap state.Snapshot, dailyLoss float64) string {
	var b strings.Builder
	st := snap.Stats
	b.WriteString("📦 <b>Engine status</b>\n\n")
	b.WriteString(fmt.Sprintf("Cycles: %d (active %d)\n", st.Cycles, st.ActiveCycles))
	if !st.LastHeartbeat.IsZero() {
		b.WriteString(fmt.Sprintf("Last heartbeat: %s\n", st.LastHeartbeat.Format("15:04:05")))
	}
	b.WriteString(fmt.Sprintf("Signals: %d | Orders: %d ok / %d failed / %d skipped\n",
		st.Signals, st.OrdersSubmitted, st.OrdersFailed, st.OrdersSkipped))
	b.WriteString(fmt.Sprintf("Daily loss: %.2f\n", dailyLoss))
	if len(snap.Scanner) > 0 {
		b.WriteString(fmt.Sprintf("\n🔎 Scanner (%s):\n", snap.ScannedAt.Format("15:04")))
		for i, c := range snap.Scanner {
			if i == 5 {
				b.WriteString(fmt.Sprintf("  … %d more\n", len(snap.Scanner)-5))
				break
			}
			b.WriteString(fmt.Sprintf("  %s %.2f rvol %.1f\n", c.Symbol, c.LastPrice, c.RelativeVolume))
		}
	}
	return b.String()
}

// FormatPositions lists open positions.
func FormatPositions(positions []model.Position, at time.Time) string {
	if len(positions) == 0 {
		return "No open positions"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Positions</b> | %s\n\n", at.Format("15:04")))
	total := 0.0
	for _, p := range positions {
		b.WriteString(fmt.Sprintf("%s %.0f @ %.2f → %.2f (%+.2f)\n",
			p.Symbol, p.Quantity, p.EntryPrice, p.CurrentPrice, p.UnrealizedPnL))
		total += p.UnrealizedPnL
	}
	b.WriteString(fmt.Sprintf("\nUnrealized: %+.2f", total))
	return b.String()
}
