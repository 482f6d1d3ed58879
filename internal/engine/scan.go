package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"GapSentinel/internal/broker"
	"GapSentinel/internal/guard"
	"GapSentinel/internal/metrics"
	"GapSentinel/internal/model"
	"GapSentinel/internal/notifier"
	"GapSentinel/internal/risk"
	"GapSentinel/internal/state"
	"GapSentinel/internal/strategy"
)

// MarketData supplies the candidate universe and minute bars.
type MarketData interface {
	ListCandidates(ctx context.Context) ([]model.RawTicker, error)
	GetBars(ctx context.Context, symbol string, limit int) ([]model.Bar, error)
}

// Config tunes the scan cycle.
type Config struct {
	MaxPositions   int
	TopN           int
	BarLimit       int
	BarConcurrency int
	CycleTimeout   time.Duration
	Window         Window
	Location       *time.Location
	// MaxDailyLoss stops new entries once the ledger reaches it. Zero disables the cap.
	MaxDailyLoss float64
	Filter       strategy.Filter
	Params       strategy.Params
}

// DefaultConfig returns the stock scan configuration (09:30-11:00 New York).
func DefaultConfig() Config {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return Config{
		MaxPositions:   3,
		TopN:           6,
		BarLimit:       120,
		BarConcurrency: 4,
		CycleTimeout:   50 * time.Second,
		Window:         Window{Start: 9*time.Hour + 30*time.Minute, End: 11 * time.Hour},
		Location:       loc,
		Filter:         strategy.DefaultFilter(),
		Params:         strategy.DefaultParams(),
	}
}

// Deps are the collaborators shared by the scanner and the liquidator.
type Deps struct {
	Market   MarketData
	Broker   broker.Client
	Guard    *guard.PendingOrders
	Ledger   risk.Ledger
	Notifier notifier.Notifier
	Store    *state.Store
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

func (d *Deps) fill() {
	if d.Notifier == nil {
		d.Notifier = notifier.Discard{}
	}
	if d.Store == nil {
		d.Store = state.NewStore(0)
	}
	if d.Guard == nil {
		d.Guard = guard.NewPendingOrders(guard.DefaultTTL)
	}
	if d.Ledger == nil {
		d.Ledger = &risk.MemoryLedger{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

// CycleResult summarizes one scan cycle.
type CycleResult struct {
	CycleID    string
	Outcome    string
	Candidates []model.Candidate
	Signals    []model.Signal
	Submitted  []string
	Skipped    []string
	Failed     []string
}

func (r CycleResult) String() string {
	return fmt.Sprintf("cycle %s: %s, %d candidates, %d signals, %d submitted, %d skipped, %d failed",
		r.CycleID, r.Outcome, len(r.Candidates), len(r.Signals), len(r.Submitted), len(r.Skipped), len(r.Failed))
}

// Scanner runs the intraday entry cycle.
type Scanner struct {
	cfg  Config
	deps Deps
}

// NewScanner creates a scanner. Market and Broker are required; other deps get in-memory defaults.
func NewScanner(cfg Config, deps Deps) *Scanner {
	deps.fill()
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 6
	}
	if cfg.BarConcurrency <= 0 {
		cfg.BarConcurrency = 1
	}
	return &Scanner{cfg: cfg, deps: deps}
}

// RunCycle executes gate, account, candidates, bars, signals and submit in order.
// Collaborator failures end the cycle early or skip a symbol; they never surface as errors.
func (s *Scanner) RunCycle(ctx context.Context) CycleResult {
	start := s.deps.Now()
	res := CycleResult{CycleID: uuid.NewString()}
	logger := log.WithField("cycle", res.CycleID)

	s.deps.Store.RecordHeartbeat(res.CycleID, start)
	s.deps.Notifier.Publish(model.EventHeartbeat, model.HeartbeatPayload{CycleID: res.CycleID}, start)

	defer func() {
		s.deps.Metrics.ObserveCycle(res.Outcome, s.deps.Now().Sub(start))
		logger.Debugf("cycle done: %s", res.Outcome)
	}()

	if n := s.deps.Guard.Cleanup(start); n > 0 {
		logger.Debugf("expired %d pending reservations", n)
	}

	if !s.cfg.Window.Contains(start.In(s.cfg.Location)) {
		res.Outcome = metrics.OutcomeOutsideWindow
		return res
	}
	s.deps.Store.MarkActive()

	if s.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CycleTimeout)
		defer cancel()
	}

	if s.cfg.MaxDailyLoss > 0 {
		loss, err := s.deps.Ledger.GetDailyLoss()
		if err != nil {
			logger.Warnf("read daily loss: %v", err)
		}
		s.deps.Metrics.SetDailyLoss(loss)
		if loss >= s.cfg.MaxDailyLoss {
			logger.Infof("daily loss %.2f reached cap %.2f, no new entries", loss, s.cfg.MaxDailyLoss)
			res.Outcome = metrics.OutcomeDailyLossCap
			return res
		}
	}

	equity, err := s.deps.Broker.GetEquity(ctx)
	if err != nil {
		logger.Warnf("get equity: %v", err)
		res.Outcome = metrics.OutcomeAccountError
		return res
	}
	positions, err := s.deps.Broker.GetOpenPositions(ctx)
	if err != nil {
		logger.Warnf("get positions: %v", err)
		res.Outcome = metrics.OutcomeAccountError
		return res
	}
	s.deps.Metrics.SetOpenPositions(len(positions))
	if len(positions) >= s.cfg.MaxPositions {
		logger.Debugf("%d open positions, max %d", len(positions), s.cfg.MaxPositions)
		res.Outcome = metrics.OutcomeMaxPositions
		return res
	}
	slots := s.cfg.MaxPositions - len(positions)

	raw, err := s.deps.Market.ListCandidates(ctx)
	if err != nil {
		logger.Warnf("list candidates: %v", err)
	}
	res.Candidates = strategy.FilterCandidates(raw, s.cfg.Filter)
	s.deps.Metrics.SetCandidates(len(res.Candidates))
	s.deps.Store.SetScanner(res.Candidates, start)
	s.deps.Notifier.Publish(model.EventScan, model.ScanPayload{CycleID: res.CycleID, Candidates: res.Candidates}, start)
	if len(res.Candidates) == 0 {
		res.Outcome = metrics.OutcomeNoCandidates
		return res
	}

	top := res.Candidates
	if len(top) > s.cfg.TopN {
		top = top[:s.cfg.TopN]
	}
	bars := s.fetchBars(ctx, top)
	s.markHeld(top, bars)

	for i, cand := range top {
		sig, checks := strategy.Evaluate(cand, bars[i], equity, s.cfg.Params)
		if sig == nil {
			if c, ok := strategy.FirstFailure(checks); ok {
				logger.WithField("symbol", cand.Symbol).Debugf("no entry: %s %s", c.Name, c.Commentary)
			}
			continue
		}
		res.Signals = append(res.Signals, *sig)
		s.deps.Notifier.Publish(model.EventSignal, *sig, s.deps.Now())
	}
	s.deps.Store.CountSignals(len(res.Signals))
	s.deps.Metrics.AddSignals(len(res.Signals))
	if len(res.Signals) == 0 {
		res.Outcome = metrics.OutcomeNoSignals
		return res
	}

	forward := res.Signals
	if len(forward) > slots {
		logger.Debugf("%d signals for %d free slots", len(forward), slots)
		forward = forward[:slots]
	}
	for _, sig := range forward {
		s.submit(ctx, logger, sig, &res)
	}
	res.Outcome = metrics.OutcomeSubmitted
	return res
}

// fetchBars loads bars for each candidate with bounded concurrency. Results keep the candidate order.
func (s *Scanner) fetchBars(ctx context.Context, cands []model.Candidate) [][]model.Bar {
	out := make([][]model.Bar, len(cands))
	var g errgroup.Group
	g.SetLimit(s.cfg.BarConcurrency)
	for i, c := range cands {
		i, c := i, c
		g.Go(func() error {
			bars, err := s.deps.Market.GetBars(ctx, c.Symbol, s.cfg.BarLimit)
			if err != nil {
				log.WithField("symbol", c.Symbol).Warnf("get bars: %v", err)
				return nil
			}
			out[i] = bars
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// markHeld reprices held candidates at their last close on brokers without live quotes.
func (s *Scanner) markHeld(cands []model.Candidate, bars [][]model.Bar) {
	m, ok := s.deps.Broker.(broker.Marker)
	if !ok {
		return
	}
	for i, c := range cands {
		if n := len(bars[i]); n > 0 {
			m.Mark(c.Symbol, bars[i][n-1].Close)
		}
	}
}

func (s *Scanner) submit(ctx context.Context, logger *log.Entry, sig model.Signal, res *CycleResult) {
	logger = logger.WithField("symbol", sig.Symbol)
	if !s.deps.Guard.TryReserve(sig.Symbol) {
		logger.Info("order pending, skipping")
		res.Skipped = append(res.Skipped, sig.Symbol)
		s.deps.Store.CountSkipped()
		s.deps.Metrics.CountOrder(metrics.ResultSkipped)
		return
	}

	id := uuid.NewString()
	trade := state.Trade{
		Symbol:        sig.Symbol,
		Side:          state.SideEntry,
		Quantity:      float64(sig.Quantity),
		Price:         sig.EntryPrice,
		StopPrice:     sig.StopPrice,
		TargetPrice:   sig.TargetPrice,
		ClientOrderID: id,
	}
	err := s.deps.Broker.PlaceBracketOrder(ctx, sig, id)
	trade.Time = s.deps.Now()
	if err != nil {
		logger.Errorf("place bracket order: %v", err)
		trade.Error = err.Error()
		res.Failed = append(res.Failed, sig.Symbol)
		s.deps.Store.AddTrade(trade)
		s.deps.Metrics.CountOrder(metrics.ResultFailed)
		s.deps.Notifier.Publish(model.EventOrderFailed, model.OrderPayload{Signal: sig, ClientOrderID: id, Error: err.Error()}, trade.Time)
		return
	}

	logger.Infof("bracket order submitted qty=%d entry=%.2f stop=%.2f target=%.2f",
		sig.Quantity, sig.EntryPrice, sig.StopPrice, sig.TargetPrice)
	res.Submitted = append(res.Submitted, sig.Symbol)
	s.deps.Store.AddTrade(trade)
	s.deps.Metrics.CountOrder(metrics.ResultSubmitted)
	s.deps.Notifier.Publish(model.EventOrder, model.OrderPayload{Signal: sig, ClientOrderID: id}, trade.Time)
}
