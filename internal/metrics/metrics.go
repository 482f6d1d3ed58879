package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cycle outcomes used as the "outcome" label.
const (
	OutcomeOutsideWindow = "outside_window"
	OutcomeDailyLossCap  = "daily_loss_cap"
	OutcomeAccountError  = "account_error"
	OutcomeMaxPositions  = "max_positions"
	OutcomeNoCandidates  = "no_candidates"
	OutcomeNoSignals     = "no_signals"
	OutcomeSubmitted     = "submitted"
)

// Order results used as the "result" label.
const (
	ResultSubmitted = "submitted"
	ResultFailed    = "failed"
	ResultSkipped   = "skipped"
)

// Metrics holds the bot's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	candidates    prometheus.Gauge
	signals       prometheus.Counter
	orders        *prometheus.CounterVec
	exits         prometheus.Counter
	openPositions prometheus.Gauge
	dailyLoss     prometheus.Gauge
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		Registry:      prometheus.NewRegistry(),
		cycles:        prometheus.NewCounterVec(prometheus.CounterOpts{Name: "gap_scan_cycles_total", Help: "Scan cycles by outcome"}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Name: "gap_scan_cycle_seconds", Help: "Wall time of scan cycles that passed the window gate", Buckets: prometheus.DefBuckets}),
		candidates:    prometheus.NewGauge(prometheus.GaugeOpts{Name: "gap_candidates", Help: "Candidates returned by the last scan"}),
		signals:       prometheus.NewCounter(prometheus.CounterOpts{Name: "gap_signals_total", Help: "Entry signals generated"}),
		orders:        prometheus.NewCounterVec(prometheus.CounterOpts{Name: "gap_orders_total", Help: "Bracket orders by result"}, []string{"result"}),
		exits:         prometheus.NewCounter(prometheus.CounterOpts{Name: "gap_exits_total", Help: "Positions closed by the liquidator"}),
		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{Name: "gap_open_positions", Help: "Open positions seen by the last cycle"}),
		dailyLoss:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "gap_daily_loss", Help: "Accumulated daily loss in the risk ledger"}),
	}
	m.Registry.MustRegister(
		m.cycles,
		m.cycleDuration,
		m.candidates,
		m.signals,
		m.orders,
		m.exits,
		m.openPositions,
		m.dailyLoss,
	)
	return m
}

func (m *Metrics) ObserveCycle(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
	if outcome != OutcomeOutsideWindow {
		m.cycleDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) SetCandidates(n int) {
	if m == nil {
		return
	}
	m.candidates.Set(float64(n))
}

func (m *Metrics) AddSignals(n int) {
	if m == nil {
		return
	}
	m.signals.Add(float64(n))
}

func (m *Metrics) CountOrder(result string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(result).Inc()
}

func (m *Metrics) CountExit() {
	if m == nil {
		return
	}
	m.exits.Inc()
}

func (m *Metrics) SetOpenPositions(n int) {
	if m == nil {
		return
	}
	m.openPositions.Set(float64(n))
}

func (m *Metrics) SetDailyLoss(v float64) {
	if m == nil {
		return
	}
	m.dailyLoss.Set(v)
}
