package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"GapSentinel/internal/broker"
	"GapSentinel/internal/engine"
	"GapSentinel/internal/notifier"
	"GapSentinel/internal/risk"
	"GapSentinel/internal/state"
)

// ErrBusy is returned when a job of the same kind is already running.
var ErrBusy = errors.New("job already running")

// Schedule holds the cron expressions (with seconds) for every job.
type Schedule struct {
	ScanCron      string
	LiquidateCron string
	RiskResetCron string
}

// Scheduler owns the cron loop and one run lock per job type, so a slow scan
// never overlaps the next one and liquidation never runs twice at once.
type Scheduler struct {
	Cron       *cron.Cron
	Scanner    *engine.Scanner
	Liquidator *engine.Liquidator
	Broker     broker.Client
	Ledger     risk.Ledger
	Store      *state.Store
	Ctx        context.Context
	// LiquidateTimeout bounds one liquidation run. Zero means no deadline.
	LiquidateTimeout time.Duration

	scanMu      sync.Mutex
	liquidateMu sync.Mutex
	now         func() time.Time
}

// NewScheduler creates a new Scheduler running its jobs in loc.
func NewScheduler(ctx context.Context, loc *time.Location, scanner *engine.Scanner, liq *engine.Liquidator,
	b broker.Client, ledger risk.Ledger, store *state.Store) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger := cron.PrintfLogger(log.StandardLogger())
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(logger)),
		),
		Scanner:          scanner,
		Liquidator:       liq,
		Broker:           b,
		Ledger:           ledger,
		Store:            store,
		Ctx:              ctx,
		LiquidateTimeout: 2 * time.Minute,
		now:              time.Now,
	}
}

// RegisterAll registers the scan, liquidation and risk reset jobs.
func (s *Scheduler) RegisterAll(sch Schedule) error {
	if _, err := s.Cron.AddFunc(sch.ScanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	if _, err := s.Cron.AddFunc(sch.LiquidateCron, s.liquidateTask); err != nil {
		return fmt.Errorf("register liquidate task: %w", err)
	}
	if sch.RiskResetCron != "" {
		if _, err := s.Cron.AddFunc(sch.RiskResetCron, s.resetRisk); err != nil {
			return fmt.Errorf("register risk reset: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info("scheduler stopped")
}

// RunScanNow runs one scan cycle unless one is already in flight.
func (s *Scheduler) RunScanNow() (engine.CycleResult, error) {
	if !s.scanMu.TryLock() {
		return engine.CycleResult{}, fmt.Errorf("scan: %w", ErrBusy)
	}
	defer s.scanMu.Unlock()
	return s.Scanner.RunCycle(s.Ctx), nil
}

// RunLiquidationNow runs the end-of-day liquidation unless one is already in flight.
func (s *Scheduler) RunLiquidationNow() (engine.LiquidationResult, error) {
	if !s.liquidateMu.TryLock() {
		return engine.LiquidationResult{}, fmt.Errorf("liquidate: %w", ErrBusy)
	}
	defer s.liquidateMu.Unlock()

	ctx := s.Ctx
	if s.LiquidateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.LiquidateTimeout)
		defer cancel()
	}
	return s.Liquidator.Run(ctx)
}

func (s *Scheduler) scanTask() {
	if _, err := s.RunScanNow(); err != nil {
		log.Warnf("skip scan tick: %v", err)
	}
}

func (s *Scheduler) liquidateTask() {
	log.Info("running end-of-day liquidation")
	res, err := s.RunLiquidationNow()
	if err != nil {
		log.Errorf("liquidation: %v", err)
		return
	}
	log.Info(res.String())
}

func (s *Scheduler) resetRisk() {
	if err := s.Ledger.SetDailyLoss(0); err != nil {
		log.Errorf("reset daily loss: %v", err)
		return
	}
	log.Info("daily loss reset")
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	cmd := strings.Fields(command)
	if len(cmd) == 0 {
		return helpText
	}
	switch strings.ToLower(cmd[0]) {
	case "/status":
		loss, err := s.Ledger.GetDailyLoss()
		if err != nil {
			log.Warnf("read daily loss: %v", err)
		}
		return notifier.FormatStatus(s.Store.Snapshot(), loss)
	case "/positions":
		ctx, cancel := context.WithTimeout(s.Ctx, 15*time.Second)
		defer cancel()
		positions, err := s.Broker.GetOpenPositions(ctx)
		if err != nil {
			return fmt.Sprintf("❌ positions: %v", err)
		}
		return notifier.FormatPositions(positions, s.now())
	case "/scan":
		res, err := s.RunScanNow()
		if err != nil {
			return fmt.Sprintf("⏳ %v", err)
		}
		return res.String()
	case "/liquidate":
		res, err := s.RunLiquidationNow()
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return res.String()
	default:
		return helpText
	}
}

const helpText = "Commands:\n• /status\n• /positions\n• /scan\n• /liquidate"
