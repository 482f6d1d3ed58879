package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"GapSentinel/internal/broker"
	"GapSentinel/internal/collector"
	"GapSentinel/internal/config"
	"GapSentinel/internal/engine"
	"GapSentinel/internal/guard"
	"GapSentinel/internal/metrics"
	"GapSentinel/internal/model"
	"GapSentinel/internal/notifier"
	"GapSentinel/internal/recorder"
	"GapSentinel/internal/risk"
	"GapSentinel/internal/state"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg        *config.Config
	bus        *notifier.Bus
	telegram   *notifier.TelegramNotifier
	recorder   recorder.Recorder
	broker     broker.Client
	ledger     risk.Ledger
	guard      *guard.PendingOrders
	store      *state.Store
	metrics    *metrics.Metrics
	scanner    *engine.Scanner
	liquidator *engine.Liquidator
}

func newApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	setupLogging(cfg.LogLevel)

	ec, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		bus:     notifier.NewBus(),
		guard:   guard.NewPendingOrders(cfg.PendingTTL()),
		store:   state.NewStore(state.DefaultMaxTrades),
		metrics: metrics.New(),
	}

	var fetcher collector.Fetcher
	if cfg.Polygon.APIKey != "" {
		fetcher = collector.NewPolygonFetcher(cfg.Polygon.APIKey)
	} else {
		fetcher = demoFetcher()
	}
	log.Infof("data source: %s", fetcher.Name())

	if cfg.UsePaper() {
		a.broker = broker.NewPaperBroker(cfg.Broker.PaperEquity)
	} else {
		a.broker = broker.NewAlpacaClient(cfg.Alpaca.BaseURL, cfg.Alpaca.KeyID, cfg.Alpaca.SecretKey, cfg.Proxy)
	}
	log.Infof("broker: %s", a.broker.Name())

	ledger, err := risk.NewFileLedger(cfg.Risk.StateFile)
	if err != nil {
		return nil, fmt.Errorf("init risk ledger: %w", err)
	}
	a.ledger = ledger

	if cfg.Database.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warnf("init sqlite recorder failed, using noop: %v", err)
			a.recorder = recorder.NewNoopRecorder()
		} else {
			a.recorder = sr
		}
	} else {
		a.recorder = recorder.NewNoopRecorder()
	}

	a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	if err := a.subscribe(ctx); err != nil {
		a.recorder.Close()
		return nil, err
	}

	deps := engine.Deps{
		Market:   collector.NewCollector(fetcher, ec.Filter),
		Broker:   a.broker,
		Guard:    a.guard,
		Ledger:   a.ledger,
		Notifier: a.bus,
		Store:    a.store,
		Metrics:  a.metrics,
	}
	a.scanner = engine.NewScanner(ec, deps)
	a.liquidator = engine.NewLiquidator(deps)
	return a, nil
}

func (a *app) subscribe(ctx context.Context) error {
	if err := a.bus.Subscribe("log", notifier.LogHandler); err != nil {
		return err
	}
	rec := a.recorder
	if err := a.bus.Subscribe("recorder", func(evt model.Event) error {
		return recorder.HandleEvent(rec, evt)
	}, recorder.JournalEvents...); err != nil {
		return err
	}
	if a.telegram.Enabled() {
		if err := a.bus.Subscribe("telegram", a.telegram.Handler(ctx), notifier.TelegramEvents...); err != nil {
			return err
		}
	}
	return nil
}

// Close drains pending notifications and closes the journal.
func (a *app) Close() {
	a.bus.Wait()
	if err := a.recorder.Close(); err != nil {
		log.Warnf("close recorder: %v", err)
	}
}

func setupLogging(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.SetLevel(log.InfoLevel)
		log.Warnf("unknown log level %q, using info", level)
		return
	}
	log.SetLevel(lvl)
}

// demoFetcher serves a small fixed universe when no market data key is configured.
func demoFetcher() *collector.MockFetcher {
	return &collector.MockFetcher{
		Tickers: []model.RawTicker{
			{Symbol: "DEMO", LastPrice: 4.2, DayVolume: 3_500_000, PrevClose: 3.1},
			{Symbol: "GAPX", LastPrice: 7.85, DayVolume: 4_800_000, PrevClose: 6.4},
			{Symbol: "SLOW", LastPrice: 12.1, DayVolume: 600_000, PrevClose: 12},
		},
		Fundamentals: map[string]collector.Fundamentals{
			"DEMO": {MarketCap: 85_000_000, FloatShares: 9_000_000},
			"GAPX": {MarketCap: 240_000_000, FloatShares: 14_000_000},
			"SLOW": {MarketCap: 900_000_000, FloatShares: 60_000_000},
		},
	}
}
