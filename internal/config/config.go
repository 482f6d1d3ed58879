package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"GapSentinel/internal/engine"
	"GapSentinel/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Polygon struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"polygon"`
	Alpaca struct {
		BaseURL   string `yaml:"base_url"`
		KeyID     string `yaml:"key_id"`
		SecretKey string `yaml:"secret_key"`
	} `yaml:"alpaca"`
	Broker struct {
		Paper       bool    `yaml:"paper"`
		PaperEquity float64 `yaml:"paper_equity"`
	} `yaml:"broker"`
	Trading  Trading `yaml:"trading"`
	Schedule struct {
		ScanCron      string `yaml:"scan_cron"`
		LiquidateCron string `yaml:"liquidate_cron"`
		RiskResetCron string `yaml:"risk_reset_cron"`
	} `yaml:"schedule"`
	Risk struct {
		StateFile string `yaml:"state_file"`
	} `yaml:"risk"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Proxy string `yaml:"proxy"`
}

// Trading holds the engine tunables.
type Trading struct {
	MaxPositions int     `yaml:"max_positions"`
	RSIMax       float64 `yaml:"rsi_max"`
	StopPct      float64 `yaml:"stop_pct"`
	ATRMult      float64 `yaml:"atr_mult"`
	RiskPct      float64 `yaml:"risk_pct"`
	ScanWindow   struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"scan_window"`
	PendingTTLMinutes int           `yaml:"pending_ttl_minutes"`
	TopNCandidates    int           `yaml:"top_n_candidates"`
	MaxCandidates     int           `yaml:"max_candidates"`
	MinBars           int           `yaml:"min_bars"`
	BarLimit          int           `yaml:"bar_limit"`
	BarConcurrency    int           `yaml:"bar_concurrency"`
	CycleTimeout      time.Duration `yaml:"cycle_timeout"`
	MaxDailyLoss      float64       `yaml:"max_daily_loss"`
	Timezone          string        `yaml:"timezone"`
}

// Load reads .env (if present) and the YAML file, then applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"LOG_LEVEL":          &c.LogLevel,
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"POLYGON_API_KEY":    &c.Polygon.APIKey,
		"ALPACA_BASE_URL":    &c.Alpaca.BaseURL,
		"ALPACA_KEY_ID":      &c.Alpaca.KeyID,
		"ALPACA_SECRET_KEY":  &c.Alpaca.SecretKey,
		"HTTPS_PROXY":        &c.Proxy,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"RISK_STATE_FILE":    &c.Risk.StateFile,
		"HTTP_ADDR":          &c.HTTP.Addr,
		"CRON_SCAN":          &c.Schedule.ScanCron,
		"CRON_LIQUIDATE":     &c.Schedule.LiquidateCron,
		"TIMEZONE":           &c.Trading.Timezone,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"MAX_DAILY_LOSS": &c.Trading.MaxDailyLoss,
		"RISK_PCT":       &c.Trading.RiskPct,
		"PAPER_EQUITY":   &c.Broker.PaperEquity,
	}
	for key, dst := range floats {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("env %s: %w", key, err)
			}
			*dst = f
		}
	}

	if v := os.Getenv("MAX_POSITIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env MAX_POSITIONS: %w", err)
		}
		c.Trading.MaxPositions = n
	}
	if v := os.Getenv("PAPER_TRADING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env PAPER_TRADING: %w", err)
		}
		c.Broker.Paper = b
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Alpaca.BaseURL == "" {
		c.Alpaca.BaseURL = "https://paper-api.alpaca.markets"
	}
	if c.Broker.PaperEquity == 0 {
		c.Broker.PaperEquity = 25_000
	}

	t := &c.Trading
	setInt(&t.MaxPositions, 3)
	setFloat(&t.RSIMax, 70)
	setFloat(&t.StopPct, 0.03)
	setFloat(&t.ATRMult, 2)
	setFloat(&t.RiskPct, 0.01)
	if t.ScanWindow.Start == "" {
		t.ScanWindow.Start = "09:30"
	}
	if t.ScanWindow.End == "" {
		t.ScanWindow.End = "11:00"
	}
	setInt(&t.PendingTTLMinutes, 20)
	setInt(&t.TopNCandidates, 6)
	setInt(&t.MaxCandidates, 20)
	setInt(&t.MinBars, 50)
	setInt(&t.BarLimit, 120)
	setInt(&t.BarConcurrency, 4)
	if t.CycleTimeout == 0 {
		t.CycleTimeout = 50 * time.Second
	}
	if t.Timezone == "" {
		t.Timezone = "America/New_York"
	}

	if c.Schedule.ScanCron == "" {
		c.Schedule.ScanCron = "0 * 9-11 * * 1-5"
	}
	if c.Schedule.LiquidateCron == "" {
		c.Schedule.LiquidateCron = "0 55 15 * * 1-5"
	}
	if c.Schedule.RiskResetCron == "" {
		c.Schedule.RiskResetCron = "0 0 9 * * 1-5"
	}
	if c.Risk.StateFile == "" {
		c.Risk.StateFile = "data/risk_state.json"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/gap_sentinel.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

// UsePaper reports whether orders go to the in-memory paper broker.
func (c *Config) UsePaper() bool {
	return c.Broker.Paper || c.Alpaca.KeyID == "" || c.Alpaca.SecretKey == ""
}

// Validate fails fast on values the engine cannot run with.
func (c *Config) Validate() error {
	t := c.Trading
	if _, err := time.LoadLocation(t.Timezone); err != nil {
		return fmt.Errorf("trading.timezone: %w", err)
	}
	if _, err := engine.ParseWindow(t.ScanWindow.Start, t.ScanWindow.End); err != nil {
		return fmt.Errorf("trading.scan_window: %w", err)
	}
	if t.MaxPositions < 1 {
		return fmt.Errorf("trading.max_positions must be at least 1")
	}
	for name, v := range map[string]float64{"stop_pct": t.StopPct, "risk_pct": t.RiskPct} {
		if v <= 0 || v >= 1 {
			return fmt.Errorf("trading.%s must be in (0,1), got %v", name, v)
		}
	}
	if t.ATRMult <= 0 {
		return fmt.Errorf("trading.atr_mult must be positive")
	}
	if t.RSIMax <= 0 || t.RSIMax > 100 {
		return fmt.Errorf("trading.rsi_max must be in (0,100]")
	}
	if t.MaxDailyLoss < 0 {
		return fmt.Errorf("trading.max_daily_loss must not be negative")
	}
	for name, v := range map[string]int{
		"top_n_candidates": t.TopNCandidates,
		"max_candidates":   t.MaxCandidates,
		"min_bars":         t.MinBars,
		"bar_limit":        t.BarLimit,
		"bar_concurrency":  t.BarConcurrency,
	} {
		if v < 1 {
			return fmt.Errorf("trading.%s must be at least 1, got %d", name, v)
		}
	}
	if t.BarLimit < t.MinBars {
		return fmt.Errorf("trading.bar_limit %d is below min_bars %d", t.BarLimit, t.MinBars)
	}
	if t.CycleTimeout < 0 {
		return fmt.Errorf("trading.cycle_timeout must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// Location returns the exchange time zone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Trading.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PendingTTL returns the duplicate order cooldown.
func (c *Config) PendingTTL() time.Duration {
	return time.Duration(c.Trading.PendingTTLMinutes) * time.Minute
}

// EngineConfig builds the scan cycle configuration.
func (c *Config) EngineConfig() (engine.Config, error) {
	t := c.Trading
	window, err := engine.ParseWindow(t.ScanWindow.Start, t.ScanWindow.End)
	if err != nil {
		return engine.Config{}, err
	}

	filter := strategy.DefaultFilter()
	filter.MaxCandidates = t.MaxCandidates

	params := strategy.DefaultParams()
	params.RSIMax = t.RSIMax
	params.StopPct = t.StopPct
	params.ATRMult = t.ATRMult
	params.RiskPct = t.RiskPct
	params.MinBars = t.MinBars

	return engine.Config{
		MaxPositions:   t.MaxPositions,
		TopN:           t.TopNCandidates,
		BarLimit:       t.BarLimit,
		BarConcurrency: t.BarConcurrency,
		CycleTimeout:   t.CycleTimeout,
		Window:         window,
		Location:       c.Location(),
		MaxDailyLoss:   t.MaxDailyLoss,
		Filter:         filter,
		Params:         params,
	}, nil
}
