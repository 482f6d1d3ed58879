package recorder

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the trade journal to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the dashboard read while the engine writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infof("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			cycle_id    TEXT,
			candidates  INTEGER,
			symbols     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_ts ON scans(timestamp)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			client_order_id TEXT,
			symbol          TEXT,
			quantity        INTEGER,
			entry_price     REAL,
			stop_price      REAL,
			target_price    REAL,
			vwap            REAL,
			ema8            REAL,
			ema15           REAL,
			rsi             REAL,
			atr             REAL,
			error           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_ts ON orders(timestamp)`,

		`CREATE TABLE IF NOT EXISTS exits (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			symbol       TEXT,
			quantity     REAL,
			entry_price  REAL,
			exit_price   REAL,
			realized_pnl REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exits_ts ON exits(timestamp)`,

		`CREATE TABLE IF NOT EXISTS daily_pnl (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			total_pnl  REAL,
			daily_loss REAL,
			positions  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_pnl_ts ON daily_pnl(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordScan(rec *ScanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	symbols := make([]string, len(rec.Candidates))
	for i, c := range rec.Candidates {
		symbols[i] = c.Symbol
	}
	_, err := r.db.Exec(`INSERT INTO scans (timestamp, cycle_id, candidates, symbols) VALUES (?,?,?,?)`,
		rec.Timestamp.Unix(), rec.CycleID, len(rec.Candidates), strings.Join(symbols, ","),
	)
	return err
}

func (r *SQLiteRecorder) RecordOrder(rec *OrderRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sig := rec.Signal
	ind := sig.Indicators
	_, err := r.db.Exec(`INSERT INTO orders
		(timestamp, client_order_id, symbol, quantity, entry_price, stop_price, target_price,
		 vwap, ema8, ema15, rsi, atr, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.Timestamp.Unix(), rec.ClientOrderID, sig.Symbol, sig.Quantity,
		sig.EntryPrice, sig.StopPrice, sig.TargetPrice,
		ind.VWAP, ind.EMA8, ind.EMA15, ind.RSI, ind.ATR, rec.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordExit(rec *ExitRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := rec.Exit
	_, err := r.db.Exec(`INSERT INTO exits
		(timestamp, symbol, quantity, entry_price, exit_price, realized_pnl)
		VALUES (?,?,?,?,?,?)`,
		rec.Timestamp.Unix(), e.Symbol, e.Quantity, e.EntryPrice, e.ExitPrice, e.RealizedPnL,
	)
	return err
}

func (r *SQLiteRecorder) RecordDailyPnL(rec *DailyPnLRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := rec.Summary
	_, err := r.db.Exec(`INSERT INTO daily_pnl (timestamp, total_pnl, daily_loss, positions) VALUES (?,?,?,?)`,
		rec.Timestamp.Unix(), s.TotalPnL, s.DailyLoss, s.Positions,
	)
	return err
}

// countRows returns the number of rows in one of the journal tables.
func (r *SQLiteRecorder) countRows(table string) (int, error) {
	switch table {
	case "scans", "orders", "exits", "daily_pnl":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	log.Info("closing sqlite recorder")
	return r.db.Close()
}
