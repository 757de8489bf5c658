package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/SHKSHBZ/AlgoTrader/internal/ledger"
	"github.com/SHKSHBZ/AlgoTrader/internal/types"
)

// SQLiteRecorder persists signals, trades and cycle summaries to a SQLite
// database for offline analysis.
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

	// WAL mode so dashboards can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			direction   TEXT,
			confidence  TEXT,
			final_score REAL,
			votes       INTEGER,
			regime      TEXT,
			trend       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol       TEXT NOT NULL,
			quantity     INTEGER,
			entry_price  REAL,
			exit_price   REAL,
			entry_ts     INTEGER,
			exit_ts      INTEGER,
			realized_pnl REAL,
			outcome      TEXT,
			reason       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_exit_ts ON trades(exit_ts)`,

		`CREATE TABLE IF NOT EXISTS cycles (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			capital        REAL,
			open_positions INTEGER,
			entered        INTEGER,
			exited         INTEGER,
			win_rate       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON cycles(timestamp)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSignal(sig types.Signal, regime string, trend types.Trend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(
		`INSERT INTO signals (timestamp, symbol, direction, confidence, final_score, votes, regime, trend)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.Ts, sig.Symbol, string(sig.Direction), string(sig.Confidence), sig.FinalScore, sig.Votes, regime, string(trend),
	)
	return err
}

func (r *SQLiteRecorder) RecordTrade(rec ledger.TradeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(
		`INSERT INTO trades (symbol, quantity, entry_price, exit_price, entry_ts, exit_ts, realized_pnl, outcome, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Symbol, rec.Quantity, rec.EntryPrice, rec.ExitPrice, rec.EntryTs, rec.ExitTs, rec.RealizedPnL, rec.Outcome, rec.Reason,
	)
	return err
}

func (r *SQLiteRecorder) RecordCycle(capital float64, openPositions, entered, exited int, winRate float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(
		`INSERT INTO cycles (timestamp, capital, open_positions, entered, exited, win_rate)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), capital, openPositions, entered, exited, winRate,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
