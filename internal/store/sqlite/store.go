package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"supertrend-bot/internal/model"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/supertrend.db"
}

// Store is a single-connection SQLite store for candles, indicator
// checkpoints and backtest runs.
type Store struct {
	db *sql.DB

	// OnCommit observes the duration of each write transaction.
	OnCommit func(d time.Duration)
}

// DB returns the underlying sql.DB for health checks and the order journal.
func (s *Store) DB() *sql.DB { return s.db }

// Open creates the database file and its directory if needed, enables WAL
// and applies the schema.
func Open(cfg Config) (*Store, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol     TEXT    NOT NULL,
			resolution TEXT    NOT NULL,
			ts         INTEGER NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     REAL,
			PRIMARY KEY (symbol, resolution, ts)
		);

		CREATE TABLE IF NOT EXISTS indicator_checkpoints (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol     TEXT    NOT NULL,
			data       TEXT    NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_checkpoints_symbol ON indicator_checkpoints(symbol, id);

		CREATE TABLE IF NOT EXISTS backtest_runs (
			id          TEXT PRIMARY KEY,
			symbol      TEXT NOT NULL,
			resolution  TEXT NOT NULL,
			policy      TEXT NOT NULL,
			period      INTEGER NOT NULL,
			multiplier  REAL NOT NULL,
			stop_pct    REAL,
			target_pct  REAL,
			capital     REAL NOT NULL,
			summary     TEXT NOT NULL,
			created_at  INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS backtest_trades (
			run_id      TEXT    NOT NULL,
			seq         INTEGER NOT NULL,
			side        TEXT    NOT NULL,
			entry_time  INTEGER NOT NULL,
			entry_price REAL    NOT NULL,
			exit_time   INTEGER NOT NULL,
			exit_price  REAL    NOT NULL,
			pnl         REAL    NOT NULL,
			pnl_pct     REAL    NOT NULL,
			exit_reason TEXT    NOT NULL,
			PRIMARY KEY (run_id, seq)
		);
	`)
	return err
}

func (s *Store) observe(start time.Time) {
	if s.OnCommit != nil {
		s.OnCommit(time.Since(start))
	}
}

// SaveCandles upserts candles in one transaction.
func (s *Store) SaveCandles(ctx context.Context, symbol, resolution string, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, resolution, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, resolution, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert candle %d: %w", c.Time, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.observe(start)
	return nil
}

// LoadCandles reads candles with start <= ts <= end, ordered oldest first.
// A zero end means no upper bound.
func (s *Store) LoadCandles(ctx context.Context, symbol, resolution string, start, end int64) ([]model.Candle, error) {
	if end == 0 {
		end = 1<<63 - 1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, COALESCE(volume, 0)
		FROM candles
		WHERE symbol = ? AND resolution = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`, symbol, resolution, start, end)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candles: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// LastCandleTime returns the newest stored candle time, or 0 if none.
func (s *Store) LastCandleTime(ctx context.Context, symbol, resolution string) (int64, error) {
	var ts sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM candles WHERE symbol = ? AND resolution = ?`,
		symbol, resolution,
	).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// SaveCheckpoint stores an indicator checkpoint and keeps the last 10 per
// symbol.
func (s *Store) SaveCheckpoint(ctx context.Context, symbol string, data []byte) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO indicator_checkpoints (symbol, data, created_at) VALUES (?, ?, ?)`,
		symbol, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite insert checkpoint: %w", err)
	}
	s.observe(start)

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM indicator_checkpoints
		WHERE symbol = ? AND id NOT IN (
			SELECT id FROM indicator_checkpoints WHERE symbol = ? ORDER BY id DESC LIMIT 10
		)`, symbol, symbol)
	if err != nil {
		log.Printf("[sqlite] prune checkpoints warning: %v", err)
	}
	return nil
}

// LatestCheckpoint returns the newest checkpoint for symbol, or nil.
func (s *Store) LatestCheckpoint(ctx context.Context, symbol string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM indicator_checkpoints
		WHERE symbol = ?
		ORDER BY id DESC
		LIMIT 1
	`, symbol).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite read checkpoint: %w", err)
	}
	return []byte(data), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
