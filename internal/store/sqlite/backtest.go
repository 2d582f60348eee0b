package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"supertrend-bot/internal/backtest"
	"supertrend-bot/internal/model"
)

// BacktestRun describes one persisted policy replay.
type BacktestRun struct {
	ID         string           `json:"id"`
	Symbol     string           `json:"symbol"`
	Resolution string           `json:"resolution"`
	Policy     string           `json:"policy"`
	Period     int              `json:"period"`
	Multiplier float64          `json:"multiplier"`
	StopPct    float64          `json:"stop_pct"`
	TargetPct  float64          `json:"target_pct"`
	Summary    backtest.Summary `json:"summary"`
	CreatedAt  time.Time        `json:"created_at"`
}

// SaveBacktestRun stores the run and its trades in one transaction. An
// empty ID is replaced with a new UUID, which is returned.
func (s *Store) SaveBacktestRun(ctx context.Context, run BacktestRun, trades []model.TradeRecord) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}

	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs (id, symbol, resolution, policy, period, multiplier, stop_pct, target_pct, capital, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Symbol, run.Resolution, run.Policy, run.Period, run.Multiplier, run.StopPct, run.TargetPct,
		run.Summary.Capital, string(summary), run.CreatedAt.Unix())
	if err != nil {
		tx.Rollback()
		return "", fmt.Errorf("sqlite insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_trades (run_id, seq, side, entry_time, entry_price, exit_time, exit_price, pnl, pnl_pct, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return "", err
	}
	defer stmt.Close()

	for i, t := range trades {
		if _, err := stmt.ExecContext(ctx, run.ID, i, string(t.Side), t.EntryTime, t.EntryPrice,
			t.ExitTime, t.ExitPrice, t.PnL, t.PnLPct, string(t.ExitReason)); err != nil {
			tx.Rollback()
			return "", fmt.Errorf("sqlite insert trade %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	s.observe(start)
	return run.ID, nil
}

// ListBacktestRuns returns the newest runs first.
func (s *Store) ListBacktestRuns(ctx context.Context, limit int) ([]BacktestRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, resolution, policy, period, multiplier, COALESCE(stop_pct, 0), COALESCE(target_pct, 0), summary, created_at
		FROM backtest_runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query runs: %w", err)
	}
	defer rows.Close()

	var runs []BacktestRun
	for rows.Next() {
		var (
			r       BacktestRun
			summary string
			created int64
		)
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Resolution, &r.Policy, &r.Period, &r.Multiplier,
			&r.StopPct, &r.TargetPct, &summary, &created); err != nil {
			return nil, fmt.Errorf("sqlite scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(summary), &r.Summary); err != nil {
			return nil, fmt.Errorf("run %s summary: %w", r.ID, err)
		}
		r.CreatedAt = time.Unix(created, 0).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadBacktestTrades returns the trades of a run in replay order.
func (s *Store) LoadBacktestTrades(ctx context.Context, runID string) ([]model.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT side, entry_time, entry_price, exit_time, exit_price, pnl, pnl_pct, exit_reason
		FROM backtest_trades
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var trades []model.TradeRecord
	for rows.Next() {
		var (
			t            model.TradeRecord
			side, reason string
		)
		if err := rows.Scan(&side, &t.EntryTime, &t.EntryPrice, &t.ExitTime, &t.ExitPrice, &t.PnL, &t.PnLPct, &reason); err != nil {
			return nil, fmt.Errorf("sqlite scan trade: %w", err)
		}
		t.Side, t.ExitReason = model.Side(side), model.ExitReason(reason)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
