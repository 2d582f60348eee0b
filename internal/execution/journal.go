package execution

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"supertrend-bot/internal/model"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS orders (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id        TEXT NOT NULL,
	client_order_id TEXT,
	symbol          TEXT NOT NULL,
	side            TEXT NOT NULL,
	order_type      TEXT NOT NULL,
	size            REAL NOT NULL,
	stop_price      REAL,
	fill_price      REAL,
	reduce_only     INTEGER NOT NULL DEFAULT 0,
	purpose         TEXT NOT NULL,
	state           TEXT,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol, created_at);
`

// Journal records every acknowledged order in SQLite for audit.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal creates the orders table on db. The caller owns db.
func NewJournal(db *sql.DB) (*Journal, error) {
	if _, err := db.Exec(journalSchema); err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

// JournalEntry is one row of the orders table.
type JournalEntry struct {
	ID      int64       `json:"id"`
	Order   model.Order `json:"order"`
	Purpose string      `json:"purpose"`
}

// RecordOrder appends o. purpose is entry, stop_loss or close.
func (j *Journal) RecordOrder(ctx context.Context, o model.Order, purpose string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	created := o.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO orders (order_id, client_order_id, symbol, side, order_type, size, stop_price, fill_price, reduce_only, purpose, state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.ClientOrderID, o.Symbol, string(o.Side), o.OrderType, o.Size,
		o.StopPrice, o.AvgFillPrice, o.ReduceOnly, purpose, o.State,
		created.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Recent returns the last limit orders, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, order_id, client_order_id, symbol, side, order_type, size, stop_price, fill_price, reduce_only, purpose, state, created_at
		 FROM orders ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var (
			e       JournalEntry
			side    string
			created string
			client  sql.NullString
			state   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Order.ID, &client, &e.Order.Symbol, &side, &e.Order.OrderType,
			&e.Order.Size, &e.Order.StopPrice, &e.Order.AvgFillPrice, &e.Order.ReduceOnly,
			&e.Purpose, &state, &created); err != nil {
			return nil, err
		}
		e.Order.Side = model.OrderSide(side)
		e.Order.ClientOrderID = client.String
		e.Order.State = state.String
		e.Order.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
