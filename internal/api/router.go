// Package api serves the trader's read-only HTTP API: the order journal and
// persisted backtest runs.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"supertrend-bot/internal/execution"
	"supertrend-bot/internal/model"
	sqlitestore "supertrend-bot/internal/store/sqlite"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// OrderLog is the read side of the order journal.
type OrderLog interface {
	Recent(ctx context.Context, limit int) ([]execution.JournalEntry, error)
}

// RunStore is the read side of the backtest run store.
type RunStore interface {
	ListBacktestRuns(ctx context.Context, limit int) ([]sqlitestore.BacktestRun, error)
	LoadBacktestTrades(ctx context.Context, runID string) ([]model.TradeRecord, error)
}

// NewRouter sets up the API routes. Either dependency may be nil; its
// endpoints then answer 503.
func NewRouter(orders OrderLog, runs RunStore) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// GET /api/v1/orders?limit=N
	mux.HandleFunc("/api/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		if orders == nil {
			writeError(w, http.StatusServiceUnavailable, "order journal unavailable")
			return
		}
		entries, err := orders.Recent(r.Context(), limitParam(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if entries == nil {
			entries = []execution.JournalEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	})

	// GET /api/v1/backtests?limit=N
	mux.HandleFunc("/api/v1/backtests", func(w http.ResponseWriter, r *http.Request) {
		if runs == nil {
			writeError(w, http.StatusServiceUnavailable, "backtest store unavailable")
			return
		}
		list, err := runs.ListBacktestRuns(r.Context(), limitParam(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if list == nil {
			list = []sqlitestore.BacktestRun{}
		}
		writeJSON(w, http.StatusOK, list)
	})

	// GET /api/v1/backtests/trades?id=RUN
	mux.HandleFunc("/api/v1/backtests/trades", func(w http.ResponseWriter, r *http.Request) {
		if runs == nil {
			writeError(w, http.StatusServiceUnavailable, "backtest store unavailable")
			return
		}
		id := r.URL.Query().Get("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		trades, err := runs.LoadBacktestTrades(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if len(trades) == 0 {
			writeError(w, http.StatusNotFound, "no trades for run "+id)
			return
		}
		writeJSON(w, http.StatusOK, trades)
	})

	return mux
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
