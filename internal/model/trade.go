package model

// ExitReason says why a backtest trade closed.
type ExitReason string

const (
	ExitStopLoss  ExitReason = "SL"
	ExitTarget    ExitReason = "TARGET"
	ExitTrendFlip ExitReason = "TREND_FLIP"
)

// TradeRecord is one completed backtest trade. PnL is in price points,
// PnLPct relative to the entry price.
type TradeRecord struct {
	Side       Side       `json:"side"`
	EntryTime  int64      `json:"entry_time"`
	EntryPrice float64    `json:"entry_price"`
	ExitTime   int64      `json:"exit_time"`
	ExitPrice  float64    `json:"exit_price"`
	PnL        float64    `json:"pnl"`
	PnLPct     float64    `json:"pnl_pct"`
	ExitReason ExitReason `json:"exit_reason"`
}
