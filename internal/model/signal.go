package model

// SignalType is the decision produced by comparing two snapshots.
type SignalType string

const (
	SignalBuy      SignalType = "BUY"
	SignalSell     SignalType = "SELL"
	SignalHold     SignalType = "HOLD"
	SignalNoSignal SignalType = "NO_SIGNAL"
)

// Action is the position intent attached to a signal.
type Action string

const (
	ActionNone      Action = ""
	ActionOpenLong  Action = "OPEN_LONG"
	ActionOpenShort Action = "OPEN_SHORT"
	ActionHoldLong  Action = "HOLD_LONG"
	ActionHoldShort Action = "HOLD_SHORT"
)

// SignalEvent is an immutable flip-detection result. Price levels are nil
// unless the signal is BUY or SELL.
type SignalEvent struct {
	Timestamp     int64      `json:"timestamp"`
	Signal        SignalType `json:"signal"`
	Action        Action     `json:"action,omitempty"`
	Reason        string     `json:"reason"`
	Close         float64    `json:"close"`
	Supertrend    float64    `json:"supertrend"`
	CurrentTrend  Trend      `json:"current_trend,omitempty"`
	PreviousTrend Trend      `json:"previous_trend,omitempty"`

	EntryPrice      *float64 `json:"entry_price"`
	StopLoss        *float64 `json:"stop_loss"`
	TakeProfit      *float64 `json:"take_profit"`
	RiskRewardRatio *float64 `json:"risk_reward_ratio"`
}

// IsFlip reports whether the event is an entry signal.
func (e SignalEvent) IsFlip() bool {
	return e.Signal == SignalBuy || e.Signal == SignalSell
}
