package execution

import (
	"fmt"
	"time"

	"supertrend-bot/internal/indicator"
	"supertrend-bot/internal/markethours"
	"supertrend-bot/internal/strategy"
)

// Settings parameterise one reconciler. Delays are fields so tests can
// zero them.
type Settings struct {
	Symbol               string
	Timeframe            string
	OrderSize            float64
	StopFallback         float64 // fraction of price, e.g. 0.02
	MinCandles           int
	MaxConsecutiveErrors int
	HistoryLookback      time.Duration
	Indicator            indicator.Config

	SettleDelay    time.Duration // after closing the opposite side, before entry
	StopDelay      time.Duration // after entry, before placing the stop
	VerifyAttempts int
	VerifyDelay    time.Duration

	// NotifyHold sends a heartbeat alert on cycles that take no action.
	NotifyHold bool
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		Symbol:               "ETHUSD",
		Timeframe:            "5m",
		OrderSize:            5,
		StopFallback:         strategy.DefaultStopFallback,
		MinCandles:           50,
		MaxConsecutiveErrors: 5,
		HistoryLookback:      48 * time.Hour,
		Indicator:            indicator.DefaultConfig(),
		SettleDelay:          2 * time.Second,
		StopDelay:            time.Second,
		VerifyAttempts:       3,
		VerifyDelay:          time.Second,
		NotifyHold:           true,
	}
}

// Validate checks the settings and the indicator parameters.
func (s Settings) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("execution: symbol is required")
	}
	if _, err := markethours.TimeframeSeconds(s.Timeframe); err != nil {
		return err
	}
	if s.OrderSize <= 0 {
		return fmt.Errorf("execution: order size must be positive, got %g", s.OrderSize)
	}
	if s.StopFallback <= 0 || s.StopFallback >= 1 {
		return fmt.Errorf("execution: stop fallback must be in (0,1), got %g", s.StopFallback)
	}
	if s.MaxConsecutiveErrors < 1 {
		return fmt.Errorf("execution: max consecutive errors must be at least 1")
	}
	if s.VerifyAttempts < 1 {
		return fmt.Errorf("execution: verify attempts must be at least 1")
	}
	if s.HistoryLookback <= 0 {
		return fmt.Errorf("execution: history lookback must be positive")
	}
	return s.Indicator.Validate()
}
