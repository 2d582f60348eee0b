// Package indicator computes the Supertrend trend channel over candle data.
//
// A Supertrend owns its state exclusively. It is fed one candle at a time in
// time order (Update) or seeded from a full history (InitializeFromHistory).
// Compute runs the same recurrence over a whole slice at once; both modes
// produce identical snapshots for the same input.
package indicator

import (
	"errors"
	"fmt"
)

// Defaults used by the live loop and the backtest CLI.
const (
	DefaultPeriod     = 10
	DefaultMultiplier = 3.0
)

// ErrOutOfOrder is returned by Update for a candle not newer than the last one.
var ErrOutOfOrder = errors.New("indicator: candle out of order")

// Config holds the Supertrend parameters.
type Config struct {
	Period     int     `json:"period"`
	Multiplier float64 `json:"multiplier"`
}

// DefaultConfig returns period 10, multiplier 3.
func DefaultConfig() Config {
	return Config{Period: DefaultPeriod, Multiplier: DefaultMultiplier}
}

// Validate checks the parameters.
func (c Config) Validate() error {
	if c.Period < 1 {
		return fmt.Errorf("indicator: period must be >= 1, got %d", c.Period)
	}
	if c.Multiplier <= 0 {
		return fmt.Errorf("indicator: multiplier must be > 0, got %g", c.Multiplier)
	}
	return nil
}

// Name returns e.g. "SUPERTREND_10_3".
func (c Config) Name() string {
	return fmt.Sprintf("SUPERTREND_%d_%g", c.Period, c.Multiplier)
}
