package backtest

import (
	"fmt"

	"supertrend-bot/internal/model"
)

// Defaults for the percentage policies.
const (
	DefaultStopPct          = 12.0
	DefaultTargetPct        = 3.0
	DefaultInverseStopPct   = 2.0
	DefaultInverseTargetPct = 3.0
)

// StopTarget enters on a flip when flat and exits on the first of: the
// percentage stop, the percentage target (stop wins when a bar touches
// both) or a flip against the position, which exits at that bar's close.
// With Invert set the entry side is the opposite of the flip, while the
// flip exit still follows the position side (a long exits on a flip down).
type StopTarget struct {
	StopPct   float64
	TargetPct float64
	Invert    bool
}

// NewStopTarget returns the fixed stop/target policy.
func NewStopTarget(stopPct, targetPct float64) (StopTarget, error) {
	if err := validatePct(stopPct, targetPct); err != nil {
		return StopTarget{}, err
	}
	return StopTarget{StopPct: stopPct, TargetPct: targetPct}, nil
}

// NewInverse returns the inverse-signal policy.
func NewInverse(stopPct, targetPct float64) (StopTarget, error) {
	if err := validatePct(stopPct, targetPct); err != nil {
		return StopTarget{}, err
	}
	return StopTarget{StopPct: stopPct, TargetPct: targetPct, Invert: true}, nil
}

func validatePct(stopPct, targetPct float64) error {
	if stopPct <= 0 {
		return fmt.Errorf("backtest: stop pct must be positive, got %g", stopPct)
	}
	if targetPct <= 0 {
		return fmt.Errorf("backtest: target pct must be positive, got %g", targetPct)
	}
	return nil
}

func (p StopTarget) Name() string {
	if p.Invert {
		return PolicyInverse
	}
	return PolicyStopTarget
}

// Levels returns the stop and target prices for a position.
func (p StopTarget) Levels(side model.Side, entry float64) (stop, target float64) {
	if side == model.SideShort {
		return entry * (1 + p.StopPct/100), entry * (1 - p.TargetPct/100)
	}
	return entry * (1 - p.StopPct/100), entry * (1 + p.TargetPct/100)
}

func (p StopTarget) Replay(snaps []model.Snapshot) []model.TradeRecord {
	var (
		trades    []model.TradeRecord
		side      = model.SideNone
		entry     float64
		entryTime int64
		stop      float64
		target    float64
	)

	for i := 1; i < len(snaps); i++ {
		bar := snaps[i]
		trend, flipped := flipAt(snaps, i)

		if side == model.SideNone {
			if !flipped {
				continue
			}
			side = sideFor(trend)
			if p.Invert {
				side = sideFor(trend.Opposite())
			}
			entry, entryTime = bar.Close, bar.Time
			stop, target = p.Levels(side, entry)
			continue
		}

		if price, reason, hit := touched(side, bar, stop, target); hit {
			trades = append(trades, closeTrade(side, entryTime, entry, bar.Time, price, reason))
			side = model.SideNone
			continue
		}

		if flipped && sideFor(trend) != side {
			trades = append(trades, closeTrade(side, entryTime, entry, bar.Time, bar.Close, model.ExitTrendFlip))
			side = model.SideNone
		}
	}
	return trades
}

// touched checks the bar range against stop then target.
func touched(side model.Side, bar model.Snapshot, stop, target float64) (float64, model.ExitReason, bool) {
	if side == model.SideLong {
		if bar.Low <= stop {
			return stop, model.ExitStopLoss, true
		}
		if bar.High >= target {
			return target, model.ExitTarget, true
		}
		return 0, "", false
	}
	if bar.High >= stop {
		return stop, model.ExitStopLoss, true
	}
	if bar.Low <= target {
		return target, model.ExitTarget, true
	}
	return 0, "", false
}
