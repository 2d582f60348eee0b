// Package backtest replays a Supertrend snapshot series through the same
// flip rule the live loop uses and records the trades each exit policy
// would have made.
//
// All values are kept at full precision. Rounding happens only in Report
// and the exporters.
package backtest

import (
	"fmt"
	"strings"

	"supertrend-bot/internal/model"
	"supertrend-bot/internal/strategy"
)

// Policy turns a snapshot series into trades.
type Policy interface {
	Name() string
	Replay(snaps []model.Snapshot) []model.TradeRecord
}

// Policy names accepted by ByName.
const (
	PolicyTrendFlip  = "trend_flip"
	PolicyStopTarget = "sl_target"
	PolicyInverse    = "inverse"
)

// Params configures the percentage policies. Percentages are in percent
// (12 means 12%).
type Params struct {
	StopPct   float64
	TargetPct float64
}

// ByName builds a policy from its name. Zero params select the defaults of
// the chosen policy.
func ByName(name string, p Params) (Policy, error) {
	switch strings.ToLower(name) {
	case PolicyTrendFlip, "flip":
		return TrendFlip{}, nil
	case PolicyStopTarget, "fixed":
		if p == (Params{}) {
			p = Params{StopPct: DefaultStopPct, TargetPct: DefaultTargetPct}
		}
		return NewStopTarget(p.StopPct, p.TargetPct)
	case PolicyInverse:
		if p == (Params{}) {
			p = Params{StopPct: DefaultInverseStopPct, TargetPct: DefaultInverseTargetPct}
		}
		return NewInverse(p.StopPct, p.TargetPct)
	}
	return nil, fmt.Errorf("backtest: unknown policy %q", name)
}

// flipAt reports the new direction when snapshot i flips relative to i-1.
func flipAt(snaps []model.Snapshot, i int) (model.Trend, bool) {
	if i < 1 || i >= len(snaps) {
		return model.TrendNone, false
	}
	ev := strategy.DetectFlip(snaps[i-1], snaps[i])
	if !ev.IsFlip() {
		return model.TrendNone, false
	}
	return snaps[i].Trend, true
}

func sideFor(t model.Trend) model.Side {
	if t == model.TrendDown {
		return model.SideShort
	}
	return model.SideLong
}

func closeTrade(side model.Side, entryTime int64, entry float64, exitTime int64, exit float64, reason model.ExitReason) model.TradeRecord {
	pnl := exit - entry
	if side == model.SideShort {
		pnl = entry - exit
	}
	var pct float64
	if entry != 0 {
		pct = pnl / entry * 100
	}
	return model.TradeRecord{
		Side:       side,
		EntryTime:  entryTime,
		EntryPrice: entry,
		ExitTime:   exitTime,
		ExitPrice:  exit,
		PnL:        pnl,
		PnLPct:     pct,
		ExitReason: reason,
	}
}

// CountFlips returns the number of flips in the series.
func CountFlips(snaps []model.Snapshot) int {
	n := 0
	for i := 1; i < len(snaps); i++ {
		if _, ok := flipAt(snaps, i); ok {
			n++
		}
	}
	return n
}
