package backtest

import "supertrend-bot/internal/model"

// TrendFlip is always in the market after the first flip: each flip closes
// the open position at that bar's close and opens the opposite side there.
// The last position is left open.
type TrendFlip struct{}

func (TrendFlip) Name() string { return PolicyTrendFlip }

func (TrendFlip) Replay(snaps []model.Snapshot) []model.TradeRecord {
	var (
		trades    []model.TradeRecord
		side      = model.SideNone
		entry     float64
		entryTime int64
	)
	for i := 1; i < len(snaps); i++ {
		trend, ok := flipAt(snaps, i)
		if !ok {
			continue
		}
		bar := snaps[i]
		if side != model.SideNone {
			trades = append(trades, closeTrade(side, entryTime, entry, bar.Time, bar.Close, model.ExitTrendFlip))
		}
		side, entry, entryTime = sideFor(trend), bar.Close, bar.Time
	}
	return trades
}
