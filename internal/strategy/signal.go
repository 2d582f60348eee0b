// Package strategy turns Supertrend snapshots into trading decisions.
//
// DetectFlip is a pure comparison of two consecutive snapshots. Generator
// owns a live indicator and feeds it only the candles it has not seen yet.
package strategy

import (
	"math"

	"supertrend-bot/internal/model"
)

// TakeProfitATR is the take-profit distance in ATRs from the entry.
const TakeProfitATR = 2.0

// DetectFlip compares consecutive snapshots and returns BUY on a down->up
// flip, SELL on up->down, HOLD when the trend is unchanged and NO_SIGNAL when
// either snapshot has no trend yet.
func DetectFlip(prev, cur model.Snapshot) model.SignalEvent {
	ev := model.SignalEvent{
		Timestamp:     cur.Time,
		Close:         cur.Close,
		Supertrend:    cur.SupertrendLine,
		CurrentTrend:  cur.Trend,
		PreviousTrend: prev.Trend,
	}

	if !prev.Ready || !cur.Ready || !prev.Trend.Valid() || !cur.Trend.Valid() {
		ev.Signal = model.SignalNoSignal
		ev.Reason = "insufficient supertrend data"
		return ev
	}

	if prev.Trend == cur.Trend {
		ev.Signal = model.SignalHold
		if cur.Trend == model.TrendUp {
			ev.Action = model.ActionHoldLong
			ev.Reason = "uptrend continues"
		} else {
			ev.Action = model.ActionHoldShort
			ev.Reason = "downtrend continues"
		}
		return ev
	}

	entry := cur.Close
	stop := cur.SupertrendLine
	var tp float64
	if cur.Trend == model.TrendUp {
		ev.Signal = model.SignalBuy
		ev.Action = model.ActionOpenLong
		ev.Reason = "supertrend DOWN -> UP (bullish reversal)"
		tp = entry + TakeProfitATR*cur.ATR
	} else {
		ev.Signal = model.SignalSell
		ev.Action = model.ActionOpenShort
		ev.Reason = "supertrend UP -> DOWN (bearish reversal)"
		tp = entry - TakeProfitATR*cur.ATR
	}

	rr := RiskReward(entry, stop, tp)
	ev.EntryPrice = &entry
	ev.StopLoss = &stop
	ev.TakeProfit = &tp
	ev.RiskRewardRatio = &rr
	return ev
}

// RiskReward returns |tp-entry| / |entry-stop|, or 0 when the stop equals
// the entry.
func RiskReward(entry, stop, tp float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(tp-entry) / risk
}
