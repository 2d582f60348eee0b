package strategy

import (
	"math"
	"testing"

	"supertrend-bot/internal/model"
)

func snap(trend model.Trend, close, line, atr float64) model.Snapshot {
	return model.Snapshot{Time: 1000, Close: close, Ready: trend.Valid(), Trend: trend, SupertrendLine: line, ATR: atr}
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f", label, got, want)
	}
}

func TestDetectFlip_Classification(t *testing.T) {
	cases := []struct {
		name   string
		prev   model.Trend
		cur    model.Trend
		signal model.SignalType
		action model.Action
	}{
		{"no prev", model.TrendNone, model.TrendUp, model.SignalNoSignal, model.ActionNone},
		{"no cur", model.TrendUp, model.TrendNone, model.SignalNoSignal, model.ActionNone},
		{"hold up", model.TrendUp, model.TrendUp, model.SignalHold, model.ActionHoldLong},
		{"hold down", model.TrendDown, model.TrendDown, model.SignalHold, model.ActionHoldShort},
		{"bullish", model.TrendDown, model.TrendUp, model.SignalBuy, model.ActionOpenLong},
		{"bearish", model.TrendUp, model.TrendDown, model.SignalSell, model.ActionOpenShort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := DetectFlip(snap(tc.prev, 100, 95, 5), snap(tc.cur, 100, 95, 5))
			if ev.Signal != tc.signal {
				t.Errorf("signal: got %s, want %s", ev.Signal, tc.signal)
			}
			if ev.Action != tc.action {
				t.Errorf("action: got %q, want %q", ev.Action, tc.action)
			}
			if ev.IsFlip() != (tc.signal == model.SignalBuy || tc.signal == model.SignalSell) {
				t.Error("IsFlip mismatch")
			}
			if !ev.IsFlip() && (ev.EntryPrice != nil || ev.StopLoss != nil || ev.TakeProfit != nil || ev.RiskRewardRatio != nil) {
				t.Error("non-flip events carry no levels")
			}
		})
	}
}

func TestDetectFlip_BuyLevels(t *testing.T) {
	// close=100, atr=5, line=96: TP = 100 + 2*5 = 110, RR = 10/|100-96| = 2.5
	ev := DetectFlip(snap(model.TrendDown, 98, 103, 5), snap(model.TrendUp, 100, 96, 5))
	if ev.Signal != model.SignalBuy {
		t.Fatalf("got %s", ev.Signal)
	}
	assertClose(t, "entry", *ev.EntryPrice, 100, 1e-12)
	assertClose(t, "stop", *ev.StopLoss, 96, 1e-12)
	assertClose(t, "tp", *ev.TakeProfit, 110, 1e-12)
	assertClose(t, "rr", *ev.RiskRewardRatio, 10.0/math.Abs(100-96), 1e-12)
	if ev.PreviousTrend != model.TrendDown || ev.CurrentTrend != model.TrendUp {
		t.Errorf("trends: %s -> %s", ev.PreviousTrend, ev.CurrentTrend)
	}
}

func TestDetectFlip_SellLevels(t *testing.T) {
	// close=200, atr=4, line=206: TP = 200 - 8 = 192, RR = 8/6
	ev := DetectFlip(snap(model.TrendUp, 202, 195, 4), snap(model.TrendDown, 200, 206, 4))
	if ev.Signal != model.SignalSell {
		t.Fatalf("got %s", ev.Signal)
	}
	assertClose(t, "tp", *ev.TakeProfit, 192, 1e-12)
	assertClose(t, "rr", *ev.RiskRewardRatio, 8.0/6.0, 1e-12)
}

func TestDetectFlip_ZeroRiskGivesZeroRatio(t *testing.T) {
	ev := DetectFlip(snap(model.TrendDown, 100, 100, 5), snap(model.TrendUp, 100, 100, 5))
	if *ev.RiskRewardRatio != 0 {
		t.Errorf("rr: got %f, want 0", *ev.RiskRewardRatio)
	}
}

func TestDetectFlip_Pure(t *testing.T) {
	prev, cur := snap(model.TrendDown, 98, 103, 5), snap(model.TrendUp, 100, 96, 5)
	a, b := DetectFlip(prev, cur), DetectFlip(prev, cur)
	if a.Signal != b.Signal || *a.TakeProfit != *b.TakeProfit || *a.RiskRewardRatio != *b.RiskRewardRatio {
		t.Error("DetectFlip must be deterministic")
	}
}

func TestStopLossPrice(t *testing.T) {
	cases := []struct {
		name              string
		side              model.Side
		price, line, want float64
	}{
		{"long uses line below price", model.SideLong, 100, 95, 95},
		{"long line above price falls back", model.SideLong, 100, 104, 98},
		{"long missing line falls back", model.SideLong, 100, 0, 98},
		{"short uses line above price", model.SideShort, 100, 106, 106},
		{"short line below price falls back", model.SideShort, 100, 97, 102},
		{"none", model.SideNone, 100, 95, 0},
	}
	for _, tc := range cases {
		got := StopLossPrice(tc.side, tc.price, tc.line, 0.02)
		assertClose(t, tc.name, got, tc.want, 1e-9)
	}
}
