package backtest

import (
	"github.com/shopspring/decimal"

	"supertrend-bot/internal/model"
)

// DefaultCapital is the notional capital base for percentage PnL.
const DefaultCapital = 5000.0

// Summary aggregates one policy's trades.
type Summary struct {
	Policy         string  `json:"policy"`
	Trades         int     `json:"trades"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	WinRate        float64 `json:"win_rate"`
	TotalPnL       float64 `json:"total_pnl"`
	TotalPnLPct    float64 `json:"total_pnl_pct"`
	AvgPnLPct      float64 `json:"avg_pnl_pct"`
	ProfitFactor   float64 `json:"profit_factor"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	Capital        float64 `json:"capital"`
	CapitalPnL     float64 `json:"capital_pnl"`

	StopLossExits  int `json:"sl_exits"`
	TargetExits    int `json:"target_exits"`
	TrendFlipExits int `json:"trend_flip_exits"`
}

// Summarize computes stats for trades. A win is pnl > 0. Capital PnL is
// sum(pnl% * capital / 100). Sums run in decimal so long series do not
// accumulate float error. ProfitFactor is 0 when there are no losing points.
func Summarize(policy string, trades []model.TradeRecord, capital float64) Summary {
	s := Summary{Policy: policy, Trades: len(trades), Capital: capital}
	if len(trades) == 0 {
		return s
	}

	hundred := decimal.NewFromInt(100)
	base := decimal.NewFromFloat(capital)
	var (
		pnl, pct, capPnL    = decimal.Zero, decimal.Zero, decimal.Zero
		grossWin, grossLoss = decimal.Zero, decimal.Zero
		equity, peak, maxDD = decimal.Zero, decimal.Zero, decimal.Zero
	)

	for _, t := range trades {
		tp := decimal.NewFromFloat(t.PnL)
		tpct := decimal.NewFromFloat(t.PnLPct)
		pnl = pnl.Add(tp)
		pct = pct.Add(tpct)
		capPnL = capPnL.Add(tpct.Mul(base).Div(hundred))

		if t.PnL > 0 {
			s.Wins++
			grossWin = grossWin.Add(tpct)
		} else {
			s.Losses++
			grossLoss = grossLoss.Add(tpct.Abs())
		}

		equity = equity.Add(tpct)
		if equity.GreaterThan(peak) {
			peak = equity
		}
		if dd := peak.Sub(equity); dd.GreaterThan(maxDD) {
			maxDD = dd
		}

		switch t.ExitReason {
		case model.ExitStopLoss:
			s.StopLossExits++
		case model.ExitTarget:
			s.TargetExits++
		case model.ExitTrendFlip:
			s.TrendFlipExits++
		}
	}

	n := decimal.NewFromInt(int64(len(trades)))
	s.WinRate = decimal.NewFromInt(int64(s.Wins)).Div(n).Mul(hundred).InexactFloat64()
	s.TotalPnL = pnl.InexactFloat64()
	s.TotalPnLPct = pct.InexactFloat64()
	s.AvgPnLPct = pct.Div(n).InexactFloat64()
	s.CapitalPnL = capPnL.InexactFloat64()
	s.MaxDrawdownPct = maxDD.InexactFloat64()
	if grossLoss.IsPositive() {
		s.ProfitFactor = grossWin.Div(grossLoss).InexactFloat64()
	}
	return s
}
