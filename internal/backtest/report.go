package backtest

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

// Places is the number of decimals used for presentation.
const Places = 2

// Round rounds half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Rounded returns a copy of s with every float rounded for display.
func (s Summary) Rounded(places int32) Summary {
	r := s
	r.WinRate = Round(s.WinRate, places)
	r.TotalPnL = Round(s.TotalPnL, places)
	r.TotalPnLPct = Round(s.TotalPnLPct, places)
	r.AvgPnLPct = Round(s.AvgPnLPct, places)
	r.ProfitFactor = Round(s.ProfitFactor, places)
	r.MaxDrawdownPct = Round(s.MaxDrawdownPct, places)
	r.CapitalPnL = Round(s.CapitalPnL, places)
	return r
}

// Rounded returns a copy of st with every float rounded for display.
func (st ExcursionStats) Rounded(places int32) ExcursionStats {
	r := st
	r.MaxAFE = Round(st.MaxAFE, places)
	r.P95AFE = Round(st.P95AFE, places)
	r.MedianAFE = Round(st.MedianAFE, places)
	r.MaxMAE = Round(st.MaxMAE, places)
	r.P95MAE = Round(st.P95MAE, places)
	r.MedianMAE = Round(st.MedianMAE, places)
	r.CapitalAFE = Round(st.CapitalAFE, places)
	return r
}

func fmtDec(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(Places)
}

// WriteSummary prints a boxed summary.
func WriteSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w, "╔══════════════════════════════════════╗")
	fmt.Fprintf(w, "║  BACKTEST %-26s ║\n", s.Policy)
	fmt.Fprintln(w, "╠══════════════════════════════════════╣")
	fmt.Fprintf(w, "║  Total trades:      %-16d ║\n", s.Trades)
	fmt.Fprintf(w, "║  Winning trades:    %-16d ║\n", s.Wins)
	fmt.Fprintf(w, "║  Losing trades:     %-16d ║\n", s.Losses)
	fmt.Fprintf(w, "║  Win rate %%:        %-16s ║\n", fmtDec(s.WinRate))
	fmt.Fprintf(w, "║  Total PnL:         %-16s ║\n", fmtDec(s.TotalPnL))
	fmt.Fprintf(w, "║  Total PnL %%:       %-16s ║\n", fmtDec(s.TotalPnLPct))
	fmt.Fprintf(w, "║  Avg PnL %%:         %-16s ║\n", fmtDec(s.AvgPnLPct))
	fmt.Fprintf(w, "║  Max drawdown %%:    %-16s ║\n", fmtDec(s.MaxDrawdownPct))
	fmt.Fprintf(w, "║  Profit factor:     %-16s ║\n", fmtDec(s.ProfitFactor))
	fmt.Fprintf(w, "║  PnL on %-10s  %-16s ║\n", fmtDec(s.Capital)+":", fmtDec(s.CapitalPnL))
	fmt.Fprintf(w, "║  Exits SL/TGT/FLIP: %-16s ║\n",
		fmt.Sprintf("%d/%d/%d", s.StopLossExits, s.TargetExits, s.TrendFlipExits))
	fmt.Fprintln(w, "╚══════════════════════════════════════╝")
}

// WriteExcursionStats prints the excursion distribution.
func WriteExcursionStats(w io.Writer, st ExcursionStats) {
	fmt.Fprintln(w, "╔══════════════════════════════════════╗")
	fmt.Fprintln(w, "║  EXCURSIONS (AFE / MAE %)            ║")
	fmt.Fprintln(w, "╠══════════════════════════════════════╣")
	fmt.Fprintf(w, "║  Runs:              %-16d ║\n", st.Runs)
	fmt.Fprintf(w, "║  Max AFE:           %-16s ║\n", fmtDec(st.MaxAFE))
	fmt.Fprintf(w, "║  95th pct AFE:      %-16s ║\n", fmtDec(st.P95AFE))
	fmt.Fprintf(w, "║  Median AFE:        %-16s ║\n", fmtDec(st.MedianAFE))
	fmt.Fprintf(w, "║  Max MAE:           %-16s ║\n", fmtDec(st.MaxMAE))
	fmt.Fprintf(w, "║  95th pct MAE:      %-16s ║\n", fmtDec(st.P95MAE))
	fmt.Fprintf(w, "║  Median MAE:        %-16s ║\n", fmtDec(st.MedianMAE))
	fmt.Fprintln(w, "╚══════════════════════════════════════╝")
}
