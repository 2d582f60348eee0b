package backtest

import (
	"sort"

	"supertrend-bot/internal/model"
)

// Excursion describes one directional run, from the bar that flipped into
// the trend to the last bar before the next flip. AFE and MAE are percent of
// the entry price.
type Excursion struct {
	Side      model.Side `json:"side"`
	EntryTime int64      `json:"entry_time"`
	Entry     float64    `json:"entry"`
	ExitTime  int64      `json:"exit_time"`
	Exit      float64    `json:"exit"`
	MaxHigh   float64    `json:"max_high_in_range"`
	MinLow    float64    `json:"min_low_in_range"`
	AFEPct    float64    `json:"afe"`
	MAEPct    float64    `json:"mae"`
	Candles   int        `json:"candles"`
	Completed bool       `json:"completed"` // false for the run still open at the end of the data
}

// Excursions measures every run that starts with a flip. The exit is the
// close of the first bar of the next run, or of the last bar when the data
// ends mid-run.
func Excursions(snaps []model.Snapshot) []Excursion {
	var out []Excursion
	for i := 1; i < len(snaps); i++ {
		trend, ok := flipAt(snaps, i)
		if !ok {
			continue
		}
		entry := snaps[i].Close
		ex := Excursion{
			Side:      sideFor(trend),
			EntryTime: snaps[i].Time,
			Entry:     entry,
			MaxHigh:   entry,
			MinLow:    entry,
		}

		j := i
		for j < len(snaps) && snaps[j].Trend == trend {
			if snaps[j].High > ex.MaxHigh {
				ex.MaxHigh = snaps[j].High
			}
			if snaps[j].Low < ex.MinLow {
				ex.MinLow = snaps[j].Low
			}
			ex.Candles++
			j++
		}
		last := snaps[len(snaps)-1]
		if j < len(snaps) {
			last = snaps[j]
			ex.Completed = true
		}
		ex.Exit, ex.ExitTime = last.Close, last.Time

		if ex.Side == model.SideLong {
			ex.AFEPct = (ex.MaxHigh - entry) / entry * 100
			ex.MAEPct = (entry - ex.MinLow) / entry * 100
		} else {
			ex.AFEPct = (entry - ex.MinLow) / entry * 100
			ex.MAEPct = (ex.MaxHigh - entry) / entry * 100
		}
		out = append(out, ex)
		i = j - 1
	}
	return out
}

// ExcursionStats summarises AFE and MAE distributions.
type ExcursionStats struct {
	Runs      int     `json:"runs"`
	MaxAFE    float64 `json:"max_afe"`
	P95AFE    float64 `json:"p95_afe"`
	MedianAFE float64 `json:"median_afe"`
	MaxMAE    float64 `json:"max_mae"`
	P95MAE    float64 `json:"p95_mae"`
	MedianMAE float64 `json:"median_mae"`
	// CapitalAFE is the sum of every run's AFE applied to the capital base.
	CapitalAFE float64 `json:"capital_afe"`
}

// SummarizeExcursions computes distribution stats. Percentiles pick the
// element at floor(n*q) of the sorted values.
func SummarizeExcursions(runs []Excursion, capital float64) ExcursionStats {
	st := ExcursionStats{Runs: len(runs)}
	if len(runs) == 0 {
		return st
	}
	afe := make([]float64, len(runs))
	mae := make([]float64, len(runs))
	for i, r := range runs {
		afe[i], mae[i] = r.AFEPct, r.MAEPct
		st.CapitalAFE += capital * r.AFEPct / 100
	}
	sort.Float64s(afe)
	sort.Float64s(mae)
	st.MaxAFE, st.P95AFE, st.MedianAFE = afe[len(afe)-1], quantile(afe, 0.95), quantile(afe, 0.5)
	st.MaxMAE, st.P95MAE, st.MedianMAE = mae[len(mae)-1], quantile(mae, 0.95), quantile(mae, 0.5)
	return st
}

func quantile(sorted []float64, q float64) float64 {
	idx := int(float64(len(sorted)) * q)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
