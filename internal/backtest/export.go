package backtest

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"supertrend-bot/internal/model"
)

// WriteJSON writes v as an indented JSON document.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var tradeHeader = []string{"side", "entry_time", "entry_time_utc", "entry_price", "exit_time", "exit_time_utc", "exit_price", "pnl", "pnl_pct", "exit_reason"}

// WriteTradesCSV writes trades with a header row. Prices and PnL are
// rounded to Places decimals.
func WriteTradesCSV(w io.Writer, trades []model.TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		rec := []string{
			string(t.Side),
			strconv.FormatInt(t.EntryTime, 10),
			utc(t.EntryTime),
			num(t.EntryPrice),
			strconv.FormatInt(t.ExitTime, 10),
			utc(t.ExitTime),
			num(t.ExitPrice),
			num(t.PnL),
			num(t.PnLPct),
			string(t.ExitReason),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var snapshotHeader = []string{"time", "open", "high", "low", "close", "atr", "basic_upper_band", "basic_lower_band", "final_upper_band", "final_lower_band", "supertrend", "trend"}

// WriteSnapshotsCSV writes the indicator series. Warm-up rows leave the
// indicator columns empty.
func WriteSnapshotsCSV(w io.Writer, snaps []model.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(snapshotHeader); err != nil {
		return err
	}
	for _, s := range snaps {
		rec := []string{
			strconv.FormatInt(s.Time, 10),
			raw(s.Open), raw(s.High), raw(s.Low), raw(s.Close),
			"", "", "", "", "", "", "",
		}
		if s.Ready {
			rec[5] = raw(s.ATR)
			rec[6] = raw(s.BasicUpper)
			rec[7] = raw(s.BasicLower)
			rec[8] = raw(s.FinalUpper)
			rec[9] = raw(s.FinalLower)
			rec[10] = raw(s.SupertrendLine)
			rec[11] = string(s.Trend)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var excursionHeader = []string{"side", "entry_time", "entry", "exit_time", "exit", "max_high_in_range", "min_low_in_range", "afe", "mae", "candles", "completed"}

// WriteExcursionsCSV writes excursion runs with a header row.
func WriteExcursionsCSV(w io.Writer, runs []Excursion) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(excursionHeader); err != nil {
		return err
	}
	for _, r := range runs {
		rec := []string{
			string(r.Side),
			strconv.FormatInt(r.EntryTime, 10),
			raw(r.Entry),
			strconv.FormatInt(r.ExitTime, 10),
			raw(r.Exit),
			raw(r.MaxHigh),
			raw(r.MinLow),
			num(r.AFEPct),
			num(r.MAEPct),
			strconv.Itoa(r.Candles),
			strconv.FormatBool(r.Completed),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCandlesCSV writes candles as time,open,high,low,close,volume.
func WriteCandlesCSV(w io.Writer, candles []model.Candle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, c := range candles {
		rec := []string{strconv.FormatInt(c.Time, 10), raw(c.Open), raw(c.High), raw(c.Low), raw(c.Close), raw(c.Volume)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func num(v float64) string { return strconv.FormatFloat(Round(v, Places), 'f', Places, 64) }
func raw(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func utc(ts int64) string { return time.Unix(ts, 0).UTC().Format(time.RFC3339) }
