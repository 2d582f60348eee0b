package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"supertrend-bot/internal/model"
)

// ReadCandlesCSV parses a CSV with a header row naming time/timestamp,
// open, high, low, close and volume columns (any order, case-insensitive).
// Time is Unix seconds or RFC3339. Rows with an unparseable time are
// skipped; a malformed price or volume is an error naming the line.
// Output is deduplicated and sorted.
func ReadCandlesCSV(r io.Reader) ([]model.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var (
		out     []model.Candle
		headers []string
		line    int
	)
	for {
		rec, err := cr.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("backtest: read csv: %w", err)
		}
		if headers == nil {
			headers = rec
			continue
		}
		row := map[string]string{}
		for j, h := range headers {
			if j < len(rec) {
				row[strings.ToLower(strings.TrimSpace(h))] = strings.TrimSpace(rec[j])
			}
		}
		ts := first(row, "time", "timestamp")
		if ts == "" || row["close"] == "" {
			continue
		}
		sec, err := parseTimeFlexible(ts)
		if err != nil {
			continue
		}
		c := model.Candle{Time: sec}
		for _, f := range []struct {
			dst      *float64
			val      string
			optional bool
		}{
			{&c.Open, row["open"], false},
			{&c.High, row["high"], false},
			{&c.Low, row["low"], false},
			{&c.Close, row["close"], false},
			{&c.Volume, first(row, "volume", "vol"), true},
		} {
			if f.val == "" && f.optional {
				continue
			}
			v, err := strconv.ParseFloat(f.val, 64)
			if err != nil {
				return nil, fmt.Errorf("backtest: csv line %d: bad number %q", line, f.val)
			}
			*f.dst = v
		}
		out = append(out, c)
	}
	return model.DedupSort(out), nil
}

// ReadCandlesJSON accepts either an array of candle objects or an array of
// [time, open, high, low, close, volume] rows.
func ReadCandlesJSON(r io.Reader) ([]model.Candle, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("backtest: decode json: %w", err)
	}
	out := make([]model.Candle, 0, len(raw))
	for i, item := range raw {
		var c model.Candle
		if len(item) > 0 && item[0] == '[' {
			var row []float64
			if err := json.Unmarshal(item, &row); err != nil || len(row) < 5 {
				return nil, fmt.Errorf("backtest: row %d: want [time,open,high,low,close,volume]", i)
			}
			c = model.Candle{Time: int64(row[0]), Open: row[1], High: row[2], Low: row[3], Close: row[4]}
			if len(row) > 5 {
				c.Volume = row[5]
			}
		} else if err := json.Unmarshal(item, &c); err != nil {
			return nil, fmt.Errorf("backtest: row %d: %w", i, err)
		}
		out = append(out, c)
	}
	return model.DedupSort(out), nil
}

// ReadSnapshotsJSON reads a snapshot export written by WriteJSON.
func ReadSnapshotsJSON(r io.Reader) ([]model.Snapshot, error) {
	var snaps []model.Snapshot
	if err := json.NewDecoder(r).Decode(&snaps); err != nil {
		return nil, fmt.Errorf("backtest: decode snapshots: %w", err)
	}
	return snaps, nil
}

// parseTimeFlexible supports RFC3339 or UNIX seconds.
func parseTimeFlexible(s string) (int64, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.Unix(), nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return sec, nil
	}
	return 0, fmt.Errorf("bad time: %s", s)
}

// first returns the first non-empty value for keys in m.
func first(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}
