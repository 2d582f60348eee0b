package model

import (
	"encoding/json"
	"sort"
	"time"
)

// Candle is one OHLCV bar. Time is the bar open as Unix seconds (UTC).
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// TS returns the bar open time.
func (c *Candle) TS() time.Time {
	return time.Unix(c.Time, 0).UTC()
}

// HL2 returns the bar midpoint.
func (c *Candle) HL2() float64 {
	return (c.High + c.Low) / 2
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// DedupSort collapses candles sharing a timestamp (the last one seen wins)
// and returns them ordered oldest first. The input slice is not modified.
func DedupSort(candles []Candle) []Candle {
	byTime := make(map[int64]Candle, len(candles))
	for _, c := range candles {
		byTime[c.Time] = c
	}
	out := make([]Candle, 0, len(byTime))
	for _, c := range byTime {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}
