package model

import "encoding/json"

// Trend is the Supertrend direction. The zero value means no trend yet.
type Trend string

const (
	TrendNone Trend = ""
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
)

// Valid reports whether t is a real direction.
func (t Trend) Valid() bool { return t == TrendUp || t == TrendDown }

// Opposite returns the other direction, or TrendNone for TrendNone.
func (t Trend) Opposite() Trend {
	switch t {
	case TrendUp:
		return TrendDown
	case TrendDown:
		return TrendUp
	}
	return TrendNone
}

// Snapshot is the per-candle indicator output. When Ready is false the
// indicator fields carry no meaning and are exported as null.
type Snapshot struct {
	Time  int64
	Open  float64
	High  float64
	Low   float64
	Close float64

	Ready          bool
	ATR            float64
	BasicUpper     float64
	BasicLower     float64
	FinalUpper     float64
	FinalLower     float64
	SupertrendLine float64
	Trend          Trend
}

type snapshotJSON struct {
	Time           int64    `json:"time"`
	Open           float64  `json:"open"`
	High           float64  `json:"high"`
	Low            float64  `json:"low"`
	Close          float64  `json:"close"`
	ATR            *float64 `json:"atr"`
	BasicUpper     *float64 `json:"basic_upper_band"`
	BasicLower     *float64 `json:"basic_lower_band"`
	FinalUpper     *float64 `json:"final_upper_band"`
	FinalLower     *float64 `json:"final_lower_band"`
	SupertrendLine *float64 `json:"supertrend"`
	Trend          *Trend   `json:"trend"`
}

// MarshalJSON emits indicator fields as null during warm-up.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{Time: s.Time, Open: s.Open, High: s.High, Low: s.Low, Close: s.Close}
	if s.Ready {
		out.ATR = ptr(s.ATR)
		out.BasicUpper = ptr(s.BasicUpper)
		out.BasicLower = ptr(s.BasicLower)
		out.FinalUpper = ptr(s.FinalUpper)
		out.FinalLower = ptr(s.FinalLower)
		out.SupertrendLine = ptr(s.SupertrendLine)
		tr := s.Trend
		out.Trend = &tr
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the format written by MarshalJSON.
func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var in snapshotJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*s = Snapshot{Time: in.Time, Open: in.Open, High: in.High, Low: in.Low, Close: in.Close}
	if in.ATR == nil || in.Trend == nil {
		return nil
	}
	s.Ready = true
	s.ATR = *in.ATR
	s.BasicUpper = deref(in.BasicUpper)
	s.BasicLower = deref(in.BasicLower)
	s.FinalUpper = deref(in.FinalUpper)
	s.FinalLower = deref(in.FinalLower)
	s.SupertrendLine = deref(in.SupertrendLine)
	s.Trend = *in.Trend
	return nil
}

func ptr(v float64) *float64 { return &v }

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
