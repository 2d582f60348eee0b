package indicator

import (
	"fmt"

	"supertrend-bot/internal/model"
)

// Supertrend is the incremental indicator state for one symbol.
// It is not safe for concurrent use.
type Supertrend struct {
	cfg Config
	atr *ATR

	hasPrev   bool
	prevClose float64
	lastTime  int64

	hasBands       bool
	prevFinalUpper float64
	prevFinalLower float64
	prevTrend      model.Trend
}

// New creates a Supertrend with validated parameters.
func New(cfg Config) (*Supertrend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Supertrend{cfg: cfg, atr: NewATR(cfg.Period)}, nil
}

// Config returns the parameters.
func (s *Supertrend) Config() Config { return s.cfg }

// Ready reports whether the next snapshot will carry indicator values.
func (s *Supertrend) Ready() bool { return s.hasBands }

// LastTime returns the time of the last applied candle, 0 if none.
func (s *Supertrend) LastTime() int64 { return s.lastTime }

// Reset drops all state; the next candle is treated as the first.
func (s *Supertrend) Reset() {
	s.atr.Reset()
	s.hasPrev = false
	s.prevClose = 0
	s.lastTime = 0
	s.hasBands = false
	s.prevFinalUpper = 0
	s.prevFinalLower = 0
	s.prevTrend = model.TrendNone
}

// Update applies one candle. Candles must arrive in strictly increasing
// time order.
func (s *Supertrend) Update(c model.Candle) (model.Snapshot, error) {
	if s.hasPrev && c.Time <= s.lastTime {
		return model.Snapshot{}, fmt.Errorf("%w: %d after %d", ErrOutOfOrder, c.Time, s.lastTime)
	}
	return s.step(c), nil
}

// InitializeFromHistory resets the state, replays candles (deduplicated and
// sorted first) and returns the last snapshot. An empty history returns a
// zero snapshot.
func (s *Supertrend) InitializeFromHistory(candles []model.Candle) model.Snapshot {
	s.Reset()
	var last model.Snapshot
	for _, c := range model.DedupSort(candles) {
		last = s.step(c)
	}
	return last
}

func (s *Supertrend) step(c model.Candle) model.Snapshot {
	snap := model.Snapshot{Time: c.Time, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close}
	s.lastTime = c.Time

	if !s.hasPrev {
		s.hasPrev = true
		s.prevClose = c.Close
		return snap
	}

	atr, ok := s.atr.Update(TrueRange(c, s.prevClose))
	if !ok {
		s.prevClose = c.Close
		return snap
	}

	bu, bl := basicBands(c, atr, s.cfg.Multiplier)
	fu, fl := ratchet(bu, bl, s.hasBands, s.prevFinalUpper, s.prevFinalLower, s.prevClose)
	trend := nextTrend(s.prevTrend, c.Close, fu, fl)

	snap.Ready = true
	snap.ATR = atr
	snap.BasicUpper, snap.BasicLower = bu, bl
	snap.FinalUpper, snap.FinalLower = fu, fl
	snap.Trend = trend
	snap.SupertrendLine = line(trend, fu, fl)

	s.hasBands = true
	s.prevFinalUpper, s.prevFinalLower = fu, fl
	s.prevTrend = trend
	s.prevClose = c.Close
	return snap
}

func basicBands(c model.Candle, atr, mult float64) (upper, lower float64) {
	hl2 := c.HL2()
	return hl2 + mult*atr, hl2 - mult*atr
}

// ratchet returns the final bands. A band only moves toward price unless
// the previous close broke through it.
func ratchet(bu, bl float64, hasPrev bool, prevFU, prevFL, prevClose float64) (fu, fl float64) {
	fu, fl = prevFU, prevFL
	if !hasPrev || bu < prevFU || prevClose > prevFU {
		fu = bu
	}
	if !hasPrev || bl > prevFL || prevClose < prevFL {
		fl = bl
	}
	return fu, fl
}

func nextTrend(prev model.Trend, close, fu, fl float64) model.Trend {
	switch prev {
	case model.TrendUp:
		if close <= fl {
			return model.TrendDown
		}
		return model.TrendUp
	case model.TrendDown:
		if close >= fu {
			return model.TrendUp
		}
		return model.TrendDown
	}
	return model.TrendUp
}

func line(trend model.Trend, fu, fl float64) float64 {
	if trend == model.TrendDown {
		return fu
	}
	return fl
}
