package indicator

import "supertrend-bot/internal/model"

// Compute recomputes the full snapshot series for candles, which must be
// sorted and deduplicated. Output has one snapshot per candle.
func Compute(candles []model.Candle, cfg Config) ([]model.Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := len(candles)
	out := make([]model.Snapshot, n)
	for i, c := range candles {
		out[i] = model.Snapshot{Time: c.Time, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close}
	}
	p := cfg.Period
	if n < p+1 {
		return out, nil
	}

	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		tr[i] = TrueRange(candles[i], candles[i-1].Close)
	}

	atr := make([]float64, n)
	var sum float64
	for i := 1; i <= p; i++ {
		sum += tr[i]
	}
	atr[p] = sum / float64(p)
	for i := p + 1; i < n; i++ {
		atr[i] = (atr[i-1]*float64(p-1) + tr[i]) / float64(p)
	}

	trend := model.TrendNone
	for i := p; i < n; i++ {
		bu, bl := basicBands(candles[i], atr[i], cfg.Multiplier)
		var fu, fl float64
		if i == p {
			fu, fl = ratchet(bu, bl, false, 0, 0, 0)
		} else {
			fu, fl = ratchet(bu, bl, true, out[i-1].FinalUpper, out[i-1].FinalLower, candles[i-1].Close)
		}
		trend = nextTrend(trend, candles[i].Close, fu, fl)

		s := &out[i]
		s.Ready = true
		s.ATR = atr[i]
		s.BasicUpper, s.BasicLower = bu, bl
		s.FinalUpper, s.FinalLower = fu, fl
		s.Trend = trend
		s.SupertrendLine = line(trend, fu, fl)
	}
	return out, nil
}
