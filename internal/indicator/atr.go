package indicator

import (
	"math"

	"supertrend-bot/internal/model"
)

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(c model.Candle, prevClose float64) float64 {
	return math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
}

// ATR is an average true range with Wilder smoothing.
// The first value is the mean of exactly period samples, then
// ATR = (prev*(period-1) + tr) / period.
type ATR struct {
	period  int
	count   int
	sum     float64
	current float64
}

// NewATR creates an ATR over the given period.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

// Update feeds one true-range sample and returns the current value and
// whether the seed is complete.
func (a *ATR) Update(tr float64) (float64, bool) {
	a.count++

	if a.count <= a.period {
		a.sum += tr
		if a.count == a.period {
			a.current = a.sum / float64(a.period)
			return a.current, true
		}
		return 0, false
	}

	a.current = (a.current*float64(a.period-1) + tr) / float64(a.period)
	return a.current, true
}

func (a *ATR) Value() float64 { return a.current }
func (a *ATR) Ready() bool    { return a.count >= a.period }

// Reset clears the ATR state for reuse.
func (a *ATR) Reset() {
	a.count = 0
	a.sum = 0
	a.current = 0
}
