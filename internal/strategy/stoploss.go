package strategy

import "supertrend-bot/internal/model"

// DefaultStopFallback is the fallback stop offset as a fraction of price.
const DefaultStopFallback = 0.02

// StopLossPrice returns the protective stop for a new position. The
// supertrend line is used when it sits on the protective side of price
// (below for long, above for short); otherwise the stop is offset from
// price by fallback (a fraction, e.g. 0.02).
func StopLossPrice(side model.Side, price, supertrend, fallback float64) float64 {
	switch side {
	case model.SideLong:
		if supertrend > 0 && supertrend < price {
			return supertrend
		}
		return price * (1 - fallback)
	case model.SideShort:
		if supertrend > price {
			return supertrend
		}
		return price * (1 + fallback)
	}
	return 0
}
