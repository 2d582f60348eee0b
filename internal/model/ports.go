package model

import "context"

// ── Exchange Port Interfaces ──
// The reconciler depends on these narrow capabilities instead of a concrete
// exchange client. pkg/delta and the paper exchange satisfy all of them.

// CandleSource fetches candles ordered oldest first, deduplicated by time.
// Zero start/end select the source's default window.
type CandleSource interface {
	FetchCandles(ctx context.Context, symbol, resolution string, start, end int64) ([]Candle, error)
}

// OrderPlacer places market and stop orders.
type OrderPlacer interface {
	PlaceMarketOrder(ctx context.Context, symbol string, size float64, side OrderSide, reduceOnly bool) (*Order, error)
	PlaceStopOrder(ctx context.Context, symbol string, size float64, side OrderSide, stopPrice float64) (*Order, error)
}

// PositionReader reads open positions for a symbol. An empty slice means no
// position.
type PositionReader interface {
	GetPositions(ctx context.Context, symbol string) ([]Position, error)
}

// Exchange combines every capability the reconciler needs.
type Exchange interface {
	CandleSource
	OrderPlacer
	PositionReader
}
