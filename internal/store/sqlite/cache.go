package sqlite

import (
	"context"
	"log"

	"supertrend-bot/internal/model"
)

// CachedSource wraps a candle source with the SQLite candle table. Every
// successful fetch is written through. With fallback set, a failed fetch
// serves the cached range instead; the live loop leaves it off so it never
// trades on stale candles.
type CachedSource struct {
	src      model.CandleSource
	store    *Store
	fallback bool
}

// NewCachedSource returns a write-through cache over src.
func NewCachedSource(src model.CandleSource, store *Store, fallback bool) *CachedSource {
	return &CachedSource{src: src, store: store, fallback: fallback}
}

func (c *CachedSource) FetchCandles(ctx context.Context, symbol, resolution string, start, end int64) ([]model.Candle, error) {
	candles, err := c.src.FetchCandles(ctx, symbol, resolution, start, end)
	if err != nil {
		if !c.fallback {
			return nil, err
		}
		cached, cerr := c.store.LoadCandles(ctx, symbol, resolution, start, end)
		if cerr != nil || len(cached) == 0 {
			return nil, err
		}
		log.Printf("[sqlite] source failed (%v), serving %d cached candles", err, len(cached))
		return cached, nil
	}
	if err := c.store.SaveCandles(ctx, symbol, resolution, candles); err != nil {
		log.Printf("[sqlite] cache write failed: %v", err)
	}
	return candles, nil
}
