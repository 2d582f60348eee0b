package delta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"supertrend-bot/internal/markethours"
	"supertrend-bot/internal/model"
)

type candleJSON struct {
	Time   int64     `json:"time"`
	Open   flexFloat `json:"open"`
	High   flexFloat `json:"high"`
	Low    flexFloat `json:"low"`
	Close  flexFloat `json:"close"`
	Volume flexFloat `json:"volume"`
}

// FetchCandles returns candles in [start, end], oldest first. Zero end means
// now and zero start means end minus 24h.
func (c *Client) FetchCandles(ctx context.Context, symbol, resolution string, start, end int64) ([]model.Candle, error) {
	if end == 0 {
		end = c.now().Unix()
	}
	if start == 0 {
		start = end - 24*60*60
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("resolution", resolution)
	params.Set("start", strconv.FormatInt(start, 10))
	params.Set("end", strconv.FormatInt(end, 10))

	raw, err := c.doRequest(ctx, http.MethodGet, "/v2/history/candles", params, nil, false)
	if err != nil {
		return nil, err
	}
	var rows []candleJSON
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("delta: decode candles: %w", err)
	}
	out := make([]model.Candle, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Candle{
			Time:   r.Time,
			Open:   float64(r.Open),
			High:   float64(r.High),
			Low:    float64(r.Low),
			Close:  float64(r.Close),
			Volume: float64(r.Volume),
		})
	}
	// The API answers newest first.
	return model.DedupSort(out), nil
}

// FetchCandlesBatched walks backward from end in windows of BatchSize
// candles until a window comes back empty or start is passed. Zero end
// means now and zero start means end minus two days.
func (c *Client) FetchCandlesBatched(ctx context.Context, symbol, resolution string, start, end int64) ([]model.Candle, error) {
	tf, err := markethours.TimeframeSeconds(resolution)
	if err != nil {
		return nil, err
	}
	if end == 0 {
		end = c.now().Unix()
	}
	if start == 0 {
		start = end - 2*24*60*60
	}

	var all []model.Candle
	window := int64(c.batchSize) * tf
	for cur := end; cur > start; {
		from := cur - window
		if from < start {
			from = start
		}
		batch, err := c.FetchCandles(ctx, symbol, resolution, from, cur)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		cur = batch[0].Time - tf

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.throttle):
		}
	}
	return model.DedupSort(all), nil
}

type productJSON struct {
	ID     int64  `json:"id"`
	Symbol string `json:"symbol"`
}

// ProductID resolves a symbol to its product id. The product list is
// fetched once and cached.
func (c *Client) ProductID(ctx context.Context, symbol string) (int64, error) {
	c.productsMu.Lock()
	defer c.productsMu.Unlock()
	if c.products == nil {
		raw, err := c.doRequest(ctx, http.MethodGet, "/v2/products", nil, nil, false)
		if err != nil {
			return 0, err
		}
		var list []productJSON
		if err := json.Unmarshal(raw, &list); err != nil {
			return 0, fmt.Errorf("delta: decode products: %w", err)
		}
		c.products = make(map[string]int64, len(list))
		for _, p := range list {
			c.products[p.Symbol] = p.ID
		}
	}
	id, ok := c.products[symbol]
	if !ok {
		return 0, fmt.Errorf("delta: unknown product %q", symbol)
	}
	return id, nil
}
