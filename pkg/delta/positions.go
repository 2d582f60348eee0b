package delta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"supertrend-bot/internal/model"
)

type positionJSON struct {
	ProductID     int64     `json:"product_id"`
	ProductSymbol string    `json:"product_symbol"`
	Size          flexFloat `json:"size"`
	EntryPrice    flexFloat `json:"entry_price"`
	MarkPrice     flexFloat `json:"mark_price"`
	UnrealizedPnL flexFloat `json:"unrealized_pnl"`
	RealizedPnL   flexFloat `json:"realized_pnl"`
}

// GetPositions returns the margined positions for symbol. Size is signed on
// the wire; the result carries it as Side plus a non-negative Size.
func (c *Client) GetPositions(ctx context.Context, symbol string) ([]model.Position, error) {
	pid, err := c.ProductID(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("product_id", strconv.FormatInt(pid, 10))
	raw, err := c.doRequest(ctx, http.MethodGet, "/v2/positions/margined", params, nil, true)
	if err != nil {
		return nil, err
	}

	var rows []positionJSON
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0 || string(trimmed) == "null":
	case trimmed[0] == '{':
		var one positionJSON
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("delta: decode position: %w", err)
		}
		rows = append(rows, one)
	default:
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("delta: decode positions: %w", err)
		}
	}

	out := make([]model.Position, 0, len(rows))
	for _, r := range rows {
		if r.ProductID == 0 {
			r.ProductID = pid
		}
		p := model.PositionFromSigned(r.ProductID, float64(r.Size))
		p.Symbol = symbol
		p.EntryPrice = float64(r.EntryPrice)
		p.MarkPrice = float64(r.MarkPrice)
		p.UnrealizedPnL = float64(r.UnrealizedPnL)
		p.RealizedPnL = float64(r.RealizedPnL)
		out = append(out, p)
	}
	return out, nil
}
