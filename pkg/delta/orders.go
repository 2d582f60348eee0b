package delta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"supertrend-bot/internal/model"
)

type orderRequest struct {
	ProductID     int64   `json:"product_id"`
	Size          float64 `json:"size"`
	Side          string  `json:"side"`
	OrderType     string  `json:"order_type"`
	StopOrderType string  `json:"stop_order_type,omitempty"`
	StopPrice     string  `json:"stop_price,omitempty"`
	ReduceOnly    bool    `json:"reduce_only"`
	ClientOrderID string  `json:"client_order_id"`
}

type orderJSON struct {
	ID            int64     `json:"id"`
	ClientOrderID string    `json:"client_order_id"`
	ProductID     int64     `json:"product_id"`
	ProductSymbol string    `json:"product_symbol"`
	Side          string    `json:"side"`
	Size          flexFloat `json:"size"`
	OrderType     string    `json:"order_type"`
	StopPrice     flexFloat `json:"stop_price"`
	ReduceOnly    bool      `json:"reduce_only"`
	State         string    `json:"state"`
	AvgFillPrice  flexFloat `json:"average_fill_price"`
	CreatedAt     string    `json:"created_at"`
}

func (o orderJSON) toModel(symbol string) *model.Order {
	created, _ := time.Parse(time.RFC3339Nano, o.CreatedAt)
	if o.ProductSymbol != "" {
		symbol = o.ProductSymbol
	}
	return &model.Order{
		ID:            strconv.FormatInt(o.ID, 10),
		ClientOrderID: o.ClientOrderID,
		ProductID:     o.ProductID,
		Symbol:        symbol,
		Side:          model.OrderSide(o.Side),
		Size:          float64(o.Size),
		OrderType:     o.OrderType,
		StopPrice:     float64(o.StopPrice),
		ReduceOnly:    o.ReduceOnly,
		State:         o.State,
		AvgFillPrice:  float64(o.AvgFillPrice),
		CreatedAt:     created,
	}
}

// PlaceMarketOrder submits a market order.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, size float64, side model.OrderSide, reduceOnly bool) (*model.Order, error) {
	pid, err := c.ProductID(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return c.placeOrder(ctx, symbol, orderRequest{
		ProductID:  pid,
		Size:       size,
		Side:       string(side),
		OrderType:  model.OrderTypeMarket,
		ReduceOnly: reduceOnly,
	})
}

// PlaceStopOrder submits a reduce-only stop-market order triggered at
// stopPrice.
func (c *Client) PlaceStopOrder(ctx context.Context, symbol string, size float64, side model.OrderSide, stopPrice float64) (*model.Order, error) {
	pid, err := c.ProductID(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return c.placeOrder(ctx, symbol, orderRequest{
		ProductID:     pid,
		Size:          size,
		Side:          string(side),
		OrderType:     model.OrderTypeMarket,
		StopOrderType: model.OrderTypeStop,
		StopPrice:     strconv.FormatFloat(stopPrice, 'f', 2, 64),
		ReduceOnly:    true,
	})
}

func (c *Client) placeOrder(ctx context.Context, symbol string, req orderRequest) (*model.Order, error) {
	if req.Size <= 0 {
		return nil, fmt.Errorf("delta: order size must be positive, got %g", req.Size)
	}
	req.ClientOrderID = uuid.NewString()
	raw, err := c.doRequest(ctx, http.MethodPost, "/v2/orders", nil, req, true)
	if err != nil {
		return nil, err
	}
	var o orderJSON
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("delta: decode order: %w", err)
	}
	if o.ClientOrderID == "" {
		o.ClientOrderID = req.ClientOrderID
	}
	return o.toModel(symbol), nil
}
