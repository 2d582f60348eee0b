package model

import "time"

// OrderSide is the exchange order direction.
type OrderSide string

const (
	OrderBuy  OrderSide = "buy"
	OrderSell OrderSide = "sell"
)

// Opposite returns the other side.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderBuy {
		return OrderSell
	}
	return OrderBuy
}

// Order types understood by the exchange.
const (
	OrderTypeMarket = "market_order"
	OrderTypeStop   = "stop_loss_order"
)

// Order is an acknowledged order.
type Order struct {
	ID            string    `json:"id"`
	ClientOrderID string    `json:"client_order_id"`
	ProductID     int64     `json:"product_id"`
	Symbol        string    `json:"symbol"`
	Side          OrderSide `json:"side"`
	Size          float64   `json:"size"`
	OrderType     string    `json:"order_type"`
	StopPrice     float64   `json:"stop_price,omitempty"`
	ReduceOnly    bool      `json:"reduce_only"`
	State         string    `json:"state"`
	AvgFillPrice  float64   `json:"average_fill_price,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
