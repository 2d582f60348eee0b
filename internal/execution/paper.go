package execution

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"supertrend-bot/internal/model"
)

// Fill is a simulated execution.
type Fill struct {
	OrderID   string          `json:"order_id"`
	Side      model.OrderSide `json:"side"`
	OrderType string          `json:"order_type"`
	Size      float64         `json:"size"`
	Price     float64         `json:"price"`
	Slippage  float64         `json:"slippage"`
	FilledAt  time.Time       `json:"filled_at"`
}

type restingStop struct {
	order model.Order
}

// PaperExchange simulates the exchange on top of a real candle source.
// Market orders fill at the last seen close adjusted by slippageBps; stop
// orders rest until a later candle trades through them.
type PaperExchange struct {
	src model.CandleSource

	mu          sync.Mutex
	fills       []Fill
	stops       []restingStop
	signedSize  float64
	entryPrice  float64
	lastClose   float64
	lastTime    int64
	slippageBps float64
	now         func() time.Time
}

// NewPaperExchange wraps src. slippageBps is in basis points (5 = 0.05%).
func NewPaperExchange(src model.CandleSource, slippageBps float64) *PaperExchange {
	return &PaperExchange{src: src, slippageBps: slippageBps, now: time.Now}
}

// FetchCandles delegates to the source and replays the new candles against
// resting stops.
func (p *PaperExchange) FetchCandles(ctx context.Context, symbol, resolution string, start, end int64) ([]model.Candle, error) {
	candles, err := p.src.FetchCandles(ctx, symbol, resolution, start, end)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range candles {
		if c.Time <= p.lastTime {
			continue
		}
		p.lastTime = c.Time
		p.lastClose = c.Close
		p.triggerStops(c)
	}
	return candles, nil
}

// triggerStops fills resting stops the candle traded through, at the stop
// price. Caller holds mu.
func (p *PaperExchange) triggerStops(c model.Candle) {
	kept := p.stops[:0]
	for _, s := range p.stops {
		hit := (s.order.Side == model.OrderSell && c.Low <= s.order.StopPrice) ||
			(s.order.Side == model.OrderBuy && c.High >= s.order.StopPrice)
		if !hit || p.signedSize == 0 {
			kept = append(kept, s)
			continue
		}
		size := math.Min(s.order.Size, math.Abs(p.signedSize))
		p.apply(s.order.ID, s.order.Side, model.OrderTypeStop, size, s.order.StopPrice, 0)
		log.Printf("[paper] stop %s %s %g @ %.2f triggered by candle %d", s.order.ID, s.order.Side, size, s.order.StopPrice, c.Time)
	}
	p.stops = kept
	if p.signedSize == 0 {
		p.stops = p.stops[:0]
	}
}

// PlaceMarketOrder fills immediately at the last close plus slippage.
func (p *PaperExchange) PlaceMarketOrder(ctx context.Context, symbol string, size float64, side model.OrderSide, reduceOnly bool) (*model.Order, error) {
	if size <= 0 {
		return nil, fmt.Errorf("paper: size must be positive, got %g", size)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastClose <= 0 {
		return nil, fmt.Errorf("paper: no market price for %s yet", symbol)
	}
	if reduceOnly {
		if p.signedSize == 0 || (side == model.OrderBuy) == (p.signedSize > 0) {
			return nil, fmt.Errorf("paper: reduce-only %s would not reduce position %g", side, p.signedSize)
		}
		size = math.Min(size, math.Abs(p.signedSize))
	}

	slip := p.lastClose * p.slippageBps / 10000
	price := p.lastClose + slip
	if side == model.OrderSell {
		price = p.lastClose - slip
	}

	o := model.Order{
		ID:            uuid.NewString(),
		ClientOrderID: uuid.NewString(),
		Symbol:        symbol,
		Side:          side,
		Size:          size,
		OrderType:     model.OrderTypeMarket,
		ReduceOnly:    reduceOnly,
		State:         "closed",
		AvgFillPrice:  price,
		CreatedAt:     p.now(),
	}
	p.apply(o.ID, side, o.OrderType, size, price, slip)
	if p.signedSize == 0 {
		p.stops = p.stops[:0]
	}
	log.Printf("[paper] %s %s %g @ %.2f (slip=%.4f) order=%s", side, symbol, size, price, slip, o.ID)
	return &o, nil
}

// PlaceStopOrder rests a reduce-only stop.
func (p *PaperExchange) PlaceStopOrder(ctx context.Context, symbol string, size float64, side model.OrderSide, stopPrice float64) (*model.Order, error) {
	if size <= 0 || stopPrice <= 0 {
		return nil, fmt.Errorf("paper: invalid stop size=%g price=%g", size, stopPrice)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	o := model.Order{
		ID:            uuid.NewString(),
		ClientOrderID: uuid.NewString(),
		Symbol:        symbol,
		Side:          side,
		Size:          size,
		OrderType:     model.OrderTypeStop,
		StopPrice:     stopPrice,
		ReduceOnly:    true,
		State:         "open",
		CreatedAt:     p.now(),
	}
	p.stops = append(p.stops, restingStop{order: o})
	return &o, nil
}

// GetPositions returns the simulated position, or none when flat.
func (p *PaperExchange) GetPositions(ctx context.Context, symbol string) ([]model.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signedSize == 0 {
		return nil, nil
	}
	pos := model.PositionFromSigned(0, p.signedSize)
	pos.Symbol = symbol
	pos.EntryPrice = p.entryPrice
	pos.MarkPrice = p.lastClose
	pos.UnrealizedPnL = (p.lastClose - p.entryPrice) * p.signedSize
	return []model.Position{pos}, nil
}

// Fills returns a copy of every simulated execution.
func (p *PaperExchange) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Fill, len(p.fills))
	copy(out, p.fills)
	return out
}

// OpenStops returns the resting stop orders.
func (p *PaperExchange) OpenStops() []model.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Order, 0, len(p.stops))
	for _, s := range p.stops {
		out = append(out, s.order)
	}
	return out
}

// apply books a fill into the signed position. Caller holds mu.
func (p *PaperExchange) apply(id string, side model.OrderSide, orderType string, size, price, slip float64) {
	delta := size
	if side == model.OrderSell {
		delta = -size
	}
	next := p.signedSize + delta
	switch {
	case p.signedSize == 0 || (p.signedSize > 0) == (delta > 0):
		// Adding: size-weighted entry.
		total := math.Abs(p.signedSize) + size
		p.entryPrice = (p.entryPrice*math.Abs(p.signedSize) + price*size) / total
	case next == 0:
		p.entryPrice = 0
	case (next > 0) != (p.signedSize > 0):
		// Flipped through zero: the remainder opens at this price.
		p.entryPrice = price
	}
	p.signedSize = next
	p.fills = append(p.fills, Fill{
		OrderID:   id,
		Side:      side,
		OrderType: orderType,
		Size:      size,
		Price:     price,
		Slippage:  slip,
		FilledAt:  p.now(),
	})
}
