package execution

import (
	"context"
	"math"
	"testing"
	"time"

	"supertrend-bot/internal/model"
)

type staticSource struct{ candles []model.Candle }

func (s *staticSource) FetchCandles(ctx context.Context, symbol, resolution string, start, end int64) ([]model.Candle, error) {
	return s.candles, nil
}

func TestPaperExchange_MarketFillsWithSlippage(t *testing.T) {
	src := &staticSource{candles: []model.Candle{{Time: 100, Open: 99, High: 101, Low: 98, Close: 100}}}
	p := NewPaperExchange(src, 10)
	ctx := context.Background()

	if _, err := p.PlaceMarketOrder(ctx, "ETHUSD", 1, model.OrderBuy, false); err == nil {
		t.Fatal("expected error before any price is known")
	}
	if _, err := p.FetchCandles(ctx, "ETHUSD", "5m", 0, 0); err != nil {
		t.Fatal(err)
	}

	o, err := p.PlaceMarketOrder(ctx, "ETHUSD", 2, model.OrderBuy, false)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(o.AvgFillPrice-100.1) > 1e-9 {
		t.Errorf("buy fill = %v, want 100.1", o.AvgFillPrice)
	}
	pos, _ := p.GetPositions(ctx, "ETHUSD")
	if len(pos) != 1 || pos[0].Side != model.SideLong || pos[0].Size != 2 {
		t.Fatalf("position = %+v", pos)
	}

	if _, err := p.PlaceMarketOrder(ctx, "ETHUSD", 1, model.OrderBuy, true); err == nil {
		t.Error("reduce-only buy on a long should be rejected")
	}
	if _, err := p.PlaceMarketOrder(ctx, "ETHUSD", 5, model.OrderSell, true); err != nil {
		t.Fatal(err)
	}
	pos, _ = p.GetPositions(ctx, "ETHUSD")
	if len(pos) != 0 {
		t.Errorf("reduce-only close left %+v", pos)
	}
	fills := p.Fills()
	if len(fills) != 2 || fills[1].Size != 2 || math.Abs(fills[1].Price-99.9) > 1e-9 {
		t.Errorf("fills = %+v", fills)
	}
}

func TestPaperExchange_StopTriggersOnLaterCandle(t *testing.T) {
	src := &staticSource{candles: []model.Candle{{Time: 100, Open: 100, High: 101, Low: 99, Close: 100}}}
	p := NewPaperExchange(src, 0)
	ctx := context.Background()
	p.FetchCandles(ctx, "ETHUSD", "5m", 0, 0)

	if _, err := p.PlaceMarketOrder(ctx, "ETHUSD", 3, model.OrderBuy, false); err != nil {
		t.Fatal(err)
	}
	if _, err := p.PlaceStopOrder(ctx, "ETHUSD", 3, model.OrderSell, 95); err != nil {
		t.Fatal(err)
	}

	// Same candle again: no trigger.
	p.FetchCandles(ctx, "ETHUSD", "5m", 0, 0)
	if len(p.OpenStops()) != 1 {
		t.Fatalf("stop should still rest")
	}

	src.candles = append(src.candles, model.Candle{Time: 400, Open: 99, High: 99, Low: 94, Close: 96})
	p.FetchCandles(ctx, "ETHUSD", "5m", 0, 0)

	pos, _ := p.GetPositions(ctx, "ETHUSD")
	if len(pos) != 0 {
		t.Fatalf("position after stop = %+v", pos)
	}
	if len(p.OpenStops()) != 0 {
		t.Error("stop not cleared")
	}
	fills := p.Fills()
	last := fills[len(fills)-1]
	if last.OrderType != model.OrderTypeStop || last.Price != 95 {
		t.Errorf("stop fill = %+v", last)
	}
}

func TestPaperExchange_FlipKeepsRemainderEntry(t *testing.T) {
	src := &staticSource{candles: []model.Candle{{Time: 100, Close: 100, High: 100, Low: 100, Open: 100}}}
	p := NewPaperExchange(src, 0)
	ctx := context.Background()
	p.FetchCandles(ctx, "ETHUSD", "5m", 0, 0)

	p.PlaceMarketOrder(ctx, "ETHUSD", 1, model.OrderBuy, false)
	src.candles = append(src.candles, model.Candle{Time: 400, Close: 110, High: 110, Low: 110, Open: 110})
	p.FetchCandles(ctx, "ETHUSD", "5m", 0, 0)
	p.PlaceMarketOrder(ctx, "ETHUSD", 3, model.OrderSell, false)

	pos, _ := p.GetPositions(ctx, "ETHUSD")
	if len(pos) != 1 || pos[0].Side != model.SideShort || pos[0].Size != 2 || pos[0].EntryPrice != 110 {
		t.Errorf("position = %+v", pos)
	}
}

func TestPaperExchange_DrivesReconciler(t *testing.T) {
	src := &staticSource{candles: withJump(series(60, 1000, -5), 200)}
	p := NewPaperExchange(src, 0)
	cfg := DefaultSettings()
	cfg.SettleDelay, cfg.StopDelay, cfg.VerifyDelay = 0, 0, 0
	r, err := NewReconciler(cfg, Deps{
		Exchange: p,
		Notifier: &recordingNotifier{},
		Now:      func() time.Time { return testNow },
		Sleep:    func(ctx context.Context, d time.Duration) error { return nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	res := r.RunCycle(context.Background())
	if res.Decision != DecisionOpenLong {
		t.Fatalf("decision = %s (%v)", res.Decision, res.Err())
	}
	pos, _ := p.GetPositions(context.Background(), cfg.Symbol)
	if len(pos) != 1 || pos[0].Side != model.SideLong || pos[0].Size != cfg.OrderSize {
		t.Errorf("position = %+v", pos)
	}
	if len(p.OpenStops()) != 1 {
		t.Errorf("stops = %+v", p.OpenStops())
	}
}
