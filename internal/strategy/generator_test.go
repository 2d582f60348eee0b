package strategy

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"supertrend-bot/internal/indicator"
	"supertrend-bot/internal/model"
)

func walk(n int, seed int64) []model.Candle {
	r := rand.New(rand.NewSource(seed))
	out := make([]model.Candle, n)
	price := 2000.0
	for i := range out {
		open := price
		price += (r.Float64() - 0.5) * 20
		out[i] = model.Candle{
			Time:  int64(1_700_000_000 + i*300),
			Open:  open,
			High:  math.Max(open, price) + r.Float64()*5,
			Low:   math.Min(open, price) - r.Float64()*5,
			Close: price,
		}
	}
	return out
}

func TestGenerator_SlidingWindowMatchesBulk(t *testing.T) {
	cfg := indicator.DefaultConfig()
	candles := walk(300, 9)
	bulk, _ := indicator.Compute(candles, cfg)

	g, err := NewGenerator(cfg)
	if err != nil {
		t.Fatal(err)
	}

	ev, err := g.Evaluate(candles[:200])
	if err != nil {
		t.Fatal(err)
	}
	if !ev.Reseeded || ev.Applied != 200 {
		t.Fatalf("first pass: reseeded=%v applied=%d", ev.Reseeded, ev.Applied)
	}

	// Each later window overlaps the previous one and slides forward.
	for end := 201; end <= 300; end++ {
		ev, err = g.Evaluate(candles[end-150 : end])
		if err != nil {
			t.Fatal(err)
		}
		if ev.Reseeded || ev.Applied != 1 {
			t.Fatalf("end=%d: reseeded=%v applied=%d", end, ev.Reseeded, ev.Applied)
		}
		if !reflect.DeepEqual(ev.Current, bulk[end-1]) || !reflect.DeepEqual(ev.Previous, bulk[end-2]) {
			t.Fatalf("end=%d: snapshots diverge from bulk", end)
		}
		want := DetectFlip(bulk[end-2], bulk[end-1])
		if ev.Event.Signal != want.Signal {
			t.Fatalf("end=%d: signal %s, want %s", end, ev.Event.Signal, want.Signal)
		}
	}
}

func TestGenerator_NoNewCandleKeepsState(t *testing.T) {
	g, _ := NewGenerator(indicator.DefaultConfig())
	candles := walk(60, 2)
	first, _ := g.Evaluate(candles)
	again, err := g.Evaluate(candles)
	if err != nil {
		t.Fatal(err)
	}
	if again.Applied != 0 || again.Reseeded {
		t.Fatalf("applied=%d reseeded=%v", again.Applied, again.Reseeded)
	}
	if !reflect.DeepEqual(first.Current, again.Current) {
		t.Error("current snapshot changed without new candles")
	}
}

func TestGenerator_GapReseeds(t *testing.T) {
	g, _ := NewGenerator(indicator.DefaultConfig())
	candles := walk(200, 4)
	g.Evaluate(candles[:50])
	ev, err := g.Evaluate(candles[100:])
	if err != nil {
		t.Fatal(err)
	}
	if !ev.Reseeded || ev.Applied != 100 {
		t.Fatalf("reseeded=%v applied=%d", ev.Reseeded, ev.Applied)
	}
	bulk, _ := indicator.Compute(candles[100:], indicator.DefaultConfig())
	if !reflect.DeepEqual(ev.Current, bulk[len(bulk)-1]) {
		t.Error("reseeded state should equal bulk over the new history")
	}
}

func TestGenerator_StateRoundTrip(t *testing.T) {
	cfg := indicator.DefaultConfig()
	candles := walk(120, 5)

	a, _ := NewGenerator(cfg)
	a.Evaluate(candles[:100])
	data, err := a.MarshalState()
	if err != nil {
		t.Fatal(err)
	}

	b, _ := NewGenerator(cfg)
	if err := b.RestoreState(data); err != nil {
		t.Fatal(err)
	}
	ea, _ := a.Evaluate(candles[50:101])
	eb, _ := b.Evaluate(candles[50:101])
	if eb.Reseeded {
		t.Fatal("restored generator should continue incrementally")
	}
	if !reflect.DeepEqual(ea.Current, eb.Current) || ea.Event.Signal != eb.Event.Signal {
		t.Error("restored generator diverged")
	}
}

func TestGenerator_EmptyHistory(t *testing.T) {
	g, _ := NewGenerator(indicator.DefaultConfig())
	if _, err := g.Evaluate(nil); err == nil {
		t.Error("expected error for empty history")
	}
}
