package indicator

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"supertrend-bot/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func bar(ts int64, high, low, close float64) model.Candle {
	return model.Candle{Time: ts, Open: close, High: high, Low: low, Close: close}
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func mustNew(t *testing.T, period int, mult float64) *Supertrend {
	t.Helper()
	st, err := New(Config{Period: period, Multiplier: mult})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return st
}

// randomWalk builds n candles starting at 100 with a fixed seed.
func randomWalk(n int, seed int64) []model.Candle {
	r := rand.New(rand.NewSource(seed))
	out := make([]model.Candle, n)
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		price += (r.Float64() - 0.5) * 4
		high := math.Max(open, price) + r.Float64()*2
		low := math.Min(open, price) - r.Float64()*2
		out[i] = model.Candle{Time: int64(1_700_000_000 + i*300), Open: open, High: high, Low: low, Close: price, Volume: 1}
	}
	return out
}

// ────────────────────────────────────────────────────────────
// Warm-up
// ────────────────────────────────────────────────────────────

func TestSupertrend_ShortHistoryAllNone(t *testing.T) {
	for _, period := range []int{1, 3, 10} {
		candles := randomWalk(period, 1) // period candles -> period-1 TR samples
		snaps, err := Compute(candles, Config{Period: period, Multiplier: 3})
		if err != nil {
			t.Fatal(err)
		}
		for i, s := range snaps {
			if s.Ready || s.Trend != model.TrendNone {
				t.Errorf("period=%d candle %d: expected none snapshot, got %+v", period, i, s)
			}
		}

		st := mustNew(t, period, 3)
		for i, c := range candles {
			s, err := st.Update(c)
			if err != nil {
				t.Fatal(err)
			}
			if s.Ready {
				t.Errorf("period=%d incremental candle %d: expected none", period, i)
			}
		}
	}
}

func TestSupertrend_FirstCandleAlwaysNone(t *testing.T) {
	st := mustNew(t, 1, 1)
	s, _ := st.Update(bar(1, 101, 99, 100))
	if s.Ready {
		t.Fatalf("first candle must be none, got %+v", s)
	}
	s, _ = st.Update(bar(2, 101, 99, 100))
	if !s.Ready {
		t.Fatal("period=1: second candle should be ready")
	}
}

// ────────────────────────────────────────────────────────────
// ATR seed
// ────────────────────────────────────────────────────────────

func TestSupertrend_SeedConstantTrueRange(t *testing.T) {
	// Constant TR of 10 around a flat close of 100, period=3, mult=2.
	// Index 3 is the first ready snapshot: ATR = (10+10+10)/3 = 10,
	// bands = hl2 ± 2*10 = 100 ± 20.
	st := mustNew(t, 3, 2)
	var last model.Snapshot
	for i := 0; i < 4; i++ {
		s, err := st.Update(bar(int64(i), 105, 95, 100))
		if err != nil {
			t.Fatal(err)
		}
		if i < 3 && s.Ready {
			t.Fatalf("candle %d should be warm-up", i)
		}
		last = s
	}
	if !last.Ready {
		t.Fatal("candle 3 should be ready")
	}
	assertClose(t, "atr", last.ATR, 10, 1e-9)
	assertClose(t, "basic upper", last.BasicUpper, 120, 1e-9)
	assertClose(t, "basic lower", last.BasicLower, 80, 1e-9)
	if last.Trend != model.TrendUp {
		t.Errorf("first valid trend: got %q, want up", last.Trend)
	}
}

func TestSupertrend_SeedIncludesPeriodthSample(t *testing.T) {
	// TRs 10, 20, 30 -> seed = 20 (not mean of two samples).
	// Next TR 10 -> Wilder (20*2+10)/3 = 16.6667.
	candles := []model.Candle{
		bar(0, 105, 95, 100),
		bar(1, 105, 95, 100), // TR 10
		bar(2, 110, 90, 100), // TR 20
		bar(3, 115, 85, 100), // TR 30
		bar(4, 105, 95, 100), // TR 10
	}
	snaps, err := Compute(candles, Config{Period: 3, Multiplier: 1})
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, "seed atr", snaps[3].ATR, 20, 1e-9)
	assertClose(t, "wilder atr", snaps[4].ATR, 50.0/3.0, 1e-9)
}

func TestTrueRange_UsesPreviousClose(t *testing.T) {
	// Gap up: |high-prevClose| dominates.
	assertClose(t, "gap up", TrueRange(bar(0, 112, 108, 110), 100), 12, 1e-12)
	// Gap down: |low-prevClose| dominates.
	assertClose(t, "gap down", TrueRange(bar(0, 92, 88, 90), 100), 12, 1e-12)
	// Inside bar: high-low.
	assertClose(t, "inside", TrueRange(bar(0, 103, 97, 100), 100), 6, 1e-12)
}

// ────────────────────────────────────────────────────────────
// Ratchet and trend
// ────────────────────────────────────────────────────────────

func TestSupertrend_HandComputedFlips(t *testing.T) {
	// period=1, mult=1 so ATR equals each bar's TR.
	// c1: TR 2,  hl2 100 -> bands 102/98, trend up, line 98
	// c2: TR 10, hl2 93  -> basic 103/83, carried 102/98, close 91 <= 98 -> down, line 102
	// c3: TR 4,  hl2 90  -> basic 94/86, upper tightens to 94, lower resets to 86 (prev close 91 < 98), down, line 94
	// c4: TR 10, hl2 98  -> basic 108/88, upper carried 94, lower tightens 88, close 99 >= 94 -> up, line 88
	candles := []model.Candle{
		bar(0, 101, 99, 100),
		bar(1, 101, 99, 100),
		bar(2, 96, 90, 91),
		bar(3, 92, 88, 90),
		bar(4, 100, 96, 99),
	}
	want := []struct {
		atr, fu, fl, line float64
		trend             model.Trend
	}{
		{},
		{2, 102, 98, 98, model.TrendUp},
		{10, 102, 98, 102, model.TrendDown},
		{4, 94, 86, 94, model.TrendDown},
		{10, 94, 88, 88, model.TrendUp},
	}

	st := mustNew(t, 1, 1)
	for i, c := range candles {
		s, err := st.Update(c)
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			if s.Ready {
				t.Fatal("candle 0 must be none")
			}
			continue
		}
		w := want[i]
		assertClose(t, "atr", s.ATR, w.atr, 1e-9)
		assertClose(t, "final upper", s.FinalUpper, w.fu, 1e-9)
		assertClose(t, "final lower", s.FinalLower, w.fl, 1e-9)
		assertClose(t, "line", s.SupertrendLine, w.line, 1e-9)
		if s.Trend != w.trend {
			t.Errorf("candle %d trend: got %q, want %q", i, s.Trend, w.trend)
		}
	}
}

func TestSupertrend_BandsNeverLoosen(t *testing.T) {
	candles := randomWalk(500, 7)
	snaps, err := Compute(candles, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(snaps); i++ {
		prev, cur := snaps[i-1], snaps[i]
		if !prev.Ready || !cur.Ready {
			continue
		}
		if cur.BasicUpper < prev.FinalUpper && prev.Close <= prev.FinalUpper && cur.FinalUpper > prev.FinalUpper {
			t.Errorf("candle %d: upper loosened %.4f -> %.4f", i, prev.FinalUpper, cur.FinalUpper)
		}
		if prev.Close >= prev.FinalLower && cur.FinalLower < prev.FinalLower {
			t.Errorf("candle %d: lower loosened %.4f -> %.4f", i, prev.FinalLower, cur.FinalLower)
		}
		if prev.Close <= prev.FinalUpper && cur.FinalUpper > prev.FinalUpper {
			t.Errorf("candle %d: upper widened without breach", i)
		}
	}
}

func TestSupertrend_TrendChangesOnlyOnOppositeBandCross(t *testing.T) {
	snaps, err := Compute(randomWalk(800, 11), Config{Period: 7, Multiplier: 2})
	if err != nil {
		t.Fatal(err)
	}
	first := true
	flips := 0
	for i := 1; i < len(snaps); i++ {
		prev, cur := snaps[i-1], snaps[i]
		if !cur.Ready {
			continue
		}
		if first {
			first = false
			if cur.Trend != model.TrendUp {
				t.Fatalf("first valid trend %q, want up", cur.Trend)
			}
			continue
		}
		switch {
		case prev.Trend == model.TrendUp && cur.Trend == model.TrendDown:
			flips++
			if cur.Close > cur.FinalLower {
				t.Errorf("candle %d: flipped down without close <= lower", i)
			}
		case prev.Trend == model.TrendDown && cur.Trend == model.TrendUp:
			flips++
			if cur.Close < cur.FinalUpper {
				t.Errorf("candle %d: flipped up without close >= upper", i)
			}
		case prev.Trend == model.TrendUp && cur.Close <= cur.FinalLower:
			t.Errorf("candle %d: close breached lower but trend stayed up", i)
		case prev.Trend == model.TrendDown && cur.Close >= cur.FinalUpper:
			t.Errorf("candle %d: close breached upper but trend stayed down", i)
		}
	}
	if flips == 0 {
		t.Fatal("expected at least one flip on a random walk")
	}
}

// ────────────────────────────────────────────────────────────
// Bulk vs incremental
// ────────────────────────────────────────────────────────────

func TestSupertrend_IncrementalMatchesBulk(t *testing.T) {
	for _, cfg := range []Config{{1, 1}, {3, 2}, {10, 3}, {14, 1.5}} {
		candles := randomWalk(400, int64(cfg.Period))
		bulk, err := Compute(candles, cfg)
		if err != nil {
			t.Fatal(err)
		}
		st, _ := New(cfg)
		for i, c := range candles {
			s, err := st.Update(c)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(s, bulk[i]) {
				t.Fatalf("%s candle %d:\nincremental %+v\nbulk        %+v", cfg.Name(), i, s, bulk[i])
			}
		}
	}
}

func TestSupertrend_InitializeFromHistory(t *testing.T) {
	candles := randomWalk(120, 3)
	bulk, _ := Compute(candles, DefaultConfig())

	// Shuffled with duplicates: history is deduplicated and sorted first.
	messy := append([]model.Candle{}, candles[60:]...)
	messy = append(messy, candles[:60]...)
	messy = append(messy, candles[10], candles[90])

	st, _ := New(DefaultConfig())
	last := st.InitializeFromHistory(messy)
	if !reflect.DeepEqual(last, bulk[len(bulk)-1]) {
		t.Fatalf("last snapshot mismatch:\n got %+v\nwant %+v", last, bulk[len(bulk)-1])
	}
	if st.LastTime() != candles[len(candles)-1].Time {
		t.Errorf("LastTime: got %d", st.LastTime())
	}

	// Re-initializing discards earlier state.
	again := st.InitializeFromHistory(candles)
	if !reflect.DeepEqual(again, last) {
		t.Error("second initialization should give the same snapshot")
	}
}

func TestSupertrend_UpdateRejectsOutOfOrder(t *testing.T) {
	st := mustNew(t, 3, 2)
	st.Update(bar(10, 101, 99, 100))
	if _, err := st.Update(bar(10, 101, 99, 100)); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("duplicate time: expected ErrOutOfOrder, got %v", err)
	}
	if _, err := st.Update(bar(5, 101, 99, 100)); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("older time: expected ErrOutOfOrder, got %v", err)
	}
}

func TestSupertrend_Reset(t *testing.T) {
	st := mustNew(t, 2, 2)
	for _, c := range randomWalk(10, 5) {
		st.Update(c)
	}
	if !st.Ready() {
		t.Fatal("expected ready")
	}
	st.Reset()
	if st.Ready() || st.LastTime() != 0 {
		t.Fatal("Reset should clear state")
	}
	s, err := st.Update(bar(1, 101, 99, 100))
	if err != nil || s.Ready {
		t.Fatalf("after reset the first candle is none: %+v %v", s, err)
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		cfg Config
		ok  bool
	}{
		{Config{10, 3}, true},
		{Config{1, 0.5}, true},
		{Config{0, 3}, false},
		{Config{10, 0}, false},
		{Config{10, -1}, false},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if (err == nil) != tc.ok {
			t.Errorf("%+v: err=%v, want ok=%v", tc.cfg, err, tc.ok)
		}
	}
	if _, err := Compute(nil, Config{}); err == nil {
		t.Error("Compute should reject invalid config")
	}
}
