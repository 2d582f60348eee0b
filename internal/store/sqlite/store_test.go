package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"supertrend-bot/internal/backtest"
	"supertrend-bot/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{DBPath: filepath.Join(t.TempDir(), "nested", "test.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCandles_UpsertAndRange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := []model.Candle{
		{Time: 300, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Time: 600, Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 11},
	}
	if err := s.SaveCandles(ctx, "ETHUSD", "5m", first); err != nil {
		t.Fatal(err)
	}
	// overlapping write replaces the 600 bar
	if err := s.SaveCandles(ctx, "ETHUSD", "5m", []model.Candle{{Time: 600, Close: 9}, {Time: 900, Close: 3}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCandles(ctx, "BTCUSD", "5m", []model.Candle{{Time: 600, Close: 50000}}); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadCandles(ctx, "ETHUSD", "5m", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Time != 300 || got[1].Close != 9 || got[2].Time != 900 {
		t.Errorf("candles %+v", got)
	}

	ranged, _ := s.LoadCandles(ctx, "ETHUSD", "5m", 400, 600)
	if len(ranged) != 1 || ranged[0].Time != 600 {
		t.Errorf("range %+v", ranged)
	}

	last, err := s.LastCandleTime(ctx, "ETHUSD", "5m")
	if err != nil || last != 900 {
		t.Errorf("last %d (%v)", last, err)
	}
	if none, _ := s.LastCandleTime(ctx, "ETHUSD", "1h"); none != 0 {
		t.Errorf("empty resolution: %d", none)
	}
}

func TestCheckpoints_KeepsNewest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if cp, err := s.LatestCheckpoint(ctx, "ETHUSD"); err != nil || cp != nil {
		t.Fatalf("expected no checkpoint, got %q (%v)", cp, err)
	}
	for i := 0; i < 12; i++ {
		if err := s.SaveCheckpoint(ctx, "ETHUSD", []byte{byte('a' + i)}); err != nil {
			t.Fatal(err)
		}
	}
	cp, err := s.LatestCheckpoint(ctx, "ETHUSD")
	if err != nil || string(cp) != "l" {
		t.Errorf("latest %q (%v)", cp, err)
	}
	var n int
	s.DB().QueryRow(`SELECT COUNT(*) FROM indicator_checkpoints WHERE symbol = 'ETHUSD'`).Scan(&n)
	if n != 10 {
		t.Errorf("expected 10 retained checkpoints, got %d", n)
	}
}

func TestBacktestRun_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	trades := []model.TradeRecord{
		{Side: model.SideLong, EntryTime: 1, EntryPrice: 100, ExitTime: 2, ExitPrice: 103, PnL: 3, PnLPct: 3, ExitReason: model.ExitTarget},
		{Side: model.SideShort, EntryTime: 3, EntryPrice: 103, ExitTime: 4, ExitPrice: 105, PnL: -2, PnLPct: -1.94, ExitReason: model.ExitTrendFlip},
	}
	run := BacktestRun{
		Symbol: "ETHUSD", Resolution: "5m", Policy: backtest.PolicyStopTarget,
		Period: 10, Multiplier: 3, StopPct: 12, TargetPct: 3,
		Summary: backtest.Summarize(backtest.PolicyStopTarget, trades, backtest.DefaultCapital),
	}
	id, err := s.SaveBacktestRun(ctx, run, trades)
	if err != nil {
		t.Fatal(err)
	}
	if len(id) != 36 {
		t.Errorf("expected uuid, got %q", id)
	}

	runs, err := s.ListBacktestRuns(ctx, 5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs %+v (%v)", runs, err)
	}
	if runs[0].ID != id || runs[0].Summary.Trades != 2 || runs[0].StopPct != 12 {
		t.Errorf("run %+v", runs[0])
	}

	back, err := s.LoadBacktestTrades(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || back[0] != trades[0] || back[1] != trades[1] {
		t.Errorf("trades %+v", back)
	}
}

type stubSource struct {
	candles []model.Candle
	err     error
}

func (s stubSource) FetchCandles(ctx context.Context, symbol, resolution string, start, end int64) ([]model.Candle, error) {
	return s.candles, s.err
}

func TestCachedSource(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	live := []model.Candle{{Time: 300, Close: 1}, {Time: 600, Close: 2}}

	got, err := NewCachedSource(stubSource{candles: live}, s, false).FetchCandles(ctx, "ETHUSD", "5m", 0, 1000)
	if err != nil || len(got) != 2 {
		t.Fatalf("write-through: %v %v", got, err)
	}

	down := stubSource{err: errors.New("timeout")}
	if _, err := NewCachedSource(down, s, false).FetchCandles(ctx, "ETHUSD", "5m", 0, 1000); err == nil {
		t.Error("without fallback the source error must surface")
	}
	cached, err := NewCachedSource(down, s, true).FetchCandles(ctx, "ETHUSD", "5m", 0, 1000)
	if err != nil || len(cached) != 2 {
		t.Errorf("fallback: %v %v", cached, err)
	}
}
