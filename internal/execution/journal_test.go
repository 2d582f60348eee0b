package execution

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"supertrend-bot/internal/model"
	"supertrend-bot/internal/store/sqlite"
)

func TestJournal_RecordAndRecent(t *testing.T) {
	st, err := sqlite.Open(sqlite.Config{DBPath: filepath.Join(t.TempDir(), "bot.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	j, err := NewJournal(st.DB())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	orders := []struct {
		o       model.Order
		purpose string
	}{
		{model.Order{ID: "1", Symbol: "ETHUSD", Side: model.OrderBuy, Size: 5, OrderType: model.OrderTypeMarket, AvgFillPrice: 2500, CreatedAt: at}, "entry"},
		{model.Order{ID: "2", Symbol: "ETHUSD", Side: model.OrderSell, Size: 5, OrderType: model.OrderTypeStop, StopPrice: 2450, ReduceOnly: true, CreatedAt: at}, "stop_loss"},
	}
	for _, c := range orders {
		if err := j.RecordOrder(ctx, c.o, c.purpose); err != nil {
			t.Fatal(err)
		}
	}

	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries", len(got))
	}
	if got[0].Order.ID != "2" || got[0].Purpose != "stop_loss" || !got[0].Order.ReduceOnly || got[0].Order.StopPrice != 2450 {
		t.Errorf("newest = %+v", got[0])
	}
	if got[1].Order.Side != model.OrderBuy || got[1].Order.AvgFillPrice != 2500 || !got[1].Order.CreatedAt.Equal(at) {
		t.Errorf("oldest = %+v", got[1])
	}
}
