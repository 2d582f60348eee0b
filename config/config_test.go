package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PAPER_TRADING", "true")
	c := Load()
	if c.Symbol != "ETHUSD" || c.Timeframe != "5m" || c.OrderSize != 5 {
		t.Errorf("strategy defaults = %+v", c)
	}
	if c.STPeriod != 10 || c.STMultiplier != 3 || c.SLFallbackPct != 0.02 {
		t.Errorf("indicator defaults = %d %g %g", c.STPeriod, c.STMultiplier, c.SLFallbackPct)
	}
	if c.HistoryLookback != 48*time.Hour || c.MinCandles != 50 || c.MaxConsecutiveErrors != 5 {
		t.Errorf("loop defaults = %+v", c)
	}
	if c.MetricsAddr != ":9090" || c.GatewayAddr != ":8080" || c.APIAddr != ":8081" {
		t.Errorf("listen defaults = %q %q %q", c.MetricsAddr, c.GatewayAddr, c.APIAddr)
	}
	if _, err := c.TradeSettings(); err != nil {
		t.Errorf("default settings invalid: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PAPER_TRADING", "1")
	t.Setenv("SYMBOL", "btcusd")
	t.Setenv("TIMEFRAME", "15m")
	t.Setenv("ST_PERIOD", "12")
	t.Setenv("ST_MULTIPLIER", "2.5")
	t.Setenv("HISTORY_LOOKBACK", "6h")
	t.Setenv("MIN_CANDLES", "oops")

	c := Load()
	s, err := c.TradeSettings()
	if err != nil {
		t.Fatal(err)
	}
	if s.Symbol != "BTCUSD" || s.Timeframe != "15m" || s.Indicator.Period != 12 || s.Indicator.Multiplier != 2.5 {
		t.Errorf("settings = %+v", s)
	}
	if s.HistoryLookback != 6*time.Hour || s.MinCandles != 50 {
		t.Errorf("lookback=%s min=%d", s.HistoryLookback, s.MinCandles)
	}
}

func TestTradeSettings_Invalid(t *testing.T) {
	t.Setenv("PAPER_TRADING", "true")
	t.Setenv("TIMEFRAME", "7m")
	if _, err := Load().TradeSettings(); err == nil {
		t.Error("expected invalid timeframe error")
	}
}
