package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"supertrend-bot/internal/execution"
	"supertrend-bot/internal/indicator"
	"supertrend-bot/internal/strategy"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Delta Exchange
	DeltaAPIKey    string
	DeltaAPISecret string
	DeltaBaseURL   string

	// Strategy
	Symbol               string
	Timeframe            string
	OrderSize            float64
	STPeriod             int
	STMultiplier         float64
	SLFallbackPct        float64
	MinCandles           int
	MaxConsecutiveErrors int
	HistoryLookback      time.Duration
	PaperTrading         bool
	PaperSlippageBps     float64

	// Notifications
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	GatewayAddr   string
	APIAddr       string
	LogLevel      string
}

// Load reads configuration from environment variables with defaults.
// Exchange credentials are required unless paper trading is enabled.
func Load() *Config {
	c := &Config{
		DeltaBaseURL: getEnv("DELTA_BASE_URL", "https://api.india.delta.exchange"),

		Symbol:               strings.ToUpper(getEnv("SYMBOL", "ETHUSD")),
		Timeframe:            getEnv("TIMEFRAME", "5m"),
		OrderSize:            getFloat("ORDER_SIZE", 5),
		STPeriod:             getInt("ST_PERIOD", indicator.DefaultPeriod),
		STMultiplier:         getFloat("ST_MULTIPLIER", indicator.DefaultMultiplier),
		SLFallbackPct:        getFloat("SL_FALLBACK_PCT", strategy.DefaultStopFallback),
		MinCandles:           getInt("MIN_CANDLES", 50),
		MaxConsecutiveErrors: getInt("MAX_CONSECUTIVE_ERRORS", 5),
		HistoryLookback:      getDuration("HISTORY_LOOKBACK", 48*time.Hour),
		PaperTrading:         getBool("PAPER_TRADING", false),
		PaperSlippageBps:     getFloat("PAPER_SLIPPAGE_BPS", 5),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/supertrend.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),
		APIAddr:       getEnv("API_ADDR", ":8081"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
	if c.PaperTrading {
		c.DeltaAPIKey = getEnv("DELTA_API_KEY", "")
		c.DeltaAPISecret = getEnv("DELTA_API_SECRET", "")
	} else {
		c.DeltaAPIKey = mustEnv("DELTA_API_KEY")
		c.DeltaAPISecret = mustEnv("DELTA_API_SECRET")
	}
	return c
}

// TradeSettings converts the environment into reconciler settings.
func (c *Config) TradeSettings() (execution.Settings, error) {
	s := execution.DefaultSettings()
	s.Symbol = c.Symbol
	s.Timeframe = c.Timeframe
	s.OrderSize = c.OrderSize
	s.StopFallback = c.SLFallbackPct
	s.MinCandles = c.MinCandles
	s.MaxConsecutiveErrors = c.MaxConsecutiveErrors
	s.HistoryLookback = c.HistoryLookback
	s.Indicator = indicator.Config{Period: c.STPeriod, Multiplier: c.STMultiplier}
	if err := s.Validate(); err != nil {
		return execution.Settings{}, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
