// cmd/fetch downloads historical candles from Delta Exchange into the SQLite
// candle store and optionally exports them as CSV or JSON for the backtest.
//
// Usage:
//
//	go run ./cmd/fetch --symbol=ETHUSD --tf=5m --days=30 --db=data/supertrend.db --csv=data/ethusd_5m.csv
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"supertrend-bot/internal/backtest"
	"supertrend-bot/internal/markethours"
	"supertrend-bot/internal/metrics"
	sqlitestore "supertrend-bot/internal/store/sqlite"
	"supertrend-bot/pkg/delta"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	symbol := flag.String("symbol", "ETHUSD", "Product symbol")
	tf := flag.String("tf", "5m", "Candle resolution")
	days := flag.Int("days", 2, "History to fetch, in days")
	dbPath := flag.String("db", "data/supertrend.db", "SQLite database to upsert into (empty to skip)")
	incremental := flag.Bool("incremental", false, "Start from the newest stored candle instead of --days")
	csvPath := flag.String("csv", "", "Also write the candles to this CSV file")
	jsonPath := flag.String("json", "", "Also write the candles to this JSON file")
	flag.Parse()

	if _, err := markethours.TimeframeSeconds(*tf); err != nil {
		log.Fatalf("[fetch] %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	prom := metrics.NewMetrics(nil)
	client := delta.New(delta.Config{
		BaseURL: os.Getenv("DELTA_BASE_URL"),
		OnRequest: func(method, path string, status int, took time.Duration) {
			prom.HTTPRequestDur.WithLabelValues(method, path, strconv.Itoa(status)).Observe(took.Seconds())
		},
	})

	var store *sqlitestore.Store
	if *dbPath != "" {
		var err error
		store, err = sqlitestore.Open(sqlitestore.Config{DBPath: *dbPath})
		if err != nil {
			log.Fatalf("[fetch] sqlite open: %v", err)
		}
		defer store.Close()
	}

	end := time.Now().Unix()
	start := end - int64(*days)*86400
	if *incremental && store != nil {
		last, err := store.LastCandleTime(ctx, *symbol, *tf)
		if err != nil {
			log.Fatalf("[fetch] last candle: %v", err)
		}
		if last > 0 {
			start = last
		}
	}

	began := time.Now()
	candles, err := client.FetchCandlesBatched(ctx, *symbol, *tf, start, end)
	if err != nil {
		log.Fatalf("[fetch] %v", err)
	}
	log.Printf("[fetch] %d candles for %s %s in %v", len(candles), *symbol, *tf, time.Since(began).Round(time.Millisecond))
	if len(candles) == 0 {
		return
	}

	if store != nil {
		if err := store.SaveCandles(ctx, *symbol, *tf, candles); err != nil {
			log.Fatalf("[fetch] save: %v", err)
		}
		log.Printf("[fetch] upserted into %s", *dbPath)
	}
	if *csvPath != "" {
		export(*csvPath, func(w io.Writer) error { return backtest.WriteCandlesCSV(w, candles) })
	}
	if *jsonPath != "" {
		export(*jsonPath, func(w io.Writer) error { return backtest.WriteJSON(w, candles) })
	}
}

func export(path string, write func(io.Writer) error) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("[fetch] create %s: %v", path, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		log.Fatalf("[fetch] write %s: %v", path, err)
	}
	log.Printf("[fetch] wrote %s", path)
}
