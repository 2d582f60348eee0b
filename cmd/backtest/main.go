// cmd/backtest computes Supertrend over historical candles and replays the
// series through one or more exit policies.
//
// Candles come from a CSV or JSON file, from the SQLite candle store, or
// straight from Delta Exchange when neither is given.
//
// Usage:
//
//	go run ./cmd/backtest --csv=data/ethusd_5m.csv --policy=all --out=out/
//	go run ./cmd/backtest --db=data/supertrend.db --symbol=ETHUSD --tf=5m --save
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"supertrend-bot/internal/backtest"
	"supertrend-bot/internal/indicator"
	"supertrend-bot/internal/model"
	sqlitestore "supertrend-bot/internal/store/sqlite"
	"supertrend-bot/pkg/delta"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	csvPath := flag.String("csv", "", "Read candles from a CSV file (time,open,high,low,close[,volume])")
	jsonPath := flag.String("json", "", "Read candles from a JSON file (array or {\"result\": [...]})")
	dbPath := flag.String("db", "", "Read candles from this SQLite database")
	symbol := flag.String("symbol", "ETHUSD", "Product symbol")
	tf := flag.String("tf", "5m", "Candle resolution")
	days := flag.Int("days", 2, "History to fetch from the exchange or database, in days")
	policyName := flag.String("policy", "all", "Policy: trend_flip | sl_target | inverse | all")
	period := flag.Int("period", indicator.DefaultPeriod, "ATR period")
	mult := flag.Float64("mult", indicator.DefaultMultiplier, "ATR multiplier")
	stopPct := flag.Float64("stop", 0, "Stop loss percent (0 = policy default)")
	targetPct := flag.Float64("target", 0, "Target percent (0 = policy default)")
	capital := flag.Float64("capital", backtest.DefaultCapital, "Notional capital for percentage PnL")
	outDir := flag.String("out", "", "Write snapshots, trades, excursions and summaries to this directory")
	save := flag.Bool("save", false, "Persist each run to the SQLite database given by --db")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := indicator.Config{Period: *period, Multiplier: *mult}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[backtest] %v", err)
	}

	var store *sqlitestore.Store
	if *dbPath != "" {
		var err error
		store, err = sqlitestore.Open(sqlitestore.Config{DBPath: *dbPath})
		if err != nil {
			log.Fatalf("[backtest] sqlite open: %v", err)
		}
		defer store.Close()
	} else if *save {
		log.Fatal("[backtest] --save requires --db")
	}

	candles, err := loadCandles(ctx, *csvPath, *jsonPath, store, *symbol, *tf, *days)
	if err != nil {
		log.Fatalf("[backtest] load candles: %v", err)
	}
	log.Printf("[backtest] %d candles loaded for %s %s", len(candles), *symbol, *tf)

	snaps, err := indicator.Compute(candles, cfg)
	if err != nil {
		log.Fatalf("[backtest] compute: %v", err)
	}
	fmt.Printf("Supertrend(%s) over %d candles: %d trend flips\n", cfg.Name(), len(snaps), backtest.CountFlips(snaps))

	policies, err := selectPolicies(*policyName, backtest.Params{StopPct: *stopPct, TargetPct: *targetPct})
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Fatalf("[backtest] mkdir %s: %v", *outDir, err)
		}
		writeFile(*outDir, "snapshots.csv", func(w io.Writer) error { return backtest.WriteSnapshotsCSV(w, snaps) })
		writeFile(*outDir, "snapshots.json", func(w io.Writer) error { return backtest.WriteJSON(w, snaps) })
	}

	for _, p := range policies {
		trades := p.Replay(snaps)
		summary := backtest.Summarize(p.Name(), trades, *capital)
		fmt.Println()
		backtest.WriteSummary(os.Stdout, summary)

		if *outDir != "" {
			name := p.Name()
			writeFile(*outDir, name+"_trades.csv", func(w io.Writer) error { return backtest.WriteTradesCSV(w, trades) })
			writeFile(*outDir, name+"_summary.json", func(w io.Writer) error { return backtest.WriteJSON(w, summary.Rounded(backtest.Places)) })
		}

		if *save {
			run := sqlitestore.BacktestRun{
				Symbol:     *symbol,
				Resolution: *tf,
				Policy:     p.Name(),
				Period:     cfg.Period,
				Multiplier: cfg.Multiplier,
				StopPct:    *stopPct,
				TargetPct:  *targetPct,
				Summary:    summary,
			}
			id, err := store.SaveBacktestRun(ctx, run, trades)
			if err != nil {
				log.Printf("[backtest] save %s run: %v", p.Name(), err)
				continue
			}
			log.Printf("[backtest] saved %s run %s (%d trades)", p.Name(), id, len(trades))
		}
	}

	runs := backtest.Excursions(snaps)
	stats := backtest.SummarizeExcursions(runs, *capital)
	fmt.Println()
	backtest.WriteExcursionStats(os.Stdout, stats)
	if *outDir != "" {
		writeFile(*outDir, "excursions.csv", func(w io.Writer) error { return backtest.WriteExcursionsCSV(w, runs) })
		writeFile(*outDir, "excursion_stats.json", func(w io.Writer) error { return backtest.WriteJSON(w, stats.Rounded(backtest.Places)) })
	}
}

// loadCandles picks the first configured input: CSV, JSON, SQLite, then
// the exchange.
func loadCandles(ctx context.Context, csvPath, jsonPath string, store *sqlitestore.Store, symbol, tf string, days int) ([]model.Candle, error) {
	switch {
	case csvPath != "":
		return readFile(csvPath, backtest.ReadCandlesCSV)
	case jsonPath != "":
		return readFile(jsonPath, backtest.ReadCandlesJSON)
	}

	end := time.Now().Unix()
	start := end - int64(days)*86400

	if store != nil {
		return store.LoadCandles(ctx, symbol, tf, start, end)
	}

	client := delta.New(delta.Config{
		APIKey:    os.Getenv("DELTA_API_KEY"),
		APISecret: os.Getenv("DELTA_API_SECRET"),
		BaseURL:   os.Getenv("DELTA_BASE_URL"),
	})
	return client.FetchCandlesBatched(ctx, symbol, tf, start, end)
}

func readFile(path string, parse func(io.Reader) ([]model.Candle, error)) ([]model.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}

func selectPolicies(name string, params backtest.Params) ([]backtest.Policy, error) {
	names := []string{name}
	if strings.EqualFold(name, "all") {
		names = []string{backtest.PolicyTrendFlip, backtest.PolicyStopTarget, backtest.PolicyInverse}
	}
	var out []backtest.Policy
	for _, n := range names {
		p, err := backtest.ByName(n, params)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func writeFile(dir, name string, write func(io.Writer) error) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		log.Printf("[backtest] create %s: %v", path, err)
		return
	}
	defer f.Close()
	if err := write(f); err != nil {
		log.Printf("[backtest] write %s: %v", path, err)
		return
	}
	log.Printf("[backtest] wrote %s", path)
}
