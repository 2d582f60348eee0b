// cmd/trader runs the Supertrend reconciler for one symbol against Delta
// Exchange (or the paper exchange), exposes /metrics and /healthz, and
// serves the order journal and backtest runs on API_ADDR.
//
// Usage:
//
//	PAPER_TRADING=true SYMBOL=ETHUSD TIMEFRAME=5m go run ./cmd/trader
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"supertrend-bot/config"
	"supertrend-bot/internal/api"
	"supertrend-bot/internal/execution"
	"supertrend-bot/internal/logger"
	"supertrend-bot/internal/metrics"
	"supertrend-bot/internal/model"
	"supertrend-bot/internal/notification"
	redisstore "supertrend-bot/internal/store/redis"
	sqlitestore "supertrend-bot/internal/store/sqlite"
	"supertrend-bot/pkg/delta"
)

// exchange assembles the reconciler port from separate capabilities so the
// candle path can go through the cache while orders go straight out.
type exchange struct {
	model.CandleSource
	model.OrderPlacer
	model.PositionReader
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg := config.Load()
	slogger := logger.Init("trader", logger.ParseLevel(cfg.LogLevel))

	settings, err := cfg.TradeSettings()
	if err != nil {
		log.Fatalf("[trader] %v", err)
	}

	// ---- Metrics & health ----
	prom := metrics.NewMetrics(nil)
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[trader] shutdown signal received")
		cancel()
	}()

	// ---- Exchange client ----
	client := delta.New(delta.Config{
		APIKey:    cfg.DeltaAPIKey,
		APISecret: cfg.DeltaAPISecret,
		BaseURL:   cfg.DeltaBaseURL,
		OnRequest: func(method, path string, status int, took time.Duration) {
			prom.HTTPRequestDur.WithLabelValues(method, path, strconv.Itoa(status)).Observe(took.Seconds())
		},
	})

	// ---- SQLite: candle cache, order journal, checkpoints ----
	var (
		store   *sqlitestore.Store
		journal *execution.Journal
		source  model.CandleSource = client
	)
	store, err = sqlitestore.Open(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Printf("[trader] WARNING: sqlite init failed: %v (continuing without journal)", err)
	} else {
		defer store.Close()
		store.OnCommit = func(d time.Duration) { prom.SQLiteCommitDur.Observe(d.Seconds()) }
		if journal, err = execution.NewJournal(store.DB()); err != nil {
			log.Fatalf("[trader] journal init failed: %v", err)
		}
		source = sqlitestore.NewCachedSource(client, store, false)
		health.CheckSQLite(ctx, store.DB())
	}

	var ex model.Exchange
	var paper *execution.PaperExchange
	if cfg.PaperTrading {
		paper = execution.NewPaperExchange(source, cfg.PaperSlippageBps)
		ex = paper
		log.Printf("[trader] *** PAPER TRADING: no orders reach the exchange ***")
	} else {
		ex = exchange{CandleSource: source, OrderPlacer: client, PositionReader: client}
	}

	// ---- Redis publisher (optional) ----
	var pub *redisstore.Publisher
	if cfg.RedisAddr != "" {
		pub, err = redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			log.Printf("[trader] WARNING: redis init failed: %v (continuing without redis)", err)
			pub = nil
		} else {
			defer pub.Close()
			pub.OnPublish = func(d time.Duration) { prom.RedisPublishDur.Observe(d.Seconds()) }
			pub.Breaker().OnStateChange = func(from, to redisstore.State) {
				prom.RedisCircuitBreakerState.Set(float64(to))
				if to == redisstore.StateOpen {
					prom.RedisCircuitBreakerTrips.Inc()
				}
			}
			health.CheckRedis(ctx, pub.Client())
		}
	}
	var (
		rdb   *goredis.Client
		sqlDB *sql.DB
	)
	if pub != nil {
		rdb = pub.Client()
	}
	if store != nil {
		sqlDB = store.DB()
	}
	health.StartLivenessChecker(ctx, rdb, sqlDB, 10*time.Second)

	// ---- Notifications ----
	sinks := notification.Multi{notification.NewLogNotifier()}
	if tg := notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID); tg.Enabled() {
		sinks = append(sinks, tg)
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	notifier := notification.NewAsync(sinks, 10*time.Second)

	// ---- Read API: order journal and backtest runs ----
	var (
		orderLog api.OrderLog
		runStore api.RunStore
	)
	if journal != nil {
		orderLog = journal
	}
	if store != nil {
		runStore = store
	}
	apiSrv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           api.NewRouter(orderLog, runStore),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[trader] api listening on %s", cfg.APIAddr)
		if err := apiSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[trader] api server error: %v", err)
		}
	}()

	// ---- Reconciler ----
	deps := execution.Deps{
		Exchange: ex,
		Logger:   slogger,
		Notifier: notifier,
		Metrics:  prom,
		Health:   health,
	}
	if journal != nil {
		deps.Journal = journal
	}
	if pub != nil {
		deps.Publisher = pub
	}
	if store != nil || pub != nil {
		deps.Checkpoints = checkpointFunc(func(ctx context.Context, symbol string, data []byte) error {
			var errs []error
			if store != nil {
				errs = append(errs, store.SaveCheckpoint(ctx, symbol, data))
			}
			if pub != nil {
				errs = append(errs, pub.SaveState(ctx, symbol, data))
			}
			return errors.Join(errs...)
		})
	}
	rec, err := execution.NewReconciler(settings, deps)
	if err != nil {
		log.Fatalf("[trader] %v", err)
	}
	restoreCheckpoint(ctx, rec, store, pub, settings.Symbol)

	slogger.Info("trader ready",
		slog.String("symbol", settings.Symbol),
		slog.String("timeframe", settings.Timeframe),
		slog.Bool("paper", cfg.PaperTrading))

	runErr := rec.Run(ctx)

	if paper != nil {
		log.Printf("[trader] paper fills: %d", len(paper.Fills()))
	}
	notifier.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	apiSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	if errors.Is(runErr, execution.ErrBreakerTripped) {
		log.Printf("[trader] halted: %v", runErr)
		os.Exit(1)
	}
	log.Println("[trader] shutdown complete.")
}

// checkpointFunc adapts a function to execution.Checkpointer.
type checkpointFunc func(ctx context.Context, symbol string, data []byte) error

func (f checkpointFunc) SaveCheckpoint(ctx context.Context, symbol string, data []byte) error {
	return f(ctx, symbol, data)
}

// restoreCheckpoint seeds the generator from the newest stored state,
// SQLite first and Redis second. A stale or unreadable checkpoint is
// ignored; Evaluate reseeds on any gap.
func restoreCheckpoint(ctx context.Context, rec *execution.Reconciler, store *sqlitestore.Store, pub *redisstore.Publisher, symbol string) {
	var data []byte
	if store != nil {
		data, _ = store.LatestCheckpoint(ctx, symbol)
	}
	if len(data) == 0 && pub != nil {
		data, _ = pub.LoadState(ctx, symbol)
	}
	if len(data) == 0 {
		return
	}
	if err := rec.Generator().RestoreState(data); err != nil {
		log.Printf("[trader] WARNING: checkpoint ignored: %v", err)
		return
	}
	log.Printf("[trader] restored indicator checkpoint for %s", symbol)
}
