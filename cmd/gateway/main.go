// cmd/gateway fans the trader's Redis channels out to WebSocket clients and
// serves the latest state over REST.
//
// Usage:
//
//	REDIS_ADDR=localhost:6379 GATEWAY_ADDR=:8080 go run ./cmd/gateway
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"supertrend-bot/internal/gateway"
	"supertrend-bot/internal/metrics"
	redisstore "supertrend-bot/internal/store/redis"
)

var processStart = time.Now()

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[gateway] starting...")

	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	redisPassword := getEnv("REDIS_PASSWORD", "")
	listenAddr := getEnv("GATEWAY_ADDR", ":8080")
	metricsAddr := getEnv("GATEWAY_METRICS_ADDR", ":9091")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, err := redisstore.New(redisstore.Config{Addr: redisAddr, Password: redisPassword})
	if err != nil {
		log.Fatalf("[gateway] redis connection failed: %v", err)
	}
	defer pub.Close()
	rdb := pub.Client()

	prom := metrics.NewMetrics(nil)
	health := metrics.NewHealthStatus()
	health.StartLivenessChecker(ctx, rdb, nil, 10*time.Second)
	metricsSrv := metrics.NewServer(metricsAddr, health)
	metricsSrv.Start()

	hub := gateway.NewHub(prom)
	go gateway.RunPubSub(ctx, rdb, hub)

	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, hub, pub, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}, processStart)

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[gateway] listening on %s", listenAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[gateway] server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[gateway] shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	log.Printf("[gateway] stopped (%d clients were connected)", hub.ClientCount())
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
