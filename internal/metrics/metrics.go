package metrics

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading loop.
type Metrics struct {
	// Reconciler
	CyclesTotal       *prometheus.CounterVec // labels: outcome=hold|forced_exit|open_long|open_short|failed
	ErrorsTotal       *prometheus.CounterVec // labels: kind
	OrdersTotal       *prometheus.CounterVec // labels: side, type, result
	SignalsTotal      *prometheus.CounterVec // labels: signal
	ConsecutiveErrors prometheus.Gauge
	PositionSide      prometheus.Gauge // -1=short, 0=flat, 1=long
	PositionSize      prometheus.Gauge
	CycleDur          prometheus.Histogram
	VerifyAttempts    prometheus.Histogram
	BreakerTripped    prometheus.Gauge

	// Exchange client
	HTTPRequestDur *prometheus.HistogramVec // labels: method, path, status

	// Stores
	RedisPublishDur          prometheus.Histogram
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
	SQLiteCommitDur          prometheus.Histogram

	// Gateway
	WSClients       prometheus.Gauge
	WSMessagesTotal prometheus.Counter
}

// NewMetrics creates every metric and registers it with reg. A nil reg uses
// the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "supertrend_cycles_total",
			Help: "Reconciler cycles by outcome",
		}, []string{"outcome"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "supertrend_errors_total",
			Help: "Reconciler errors by kind",
		}, []string{"kind"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "supertrend_orders_total",
			Help: "Orders submitted by side, type and result",
		}, []string{"side", "type", "result"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "supertrend_signals_total",
			Help: "Signals evaluated by type",
		}, []string{"signal"}),
		ConsecutiveErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "supertrend_consecutive_errors",
			Help: "Current consecutive failed cycles",
		}),
		PositionSide: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "supertrend_position_side",
			Help: "Remote position side (-1=short, 0=flat, 1=long)",
		}),
		PositionSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "supertrend_position_size",
			Help: "Remote position size in contracts",
		}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "supertrend_cycle_duration_seconds",
			Help:    "Wall time of one reconciler cycle",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		VerifyAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "supertrend_verify_attempts",
			Help:    "Position polls needed to confirm a close",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),
		BreakerTripped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "supertrend_breaker_tripped",
			Help: "1 once the consecutive-error ceiling halted the loop",
		}),

		HTTPRequestDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "supertrend_exchange_request_duration_seconds",
			Help:    "Exchange REST request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),

		RedisPublishDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "supertrend_redis_publish_duration_seconds",
			Help:    "Redis publish latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "supertrend_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "supertrend_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "supertrend_sqlite_commit_duration_seconds",
			Help:    "SQLite write latency",
			Buckets: prometheus.DefBuckets,
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "supertrend_ws_clients",
			Help: "Connected WebSocket dashboard clients",
		}),
		WSMessagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "supertrend_ws_messages_total",
			Help: "Messages relayed to WebSocket clients",
		}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.ErrorsTotal,
		m.OrdersTotal,
		m.SignalsTotal,
		m.ConsecutiveErrors,
		m.PositionSide,
		m.PositionSize,
		m.CycleDur,
		m.VerifyAttempts,
		m.BreakerTripped,
		m.HTTPRequestDur,
		m.RedisPublishDur,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.SQLiteCommitDur,
		m.WSClients,
		m.WSMessagesTotal,
	)

	return m
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
