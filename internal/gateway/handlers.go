package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"supertrend-bot/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// History serves stored state for REST endpoints. *redis.Publisher
// satisfies it.
type History interface {
	Latest(ctx context.Context, kind, symbol string) (string, error)
	RecentSnapshots(ctx context.Context, symbol string, n int64) ([]model.Snapshot, error)
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// RegisterRoutes registers the WebSocket and REST endpoints. hist may be nil,
// in which case the history endpoints answer 503.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, hist History, ping func(context.Context) error, processStart time.Time) {
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		conn.EnableWriteCompression(true)
		var symbols []string
		if s := r.URL.Query().Get("symbols"); s != "" {
			symbols = strings.Split(s, ",")
		}
		hub.Register(conn, symbols, r.URL.Query().Get("last_ts"))
	})

	// Latest payload per channel as seen by this gateway.
	mux.HandleFunc("/api/latest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.Latest())
	})

	// Gap backfill: /api/missed?channel=st:snapshot:ETHUSD&from=10&to=20
	mux.HandleFunc("/api/missed", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		channel := q.Get("channel")
		from, errFrom := strconv.ParseInt(q.Get("from"), 10, 64)
		to, errTo := strconv.ParseInt(q.Get("to"), 10, 64)
		if channel == "" || errFrom != nil || errTo != nil || from > to {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "channel, from and to are required"})
			return
		}
		msgs := hub.Replay(channel, from, to)
		out := make([]json.RawMessage, len(msgs))
		for i, m := range msgs {
			out[i] = m
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"channel":     channel,
			"channel_seq": hub.ChannelSeq(channel),
			"messages":    out,
		})
	})

	// Snapshot history from the Redis stream, oldest first.
	mux.HandleFunc("/api/snapshots", func(w http.ResponseWriter, r *http.Request) {
		if hist == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "history unavailable"})
			return
		}
		symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
		if symbol == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symbol is required"})
			return
		}
		limit := int64(200)
		if l, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && l > 0 && l <= 2000 {
			limit = l
		}
		snaps, err := hist.RecentSnapshots(r.Context(), symbol, limit)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, snaps)
	})

	// Last stored payload of a kind: /api/state?symbol=ETHUSD&kind=event
	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		if hist == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "history unavailable"})
			return
		}
		symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
		kind := r.URL.Query().Get("kind")
		if kind == "" {
			kind = "event"
		}
		raw, err := hist.Latest(r.Context(), kind, symbol)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		if raw == "" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no " + kind + " for " + symbol})
			return
		}
		writeJSON(w, http.StatusOK, json.RawMessage(raw))
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		redisOK := ping == nil || ping(r.Context()) == nil
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"redis":      redisOK,
			"ws_clients": hub.ClientCount(),
			"uptime_sec": int64(time.Since(processStart).Seconds()),
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
