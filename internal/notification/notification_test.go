package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"supertrend-bot/internal/model"
)

func TestTelegram_SendsHTML(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		got  map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tn := NewTelegramNotifierAt(srv.URL, "TOKEN", "42")
	alert := TradeExit("ETHUSD", model.SideShort, 2000, 1950, "Trend flipped")
	if err := tn.Send(context.Background(), alert); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if path != "/botTOKEN/sendMessage" {
		t.Errorf("path %s", path)
	}
	if got["parse_mode"] != "HTML" || got["chat_id"] != "42" {
		t.Errorf("payload %v", got)
	}
	text, _ := got["text"].(string)
	if !strings.Contains(text, "<b>TRADE CLOSED</b>") || !strings.Contains(text, "+2.50%") {
		t.Errorf("text %q", text)
	}
}

func TestTelegram_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	if err := NewTelegramNotifierAt(srv.URL, "T", "1").Send(context.Background(), Info("x")); err == nil {
		t.Error("expected error on 400")
	}
	if err := NewTelegramNotifier("", "").Send(context.Background(), Info("x")); err != nil {
		t.Errorf("disabled notifier should be a no-op, got %v", err)
	}
}

func TestTradeEntryFormat(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 5, 0, 0, time.UTC)
	a := TradeEntry("ETHUSD", model.OrderBuy, 3012.456, 2990.1, "5m", at)
	for _, want := range []string{"🚨 <b>NEW TRADE</b>", "<b>Side:</b> BUY", "<b>Entry:</b> 3012.46", "<b>Stop Loss (ST):</b> 2990.10", "<b>Timeframe:</b> 5m", "2024-05-01 12:05:00 UTC"} {
		if !strings.Contains(a.HTML, want) {
			t.Errorf("entry html missing %q:\n%s", want, a.HTML)
		}
	}
	if a.Kind != KindTradeEntry {
		t.Errorf("kind %s", a.Kind)
	}
}

func TestExitPnLPct(t *testing.T) {
	if got := ExitPnLPct(model.SideLong, 100, 110); got != 10 {
		t.Errorf("long: %v", got)
	}
	if got := ExitPnLPct(model.SideShort, 100, 110); got != -10 {
		t.Errorf("short: %v", got)
	}
	if got := ExitPnLPct(model.SideLong, 0, 110); got != 0 {
		t.Errorf("zero entry: %v", got)
	}
}

func TestErrorEscapesAndTruncate(t *testing.T) {
	a := Error("bad <response>")
	if a.HTML != "❌ <b>ERROR</b>\nbad &lt;response&gt;" {
		t.Errorf("html %q", a.HTML)
	}
	long := strings.Repeat("x", 250)
	if got := Truncate(long, MaxErrorLen); len(got) != MaxErrorLen {
		t.Errorf("len %d", len(got))
	}
	if got := Truncate("short", MaxErrorLen); got != "short" {
		t.Errorf("got %q", got)
	}
}

type recorder struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (r *recorder) Send(ctx context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return r.err
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := &recorder{}
	bad := &recorder{err: errors.New("down")}
	err := Multi{bad, ok}.Send(context.Background(), Info("hello"))
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Errorf("err %v", err)
	}
	if len(ok.alerts) != 1 {
		t.Error("healthy sink should still receive the alert")
	}
}

func TestAsyncNeverFails(t *testing.T) {
	bad := &recorder{err: errors.New("down")}
	a := NewAsync(bad, time.Second)
	if err := a.Send(context.Background(), Info("one")); err != nil {
		t.Fatal(err)
	}
	a.Wait()
	if len(bad.alerts) != 1 {
		t.Errorf("delivered %d", len(bad.alerts))
	}
}

func TestWebhookPayload(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL).Send(context.Background(), Error("boom")); err != nil {
		t.Fatal(err)
	}
	if got["level"] != "CRITICAL" || got["kind"] != "error" || got["message"] != "boom" {
		t.Errorf("payload %v", got)
	}
	if got["text"] != "[CRITICAL] ERROR: boom" || got["content"] != got["text"] {
		t.Errorf("chat text %v / %v", got["text"], got["content"])
	}
}

func TestWebhookStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), Info("hi"))
	if err == nil || !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "nope") {
		t.Errorf("err = %v", err)
	}
	if err := NewWebhookNotifier("").Send(context.Background(), Info("hi")); err != nil {
		t.Errorf("disabled webhook: %v", err)
	}
}
