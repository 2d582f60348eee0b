package redis

import (
	"context"
	"testing"
	"time"
)

func TestKeys(t *testing.T) {
	cases := map[string]string{
		SnapshotChannel("ETHUSD"):       "st:snapshot:ETHUSD",
		SignalChannel("ETHUSD"):         "st:signal:ETHUSD",
		EventChannel("ETHUSD"):          "st:event:ETHUSD",
		LatestKey("snapshot", "ETHUSD"): "st:latest:snapshot:ETHUSD",
		SnapshotStream("ETHUSD"):        "st:stream:snapshot:ETHUSD",
		StateKey("ETHUSD"):              "st:state:ETHUSD",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestPendingBuffer_DropsOldest(t *testing.T) {
	b := newPendingBuffer(2)
	b.push(pendingPublish{channel: "a"})
	b.push(pendingPublish{channel: "b"})
	b.push(pendingPublish{channel: "c"})

	items := b.take()
	if len(items) != 2 || items[0].channel != "b" || items[1].channel != "c" {
		t.Errorf("items %+v", items)
	}
	if b.drops != 1 || b.len() != 0 {
		t.Errorf("drops=%d len=%d", b.drops, b.len())
	}
}

func TestPublisher_BuffersWhileOpen(t *testing.T) {
	p := &Publisher{
		cb:      NewCircuitBreaker(1, time.Hour),
		pending: newPendingBuffer(10),
	}
	p.cb.Execute(func() error { return errFail })

	if err := p.PublishEvent(context.Background(), "ETHUSD", map[string]string{"decision": "hold"}); err != nil {
		t.Fatalf("open breaker should buffer, got %v", err)
	}
	if p.Pending() != 1 {
		t.Errorf("pending %d", p.Pending())
	}
}
