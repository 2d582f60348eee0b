package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"supertrend-bot/internal/model"
)

const (
	defaultLatestTTL  = 30 * time.Minute
	snapshotStreamLen = 2000
)

// Config configures the Redis publisher.
type Config struct {
	Addr      string // Redis address, e.g. "localhost:6379"
	Password  string
	DB        int
	MaxBuffer int // messages held while the breaker is open
}

// Publisher fans live trading state out over Redis: PUBLISH for real-time
// subscribers, SET for the latest value and a capped stream of snapshots.
// All writes pass through a circuit breaker; while it is open messages are
// buffered and replayed once a write succeeds again.
type Publisher struct {
	client  *goredis.Client
	cb      *CircuitBreaker
	pending *pendingBuffer

	// OnPublish observes the duration of each successful pipeline.
	OnPublish func(d time.Duration)
}

// New creates a Publisher and pings the server.
func New(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{
		client:  client,
		cb:      NewCircuitBreaker(5, 10*time.Second),
		pending: newPendingBuffer(cfg.MaxBuffer),
	}, nil
}

// Client returns the underlying Redis client for health checks and the
// gateway subscriber.
func (p *Publisher) Client() *goredis.Client { return p.client }

// Breaker exposes the circuit breaker so callers can hook state changes.
func (p *Publisher) Breaker() *CircuitBreaker { return p.cb }

// Pending returns the number of buffered messages.
func (p *Publisher) Pending() int { return p.pending.len() }

// PublishSnapshot publishes a closed-candle snapshot, refreshes the latest
// key and appends to the snapshot stream.
func (p *Publisher) PublishSnapshot(ctx context.Context, symbol string, snap model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot: %w", err)
	}
	payload := string(data)
	return p.guarded(ctx, pendingPublish{channel: SnapshotChannel(symbol), latest: LatestKey(kindSnapshot, symbol), payload: payload},
		func(pipe goredis.Pipeliner) {
			pipe.XAdd(ctx, &goredis.XAddArgs{
				Stream: SnapshotStream(symbol),
				MaxLen: snapshotStreamLen,
				Approx: true,
				Values: map[string]interface{}{"data": payload},
			})
		})
}

// PublishSignal publishes an evaluated signal.
func (p *Publisher) PublishSignal(ctx context.Context, symbol string, ev model.SignalEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis: marshal signal: %w", err)
	}
	return p.guarded(ctx, pendingPublish{channel: SignalChannel(symbol), latest: LatestKey(kindSignal, symbol), payload: string(data)}, nil)
}

// PublishEvent publishes any JSON-encodable reconciler event.
func (p *Publisher) PublishEvent(ctx context.Context, symbol string, ev any) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}
	return p.guarded(ctx, pendingPublish{channel: EventChannel(symbol), latest: LatestKey(kindEvent, symbol), payload: string(data)}, nil)
}

// guarded runs one pipeline through the breaker. An open breaker buffers
// the message and reports success; a recovered breaker flushes the buffer
// first so subscribers see messages in order.
func (p *Publisher) guarded(ctx context.Context, msg pendingPublish, extra func(goredis.Pipeliner)) error {
	var backlog []pendingPublish
	err := p.cb.Execute(func() error {
		start := time.Now()
		pipe := p.client.Pipeline()
		backlog = p.pending.take()
		for _, old := range backlog {
			queue(ctx, pipe, old)
		}
		if extra != nil {
			extra(pipe)
		}
		queue(ctx, pipe, msg)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		if p.OnPublish != nil {
			p.OnPublish(time.Since(start))
		}
		return nil
	})
	if err == ErrCircuitOpen {
		p.pending.push(msg)
		return nil
	}
	if err != nil {
		// the pipeline failed as a whole; keep everything for the next try
		for _, old := range backlog {
			p.pending.push(old)
		}
		p.pending.push(msg)
		log.Printf("[redis] publish %s failed: %v", msg.channel, err)
		return fmt.Errorf("redis publish %s: %w", msg.channel, err)
	}
	return nil
}

func queue(ctx context.Context, pipe goredis.Pipeliner, msg pendingPublish) {
	if msg.latest != "" {
		pipe.Set(ctx, msg.latest, msg.payload, defaultLatestTTL)
	}
	pipe.Publish(ctx, msg.channel, msg.payload)
}

// Latest returns the last payload of a kind ("snapshot", "signal",
// "event"). Returns "" when nothing was published yet.
func (p *Publisher) Latest(ctx context.Context, kind, symbol string) (string, error) {
	v, err := p.client.Get(ctx, LatestKey(kind, symbol)).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis GET latest %s: %w", kind, err)
	}
	return v, nil
}

// RecentSnapshots reads up to n snapshots from the stream, oldest first.
func (p *Publisher) RecentSnapshots(ctx context.Context, symbol string, n int64) ([]model.Snapshot, error) {
	msgs, err := p.client.XRevRangeN(ctx, SnapshotStream(symbol), "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("redis XREVRANGE %s: %w", SnapshotStream(symbol), err)
	}
	out := make([]model.Snapshot, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		raw, ok := msgs[i].Values["data"].(string)
		if !ok {
			continue
		}
		var s model.Snapshot
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			log.Printf("[redis] skip bad snapshot %s: %v", msgs[i].ID, err)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// SaveState stores an opaque indicator checkpoint without expiry.
func (p *Publisher) SaveState(ctx context.Context, symbol string, state []byte) error {
	return p.cb.Execute(func() error {
		return p.client.Set(ctx, StateKey(symbol), state, 0).Err()
	})
}

// LoadState returns the checkpoint for symbol, or nil when none exists.
func (p *Publisher) LoadState(ctx context.Context, symbol string) ([]byte, error) {
	b, err := p.client.Get(ctx, StateKey(symbol)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", StateKey(symbol), err)
	}
	return b, nil
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
