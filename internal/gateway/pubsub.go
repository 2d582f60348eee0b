package gateway

import (
	"context"
	"log"

	goredis "github.com/go-redis/redis/v8"

	stredis "supertrend-bot/internal/store/redis"
)

// RunPubSub pattern-subscribes to every publisher channel and broadcasts
// each message. Blocks until ctx is cancelled.
func RunPubSub(ctx context.Context, rdb *goredis.Client, hub *Hub) {
	pubsub := rdb.PSubscribe(ctx, stredis.PatternAll)
	defer pubsub.Close()

	log.Printf("[gateway] subscribed to %s", stredis.PatternAll)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			hub.Broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}
