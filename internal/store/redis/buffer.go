package redis

import "sync"

// pendingPublish is a message held back while the breaker was open.
type pendingPublish struct {
	channel string
	latest  string // latest-key to refresh, or ""
	payload string
}

// pendingBuffer keeps the newest max messages and drops the oldest.
type pendingBuffer struct {
	mu    sync.Mutex
	items []pendingPublish
	max   int
	drops int
}

func newPendingBuffer(max int) *pendingBuffer {
	if max <= 0 {
		max = 1000
	}
	return &pendingBuffer{max: max}
}

func (b *pendingBuffer) push(p pendingPublish) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) >= b.max {
		b.items = b.items[1:]
		b.drops++
	}
	b.items = append(b.items, p)
}

// take returns everything buffered and empties the buffer.
func (b *pendingBuffer) take() []pendingPublish {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	return out
}

func (b *pendingBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
