package tasks

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/go-redis/redis/v8"
)

// StatusBus fans status events out to live subscribers.
type StatusBus interface {
	PublishStatus(ctx context.Context, event StatusEvent) error
	// SubscribeStatus returns events for videoID until the returned cancel
	// function is called or ctx ends.
	SubscribeStatus(ctx context.Context, videoID string) (<-chan StatusEvent, func(), error)
}

// RedisStatusBus uses redis pub/sub, one channel per video.
type RedisStatusBus struct {
	RDB *redis.Client
}

func NewRedisStatusBus(rdb *redis.Client) *RedisStatusBus {
	return &RedisStatusBus{RDB: rdb}
}

func (b *RedisStatusBus) PublishStatus(ctx context.Context, event StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.RDB.Publish(ctx, StatusChannel(event.VideoID), payload).Err()
}

func (b *RedisStatusBus) SubscribeStatus(ctx context.Context, videoID string) (<-chan StatusEvent, func(), error) {
	pubsub := b.RDB.Subscribe(ctx, StatusChannel(videoID))
	// Wait for the subscription to be confirmed so no event is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan StatusEvent, 8)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event StatusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("[STATUS] Dropping malformed event on %s: %v", msg.Channel, err)
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() { once.Do(func() { pubsub.Close() }) }
	return out, cancel, nil
}

// MemoryStatusBus delivers events within the process.
type MemoryStatusBus struct {
	mu   sync.Mutex
	subs map[string]map[chan StatusEvent]struct{}
}

func NewMemoryStatusBus() *MemoryStatusBus {
	return &MemoryStatusBus{subs: make(map[string]map[chan StatusEvent]struct{})}
}

func (b *MemoryStatusBus) PublishStatus(ctx context.Context, event StatusEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[event.VideoID] {
		select {
		case ch <- event:
		default:
			// slow subscriber
		}
	}
	return nil
}

func (b *MemoryStatusBus) SubscribeStatus(ctx context.Context, videoID string) (<-chan StatusEvent, func(), error) {
	ch := make(chan StatusEvent, 8)
	b.mu.Lock()
	if b.subs[videoID] == nil {
		b.subs[videoID] = make(map[chan StatusEvent]struct{})
	}
	b.subs[videoID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[videoID], ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
