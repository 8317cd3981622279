package tasks

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Message is one delivered task.
type Message struct {
	Queue   string
	Payload string

	ack func() error
}

// Ack confirms the message was handled. Brokers without acknowledgements
// ignore it.
func (m Message) Ack() error {
	if m.ack == nil {
		return nil
	}
	return m.ack()
}

// Broker moves task payloads between the API and the workers.
type Broker interface {
	Publish(ctx context.Context, queue, payload string) error
	// Consume delivers messages from queues until ctx is cancelled, then
	// closes the channel.
	Consume(ctx context.Context, queues ...string) (<-chan Message, error)
	Close() error
}

// RedisBroker uses a redis list per queue (LPUSH / BRPOP).
type RedisBroker struct {
	RDB *redis.Client
	// PollTimeout bounds each BRPOP so cancellation is noticed.
	PollTimeout time.Duration
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{RDB: rdb, PollTimeout: 5 * time.Second}
}

func (b *RedisBroker) Publish(ctx context.Context, queue, payload string) error {
	return b.RDB.LPush(ctx, queue, payload).Err()
}

func (b *RedisBroker) Consume(ctx context.Context, queues ...string) (<-chan Message, error) {
	if len(queues) == 0 {
		return nil, errors.New("no queues to consume")
	}
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				return
			}
			// BRPop blocks until a task is available on any of the listed queues.
			result, err := b.RDB.BRPop(ctx, b.PollTimeout, queues...).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[QUEUE] Error popping from queue: %v", err)
				time.Sleep(time.Second)
				continue
			}

			// result[0] is the queue name, result[1] is the payload
			select {
			case out <- Message{Queue: result[0], Payload: result[1]}:
			case <-ctx.Done():
				// Put it back for the next worker.
				b.RDB.RPush(context.Background(), result[0], result[1])
				return
			}
		}
	}()
	return out, nil
}

// Close is a no-op; the redis client is owned by the caller.
func (b *RedisBroker) Close() error { return nil }

// MemoryBroker keeps queues in process. It serves tests and single-process
// runs where API and worker share one binary.
type MemoryBroker struct {
	mu     sync.Mutex
	queues map[string]chan string
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{queues: make(map[string]chan string)}
}

func (b *MemoryBroker) queue(name string) chan string {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		q = make(chan string, 128)
		b.queues[name] = q
	}
	return q
}

func (b *MemoryBroker) Publish(ctx context.Context, queue, payload string) error {
	select {
	case b.queue(queue) <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of undelivered messages on queue.
func (b *MemoryBroker) Pending(queue string) int {
	return len(b.queue(queue))
}

func (b *MemoryBroker) Consume(ctx context.Context, queues ...string) (<-chan Message, error) {
	if len(queues) == 0 {
		return nil, errors.New("no queues to consume")
	}
	out := make(chan Message)
	var wg sync.WaitGroup
	for _, name := range queues {
		q := b.queue(name)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case payload := <-q:
					select {
					case out <- Message{Queue: name, Payload: payload}:
					case <-ctx.Done():
						q <- payload
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

func (b *MemoryBroker) Close() error { return nil }
