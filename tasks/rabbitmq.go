package tasks

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitBroker uses durable RabbitMQ queues with manual acknowledgement.
type RabbitBroker struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	// amqp channels are not safe for concurrent publishing
	mu       sync.Mutex
	declared map[string]bool
}

// NewRabbitBroker connects and sets the prefetch count to prefetch.
func NewRabbitBroker(amqpURL string, prefetch int) (*RabbitBroker, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("error to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("error to open channel: %w", err)
	}

	if prefetch < 1 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("error QoS: %w", err)
	}

	return &RabbitBroker{conn: conn, ch: ch, declared: make(map[string]bool)}, nil
}

func (b *RabbitBroker) declare(queue string) error {
	if b.declared[queue] {
		return nil
	}
	if _, err := b.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	b.declared[queue] = true
	return nil
}

func (b *RabbitBroker) Publish(ctx context.Context, queue, payload string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.declare(queue); err != nil {
		return err
	}
	err := b.ch.PublishWithContext(ctx,
		"",
		queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         []byte(payload),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (b *RabbitBroker) Consume(ctx context.Context, queues ...string) (<-chan Message, error) {
	b.mu.Lock()
	deliveries := make([]<-chan amqp.Delivery, 0, len(queues))
	tags := make([]string, 0, len(queues))
	for _, queue := range queues {
		if err := b.declare(queue); err != nil {
			b.cancelConsumers(tags)
			b.mu.Unlock()
			return nil, err
		}
		tag := fmt.Sprintf("lessonreel-%s-%s", queue, uuid.NewString())
		d, err := b.ch.Consume(queue, tag, false, false, false, false, nil)
		if err != nil {
			b.cancelConsumers(tags)
			b.mu.Unlock()
			return nil, fmt.Errorf("failed to consume %s: %w", queue, err)
		}
		deliveries = append(deliveries, d)
		tags = append(tags, tag)
	}
	b.mu.Unlock()

	// Consumers are cancelled before anything is requeued so the broker does
	// not hand the message straight back to this process.
	stopped := make(chan struct{})
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		b.cancelConsumers(tags)
		b.mu.Unlock()
		close(stopped)
	}()

	out := make(chan Message)
	var wg sync.WaitGroup
	for i, d := range deliveries {
		queue := queues[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			requeueRest := func() {
				<-stopped
				for delivery := range d {
					delivery.Nack(false, true)
				}
			}
			for {
				select {
				case delivery, ok := <-d:
					if !ok {
						log.Printf("[QUEUE] RabbitMQ delivery channel for %s closed", queue)
						return
					}
					msg := Message{
						Queue:   queue,
						Payload: string(delivery.Body),
						ack:     func() error { return delivery.Ack(false) },
					}
					select {
					case out <- msg:
					case <-ctx.Done():
						<-stopped
						delivery.Nack(false, true)
						requeueRest()
						return
					}
				case <-ctx.Done():
					requeueRest()
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

func (b *RabbitBroker) cancelConsumers(tags []string) {
	for _, tag := range tags {
		if err := b.ch.Cancel(tag, false); err != nil {
			log.Printf("[QUEUE] Failed to cancel consumer %s: %v", tag, err)
		}
	}
}

func (b *RabbitBroker) Close() error {
	if b.ch != nil {
		if err := b.ch.Close(); err != nil {
			return err
		}
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil {
			return err
		}
	}
	log.Println("[QUEUE] RabbitMQ closed")
	return nil
}
