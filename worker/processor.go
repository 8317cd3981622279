package worker

import (
	"context"
	"log"

	"github.com/drewmudry/lessonreel-api/processing"
	"github.com/drewmudry/lessonreel-api/tasks"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// TaskHandler is a function that processes a task payload.
type TaskHandler func(ctx context.Context, payload string) error

// VideoPipeline runs one lesson generation.
type VideoPipeline interface {
	Run(ctx context.Context, req processing.GenerationRequest, runID string, progress processing.ProgressFunc) (*processing.PipelineResult, error)
}

// Processor holds dependencies and registered task handlers.
type Processor struct {
	DB       *gorm.DB
	Broker   tasks.Broker
	Status   tasks.StatusBus
	Pipeline VideoPipeline
	Store    processing.ArtifactStore

	concurrency int
	handlers    map[string]TaskHandler
}

// NewProcessor creates a new worker processor. concurrency bounds the number
// of tasks handled at once.
func NewProcessor(db *gorm.DB, broker tasks.Broker, status tasks.StatusBus, pipeline VideoPipeline, store processing.ArtifactStore, concurrency int) *Processor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Processor{
		DB:          db,
		Broker:      broker,
		Status:      status,
		Pipeline:    pipeline,
		Store:       store,
		concurrency: concurrency,
		handlers:    make(map[string]TaskHandler),
	}
}

// Register maps a queue name (task type) to a handler function.
func (p *Processor) Register(queueName string, handler TaskHandler) {
	p.handlers[queueName] = handler
	log.Printf("[WORKER] Registered handler for queue: %s", queueName)
}

// Enqueue is a helper to add a new task to a queue.
func (p *Processor) Enqueue(ctx context.Context, queueName string, payload interface{}) error {
	payloadStr, err := tasks.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Broker.Publish(ctx, queueName, payloadStr)
}

// Listen consumes the given queues until ctx is cancelled, then waits for
// in-flight tasks to finish.
func (p *Processor) Listen(ctx context.Context, queueNames ...string) error {
	msgs, err := p.Broker.Consume(ctx, queueNames...)
	if err != nil {
		return err
	}
	log.Printf("[WORKER] Listening on %d queues: %v (concurrency %d)", len(queueNames), queueNames, p.concurrency)

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for msg := range msgs {
		handler, ok := p.handlers[msg.Queue]
		if !ok {
			log.Printf("[WORKER] No handler registered for queue %s", msg.Queue)
			msg.Ack()
			continue
		}

		log.Printf("[WORKER] Received task from queue %s", msg.Queue)
		g.Go(func() error {
			// Tasks run to completion even when the listener is stopping.
			if err := handler(context.WithoutCancel(ctx), msg.Payload); err != nil {
				log.Printf("[WORKER] Error processing task from %s: %v", msg.Queue, err)
			}
			if err := msg.Ack(); err != nil {
				log.Printf("[WORKER] Failed to ack task from %s: %v", msg.Queue, err)
			}
			return nil
		})
	}
	return g.Wait()
}
