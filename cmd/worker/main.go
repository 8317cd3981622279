package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/drewmudry/lessonreel-api/internal/platform"
	"github.com/drewmudry/lessonreel-api/processing"
	"github.com/drewmudry/lessonreel-api/providers"
	"github.com/drewmudry/lessonreel-api/storage"
	"github.com/drewmudry/lessonreel-api/tasks"
	"github.com/drewmudry/lessonreel-api/worker"
)

func main() {
	cfg, err := platform.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Use the shared initializers
	db := platform.NewDBConnection(cfg)
	rdb := platform.NewRedisClient(cfg)
	defer rdb.Close()

	broker, err := platform.NewBroker(cfg, rdb)
	if err != nil {
		log.Fatalf("Failed to connect to broker: %v", err)
	}
	defer broker.Close()

	set, err := providers.New(ctx, cfg.Providers())
	if err != nil {
		log.Fatalf("Failed to initialize AI providers: %v", err)
	}
	defer set.Close()

	assembler := processing.NewAssembler(processing.ExecRunner{}, cfg.FFmpegPath, cfg.OutputDir)
	if !assembler.Available() {
		log.Printf("[WORKER] WARNING: %s not found on PATH, video assembly will fail", cfg.FFmpegPath)
	}

	pipeline := processing.NewPipeline(
		processing.NewScriptSynthesizer(set.Text),
		processing.NewImageSynthesizer(set.Images, cfg.MaxConcurrentCalls),
		processing.NewNarrationSynthesizer(set.Speech, cfg.TTSVoice, cfg.MaxConcurrentCalls),
		assembler,
	)

	// Assembled videos land in OutputDir, which is also the store root, so
	// storing is a rename-free handoff.
	store := storage.NewLocalStore(cfg.OutputDir)
	processor := worker.NewProcessor(db, broker, tasks.NewRedisStatusBus(rdb), pipeline, store, cfg.WorkerConcurrency)
	processor.Register(tasks.QueueVideoGeneration, processor.HandleVideoGeneration)

	log.Println("Worker started, waiting for queue tasks...")
	if err := processor.Listen(ctx, tasks.QueueVideoGeneration); err != nil {
		log.Fatalf("Worker stopped: %v", err)
	}
	log.Println("Worker shut down")
}
