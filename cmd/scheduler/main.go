package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/drewmudry/lessonreel-api/internal/platform"
	"github.com/drewmudry/lessonreel-api/models"
	"github.com/drewmudry/lessonreel-api/storage"
	"github.com/drewmudry/lessonreel-api/tasks"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// staleAfter is how long a video may sit in a working state before it is
// considered abandoned by its worker.
const staleAfter = time.Hour

type jobs struct {
	db        *gorm.DB
	store     *storage.LocalStore
	status    tasks.StatusBus
	retention time.Duration
	now       func() time.Time
}

// sweepVideos deletes stored videos older than the retention window.
func (j *jobs) sweepVideos() {
	removed, err := j.store.Sweep(j.retention)
	if err != nil {
		log.Printf("[SCHEDULER] Error sweeping videos: %v", err)
	}
	if removed > 0 {
		log.Printf("[SCHEDULER] Removed %d expired videos", removed)
	}
}

// failStaleVideos fails videos whose worker died mid-run and tells any
// listeners.
func (j *jobs) failStaleVideos(ctx context.Context) {
	ids, err := models.FailStaleVideos(j.db, j.now().Add(-staleAfter))
	if err != nil {
		log.Printf("[SCHEDULER] Error failing stale videos: %v", err)
		return
	}
	for _, id := range ids {
		event := tasks.StatusEvent{VideoID: id, Status: models.StatusFailed, Error: models.FailureMessage}
		if err := j.status.PublishStatus(ctx, event); err != nil {
			log.Printf("[SCHEDULER] Error publishing failure for video %s: %v", id, err)
		}
	}
	if len(ids) > 0 {
		log.Printf("[SCHEDULER] Failed %d stale videos", len(ids))
	}
}

func main() {
	cfg, err := platform.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Use the shared initializers
	db := platform.NewDBConnection(cfg)
	rdb := platform.NewRedisClient(cfg)
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	j := &jobs{
		db:        db,
		store:     storage.NewLocalStore(cfg.OutputDir),
		status:    tasks.NewRedisStatusBus(rdb),
		retention: cfg.VideoRetention,
		now:       time.Now,
	}

	// Run only one scheduler instance so jobs do not run twice.
	c := cron.New()
	if _, err := c.AddFunc("@hourly", j.sweepVideos); err != nil {
		log.Fatalf("Error scheduling video sweep: %v", err)
	}
	if _, err := c.AddFunc("@every 10m", func() { j.failStaleVideos(ctx) }); err != nil {
		log.Fatalf("Error scheduling stale video check: %v", err)
	}
	c.Start()

	log.Printf("Scheduler started (retention %s)", cfg.VideoRetention)
	<-ctx.Done()

	log.Println("Scheduler stopping...")
	<-c.Stop().Done()
}
