package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/drewmudry/lessonreel-api/models"
	"github.com/drewmudry/lessonreel-api/processing"
	"github.com/drewmudry/lessonreel-api/tasks"
	"gorm.io/gorm"
)

var stageStatus = map[string]string{
	processing.StageScript:   models.StatusProcessingScript,
	processing.StageAssets:   models.StatusProcessingAssets,
	processing.StageAssembly: models.StatusProcessingAssembly,
}

// HandleVideoGeneration processes tasks from QueueVideoGeneration.
func (p *Processor) HandleVideoGeneration(ctx context.Context, payload string) error {
	var task tasks.VideoGenerationPayload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return err
	}

	log.Printf("[WORKER] Processing video %s", task.VideoID)
	var video models.VideoLesson
	if err := p.DB.First(&video, "id = ?", task.VideoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[WORKER] Video %s no longer exists, dropping task", task.VideoID)
			return nil
		}
		return err
	}
	if video.IsTerminal() {
		log.Printf("[WORKER] Video %s already %s, skipping", video.ID, video.Status)
		return nil
	}

	req := processing.GenerationRequest{
		Topic:      video.Topic,
		GradeBand:  video.GradeBand,
		Region:     video.Region,
		SlideCount: video.SlideCount,
	}
	progress := func(stage string) {
		if status, ok := stageStatus[stage]; ok {
			p.setStatus(ctx, &video, status)
		}
	}

	// Call business logic
	result, err := p.Pipeline.Run(ctx, req, video.ID, progress)
	if err != nil {
		p.fail(ctx, &video, err)
		return err
	}

	url, err := p.Store.Put(ctx, result.Video.FilePath, video.ID)
	if err != nil {
		p.fail(ctx, &video, err)
		return fmt.Errorf("store video %s: %w", video.ID, err)
	}

	// Save script, slides and result in a single transaction
	err = p.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_id = ?", video.ID).Delete(&models.VideoSlide{}).Error; err != nil {
			return err
		}
		for _, slide := range slideRecords(video.ID, result) {
			if err := tx.Create(&slide).Error; err != nil {
				return err
			}
		}
		return tx.Model(&video).Updates(map[string]interface{}{
			"title":              result.Script.Title,
			"status":             models.StatusComplete,
			"script_source":      string(result.ScriptSource),
			"video_url":          url,
			"file_path":          p.Store.Path(video.ID),
			"duration_seconds":   result.Video.TotalDurationSeconds,
			"narrated_slides":    result.Stats.NarratedSlides,
			"placeholder_images": result.Stats.PlaceholderImages,
			"error":              "",
		}).Error
	})
	if err != nil {
		p.fail(ctx, &video, err)
		return err
	}

	p.publish(ctx, tasks.StatusEvent{VideoID: video.ID, Status: models.StatusComplete})
	log.Printf("[WORKER] Video %s complete: %q, %.1fs", video.ID, result.Script.Title, result.Video.TotalDurationSeconds)
	return nil
}

// slideRecords converts the pipeline output into persisted slides.
func slideRecords(videoID string, result *processing.PipelineResult) []models.VideoSlide {
	records := make([]models.VideoSlide, len(result.Script.Slides))
	for i, slide := range result.Script.Slides {
		record := models.VideoSlide{
			VideoID:     videoID,
			SlideNumber: slide.Index,
			Title:       slide.Title,
			Narration:   slide.Narration,
			ImagePrompt: slide.ImagePrompt,
		}
		record.SetKeyPoints(slide.KeyPoints)
		if i < len(result.Assets) {
			record.DurationSeconds = result.Assets[i].DurationSeconds
			record.HasAudio = result.Assets[i].HasAudio()
		}
		if i < len(result.ImageSources) {
			record.PlaceholderImage = result.ImageSources[i] != processing.SourceGenerated
		}
		records[i] = record
	}
	return records
}

func (p *Processor) setStatus(ctx context.Context, video *models.VideoLesson, status string) {
	if err := video.UpdateStatus(p.DB, status); err != nil {
		log.Printf("[WORKER] Failed to update status of %s: %v", video.ID, err)
	}
	p.publish(ctx, tasks.StatusEvent{VideoID: video.ID, Status: status})
}

// fail records the failure. The cause is logged; clients only see the
// generic message.
func (p *Processor) fail(ctx context.Context, video *models.VideoLesson, cause error) {
	log.Printf("[WORKER] Video %s failed: %v", video.ID, cause)
	video.Status = models.StatusFailed
	video.Error = models.FailureMessage
	err := p.DB.Model(video).Updates(map[string]interface{}{
		"status": models.StatusFailed,
		"error":  models.FailureMessage,
	}).Error
	if err != nil {
		log.Printf("[WORKER] Failed to mark %s as failed: %v", video.ID, err)
	}
	p.publish(ctx, tasks.StatusEvent{VideoID: video.ID, Status: models.StatusFailed, Error: models.FailureMessage})
}

func (p *Processor) publish(ctx context.Context, event tasks.StatusEvent) {
	if p.Status == nil {
		return
	}
	if err := p.Status.PublishStatus(ctx, event); err != nil {
		log.Printf("[WORKER] Error publishing status for %s: %v", event.VideoID, err)
	}
}
