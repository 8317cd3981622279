package models

import (
	"time"

	"gorm.io/gorm"
)

// Video lesson statuses, in pipeline order.
const (
	StatusPending            = "pending"
	StatusProcessingScript   = "processing_script"
	StatusProcessingAssets   = "processing_assets"
	StatusProcessingAssembly = "processing_assembly"
	StatusComplete           = "complete"
	StatusFailed             = "failed"
)

// FailureMessage is the only error text exposed for a failed generation.
const FailureMessage = "video generation failed"

type VideoLesson struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	OwnerID   uint   `gorm:"not null;index" json:"owner_id"`
	Topic     string `gorm:"size:255;not null" json:"topic"`
	GradeBand string `gorm:"size:16;not null" json:"grade_band"`
	Region    string `gorm:"size:255;not null" json:"region"`

	SlideCount int    `gorm:"not null;default:5" json:"slide_count"`
	Title      string `gorm:"size:255" json:"title"`
	Status     string `gorm:"size:32;default:'pending';index" json:"status"`

	// Results
	ScriptSource      string  `gorm:"size:16" json:"script_source,omitempty"`
	VideoURL          string  `json:"video_url,omitempty"`
	FilePath          string  `json:"-"`
	DurationSeconds   float64 `json:"duration_seconds"`
	NarratedSlides    int     `json:"narrated_slides"`
	PlaceholderImages int     `json:"placeholder_images"`
	Error             string  `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Slides []VideoSlide `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"slides,omitempty"`
}

func (VideoLesson) TableName() string {
	return "video_lessons"
}

// IsTerminal reports whether the lesson has finished processing.
func (v *VideoLesson) IsTerminal() bool {
	return v.Status == StatusComplete || v.Status == StatusFailed
}

// UpdateStatus sets only the status column.
func (v *VideoLesson) UpdateStatus(db *gorm.DB, status string) error {
	v.Status = status
	return db.Model(v).Update("status", status).Error
}

// AutoMigrate creates or updates the lesson tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&VideoLesson{}, &VideoSlide{})
}

// FailStaleVideos marks lessons stuck in a working state since before cutoff
// as failed and returns their ids.
func FailStaleVideos(db *gorm.DB, cutoff time.Time) ([]string, error) {
	var ids []string
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&VideoLesson{}).
			Where("status IN ? AND updated_at < ?", workingStatuses, cutoff).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&VideoLesson{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status": StatusFailed,
				"error":  FailureMessage,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

var workingStatuses = []string{
	StatusPending,
	StatusProcessingScript,
	StatusProcessingAssets,
	StatusProcessingAssembly,
}
