package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type VideoSlide struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	VideoID          string    `gorm:"size:36;not null;index" json:"video_id"`
	SlideNumber      int       `gorm:"not null" json:"slide_number"`
	Title            string    `gorm:"size:255" json:"title"`
	Narration        string    `gorm:"type:text" json:"narration"`
	ImagePrompt      string    `gorm:"type:text" json:"image_prompt"`
	KeyPoints        string    `gorm:"type:text" json:"-"`
	DurationSeconds  float64   `json:"duration_seconds"`
	HasAudio         bool      `json:"has_audio"`
	PlaceholderImage bool      `json:"placeholder_image"`
	CreatedAt        time.Time `json:"created_at"`

	// KeyPointList is KeyPoints split into lines (computed field, not persisted)
	KeyPointList []string `gorm:"-" json:"key_points"`
}

func (VideoSlide) TableName() string {
	return "video_slides"
}

// SetKeyPoints stores points as newline-joined text.
func (s *VideoSlide) SetKeyPoints(points []string) {
	s.KeyPointList = points
	s.KeyPoints = strings.Join(points, "\n")
}

// Points returns the stored key points.
func (s *VideoSlide) Points() []string {
	if s.KeyPoints == "" {
		return nil
	}
	return strings.Split(s.KeyPoints, "\n")
}

func (s *VideoSlide) AfterFind(tx *gorm.DB) error {
	s.KeyPointList = s.Points()
	return nil
}
