package tasks

import (
	"encoding/json"
	"fmt"
)

// ---
// QUEUE DEFINITIONS
// ---
const (
	// QueueVideoGeneration runs the whole lesson pipeline for one video.
	QueueVideoGeneration = "q_video_generation"
)

// ---
// TASK PAYLOADS
// ---

// VideoGenerationPayload is the payload for QueueVideoGeneration
type VideoGenerationPayload struct {
	VideoID string `json:"video_id"`
}

// ---
// STATUS EVENTS
// ---

// StatusEvent is published whenever a video changes status.
type StatusEvent struct {
	VideoID string `json:"video_id"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// StatusChannel is the pub/sub channel carrying StatusEvents for one video.
func StatusChannel(videoID string) string {
	return fmt.Sprintf("video_status:%s", videoID)
}

// ---
// HELPER FUNCTIONS
// ---

// Marshal creates a JSON payload for a task.
func Marshal(payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
