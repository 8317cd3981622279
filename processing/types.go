package processing

import (
	"fmt"
	"strings"
)

const (
	// DefaultSlideCount is used when a request does not specify one.
	DefaultSlideCount = 5
	MinSlideCount     = 3
	MaxSlideCount     = 8

	// DefaultSlideDuration is the on-screen time of a slide that has no narration.
	DefaultSlideDuration = 5.0
)

// GradeBands lists the grade bands a request may target.
var GradeBands = []string{"3-5", "6-8", "9-10", "9-12", "11-12"}

// GenerationRequest is the input to one pipeline run.
type GenerationRequest struct {
	Topic      string `json:"topic"`
	GradeBand  string `json:"gradeBand"`
	Region     string `json:"region"`
	SlideCount int    `json:"slideCount"`
}

// Validate checks the request against the accepted parameter ranges.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Region) == "" {
		return fmt.Errorf("%w: region is required", ErrInvalidRequest)
	}
	if !validGradeBand(r.GradeBand) {
		return fmt.Errorf("%w: unsupported grade band %q", ErrInvalidRequest, r.GradeBand)
	}
	if r.SlideCount < MinSlideCount || r.SlideCount > MaxSlideCount {
		return fmt.Errorf("%w: slide count must be between %d and %d, got %d",
			ErrInvalidRequest, MinSlideCount, MaxSlideCount, r.SlideCount)
	}
	return nil
}

func validGradeBand(band string) bool {
	for _, b := range GradeBands {
		if b == band {
			return true
		}
	}
	return false
}

// SlideScript is one slide of a generated script. Index is 1-based.
type SlideScript struct {
	Index       int      `json:"slideNumber" jsonschema_description:"1-based position of the slide in the video"`
	Title       string   `json:"title" jsonschema_description:"Short slide title"`
	Narration   string   `json:"narration" jsonschema_description:"What the narrator says, 2-3 sentences (about 15-20 seconds when read aloud)"`
	ImagePrompt string   `json:"imagePrompt" jsonschema_description:"Detailed prompt for an educational illustration of this slide"`
	KeyPoints   []string `json:"keyPoints" jsonschema_description:"Bullet points shown on screen"`
}

// VideoScript is the unit handed from script synthesis to asset generation.
type VideoScript struct {
	Title  string        `json:"title" jsonschema_description:"Engaging video title"`
	Slides []SlideScript `json:"slides" jsonschema_description:"Ordered slides of the video lesson"`
}

// ImagePrompts returns the per-slide image prompts in slide order.
func (s VideoScript) ImagePrompts() []string {
	prompts := make([]string, len(s.Slides))
	for i, slide := range s.Slides {
		prompts[i] = slide.ImagePrompt
	}
	return prompts
}

// Narrations returns the per-slide narration texts in slide order.
func (s VideoScript) Narrations() []string {
	texts := make([]string, len(s.Slides))
	for i, slide := range s.Slides {
		texts[i] = slide.Narration
	}
	return texts
}

// SlideAsset pairs the generated media of one slide. A nil Image or Audio means
// that generation produced nothing for the slide.
type SlideAsset struct {
	SlideIndex      int
	Image           []byte
	Audio           []byte
	DurationSeconds float64
}

func (a SlideAsset) HasImage() bool { return len(a.Image) > 0 }
func (a SlideAsset) HasAudio() bool { return len(a.Audio) > 0 }

// AssembledVideo is the terminal artifact of a pipeline run.
type AssembledVideo struct {
	FilePath             string  `json:"filePath"`
	TotalDurationSeconds float64 `json:"totalDurationSeconds"`
}

// Source records whether an output came from the external capability or from
// a local substitute.
type Source string

const (
	SourceGenerated   Source = "generated"
	SourceFallback    Source = "fallback"
	SourcePlaceholder Source = "placeholder"
	SourceAbsent      Source = "absent"
)
