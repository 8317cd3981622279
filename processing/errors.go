package processing

import "errors"

var (
	ErrInvalidRequest        = errors.New("invalid generation request")
	ErrVideoGenerationFailed = errors.New("video generation failed")
	ErrMediaToolUnavailable  = errors.New("media tool not available")
	ErrNoSlides              = errors.New("no slides to assemble")
	ErrNoImages              = errors.New("no slide images to assemble")
)
