package processing

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
)

// imagePromptTemplate wraps a slide's image prompt with the visual requirements
// shared by every slide.
const imagePromptTemplate = `Create an educational illustration for a video slide about: %s

Requirements:
- Style: Clear, colorful, professional educational illustration
- Suitable for students and educational content
- No text or labels in the image
- 16:9 aspect ratio composition
- Vibrant and engaging colors`

var errNoImageGenerator = errors.New("image generator not configured")

// ImageResult is the outcome of one image generation. Data is always a valid
// image; Source tells whether it is generated or a placeholder.
type ImageResult struct {
	Data   []byte
	Source Source
	Err    error
}

// ImageSynthesizer produces one image per slide.
type ImageSynthesizer struct {
	images      ImageGenerator
	concurrency int
}

// NewImageSynthesizer creates a synthesizer. A nil generator means every slide
// gets a placeholder. concurrency bounds the in-flight external calls of one
// batch; values below 1 mean unbounded.
func NewImageSynthesizer(images ImageGenerator, concurrency int) *ImageSynthesizer {
	return &ImageSynthesizer{images: images, concurrency: concurrency}
}

// GenerateImage never fails: without a generator, on error, or on an empty
// payload it returns PlaceholderImage(position). position is 0-based.
func (s *ImageSynthesizer) GenerateImage(ctx context.Context, prompt string, position int) ImageResult {
	data, err := s.generate(ctx, prompt)
	if err != nil {
		log.Printf("[IMAGE] Using placeholder for slide %d: %v", position+1, err)
		return ImageResult{Data: PlaceholderImage(position), Source: SourcePlaceholder, Err: err}
	}
	log.Printf("[IMAGE] Generated image for slide %d", position+1)
	return ImageResult{Data: data, Source: SourceGenerated}
}

func (s *ImageSynthesizer) generate(ctx context.Context, prompt string) ([]byte, error) {
	if s.images == nil {
		return nil, errNoImageGenerator
	}
	data, err := s.images.GenerateImage(ctx, fmt.Sprintf(imagePromptTemplate, prompt))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("no image in response")
	}
	return data, nil
}

// GenerateSlideImages runs one GenerateImage per prompt concurrently and waits
// for all of them. The result is positionally aligned with prompts; the
// placeholder colour of each entry follows its 0-based position.
func (s *ImageSynthesizer) GenerateSlideImages(ctx context.Context, prompts []string) []ImageResult {
	results := make([]ImageResult, len(prompts))

	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, prompt := range prompts {
		g.Go(func() error {
			results[i] = s.GenerateImage(ctx, prompt, i)
			return nil
		})
	}
	_ = g.Wait() // tasks never return an error

	return results
}
