package processing

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
)

// Pipeline stages reported through ProgressFunc.
const (
	StageScript   = "script"
	StageAssets   = "assets"
	StageAssembly = "assembly"
)

// ProgressFunc is notified when the pipeline enters a stage.
type ProgressFunc func(stage string)

// VideoAssembler is the assembly step of the pipeline.
type VideoAssembler interface {
	Assemble(ctx context.Context, assets []SlideAsset, outputName string) (string, error)
}

// PipelineStats summarises how degraded a run was.
type PipelineStats struct {
	Slides            int `json:"slides"`
	GeneratedImages   int `json:"generatedImages"`
	PlaceholderImages int `json:"placeholderImages"`
	NarratedSlides    int `json:"narratedSlides"`
}

// PipelineResult is everything a successful run produced.
type PipelineResult struct {
	Video        AssembledVideo
	Script       VideoScript
	ScriptSource Source
	Assets       []SlideAsset
	ImageSources []Source
	Stats        PipelineStats
}

// Pipeline turns a generation request into an assembled video.
type Pipeline struct {
	script    *ScriptSynthesizer
	images    *ImageSynthesizer
	narration *NarrationSynthesizer
	assembler VideoAssembler
}

// NewPipeline wires the pipeline stages. The components are constructed once
// and shared by every run.
func NewPipeline(script *ScriptSynthesizer, images *ImageSynthesizer, narration *NarrationSynthesizer, assembler VideoAssembler) *Pipeline {
	return &Pipeline{
		script:    script,
		images:    images,
		narration: narration,
		assembler: assembler,
	}
}

// Run executes one pipeline run. runID must be unique per run; it names the
// output file. progress may be nil.
func (p *Pipeline) Run(ctx context.Context, req GenerationRequest, runID string, progress ProgressFunc) (*PipelineResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	notify := func(stage string) {
		if progress != nil {
			progress(stage)
		}
	}

	// 1. Script (never fails)
	notify(StageScript)
	log.Printf("[VIDEO] %s: generating script for topic %q", runID, req.Topic)
	scriptResult := p.script.GenerateScript(ctx, req)
	script := scriptResult.Script
	log.Printf("[VIDEO] %s: script %q with %d slides (%s)", runID, script.Title, len(script.Slides), scriptResult.Source)

	// 2. Images and narration, joined before assembly
	notify(StageAssets)
	var (
		images     []ImageResult
		narrations []NarrationResult
	)
	var g errgroup.Group
	g.Go(func() error {
		images = p.images.GenerateSlideImages(ctx, script.ImagePrompts())
		return nil
	})
	g.Go(func() error {
		narrations = p.narration.GenerateSlideNarrations(ctx, script.Narrations())
		return nil
	})
	_ = g.Wait()

	if len(images) != len(script.Slides) || len(narrations) != len(script.Slides) {
		// Both batches are positional by contract; a mismatch is a wiring bug.
		return nil, fmt.Errorf("asset batch size mismatch: %d slides, %d images, %d narrations",
			len(script.Slides), len(images), len(narrations))
	}

	// 3. Zip positionally
	assets, total := BuildSlideAssets(script, images, narrations)
	stats := PipelineStats{Slides: len(assets)}
	imageSources := make([]Source, len(images))
	for i, img := range images {
		imageSources[i] = img.Source
		if img.Source == SourceGenerated {
			stats.GeneratedImages++
		} else {
			stats.PlaceholderImages++
		}
		if narrations[i].Present() {
			stats.NarratedSlides++
		}
	}
	log.Printf("[VIDEO] %s: images generated %d/%d, audio clips %d/%d",
		runID, stats.GeneratedImages, stats.Slides, stats.NarratedSlides, stats.Slides)

	// 4. Assemble
	notify(StageAssembly)
	path, err := p.assembler.Assemble(ctx, assets, runID+".mp4")
	if err != nil {
		log.Printf("[VIDEO] %s: assembly failed: %v", runID, err)
		return nil, fmt.Errorf("%w: %w", ErrVideoGenerationFailed, err)
	}
	if path == "" {
		log.Printf("[VIDEO] %s: assembler returned no output", runID)
		return nil, fmt.Errorf("%w: assembler returned no output", ErrVideoGenerationFailed)
	}
	log.Printf("[VIDEO] %s: assembled %s (%.1fs)", runID, path, total)

	return &PipelineResult{
		Video:        AssembledVideo{FilePath: path, TotalDurationSeconds: total},
		Script:       script,
		ScriptSource: scriptResult.Source,
		Assets:       assets,
		ImageSources: imageSources,
		Stats:        stats,
	}, nil
}

// BuildSlideAssets zips the script with the two asset batches. A slide's
// duration is its narration estimate when audio is present and positive, and
// DefaultSlideDuration otherwise. It returns the assets and their total duration.
func BuildSlideAssets(script VideoScript, images []ImageResult, narrations []NarrationResult) ([]SlideAsset, float64) {
	assets := make([]SlideAsset, len(script.Slides))
	total := 0.0
	for i, slide := range script.Slides {
		asset := SlideAsset{SlideIndex: slide.Index, DurationSeconds: DefaultSlideDuration}
		if i < len(images) {
			asset.Image = images[i].Data
		}
		if i < len(narrations) && narrations[i].Present() {
			asset.Audio = narrations[i].Audio
			if narrations[i].DurationSeconds > 0 {
				asset.DurationSeconds = narrations[i].DurationSeconds
			}
		}
		assets[i] = asset
		total += asset.DurationSeconds
	}
	return assets, total
}
