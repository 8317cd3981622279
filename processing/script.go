package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
)

// videoSystemPrompt frames the text model as a lesson script writer.
const videoSystemPrompt = `You are an educational video script writer for biology lessons.
Create engaging, grade-appropriate content for short video lessons.
Each slide should have clear narration that takes 15-20 seconds to read aloud.
Image prompts should describe educational, clear visuals appropriate for students.
Return ONLY valid JSON, no markdown.`

const (
	scriptTemperature = 0.7
	scriptTopP        = 0.9
	scriptMaxTokens   = 2000
)

var errNoTextGenerator = errors.New("text generator not configured")

// ScriptResult is the outcome of script synthesis. Script is always usable;
// Source tells whether it came from the model or the offline fallback and Err
// holds the absorbed cause of a fallback.
type ScriptResult struct {
	Script VideoScript
	Source Source
	Err    error
}

// ScriptSynthesizer turns a generation request into a slide script.
type ScriptSynthesizer struct {
	text TextGenerator
}

// NewScriptSynthesizer creates a synthesizer. A nil generator means every
// request is served by the fallback script.
func NewScriptSynthesizer(text TextGenerator) *ScriptSynthesizer {
	return &ScriptSynthesizer{text: text}
}

// GenerateScript never fails: any error from the model, its output or the
// validation step yields FallbackScript(req).
func (s *ScriptSynthesizer) GenerateScript(ctx context.Context, req GenerationRequest) ScriptResult {
	script, err := s.generate(ctx, req)
	if err != nil {
		log.Printf("[SCRIPT] Using fallback script for %q: %v", req.Topic, err)
		return ScriptResult{Script: FallbackScript(req), Source: SourceFallback, Err: err}
	}
	return ScriptResult{Script: script, Source: SourceGenerated}
}

func (s *ScriptSynthesizer) generate(ctx context.Context, req GenerationRequest) (VideoScript, error) {
	if s.text == nil {
		return VideoScript{}, errNoTextGenerator
	}

	raw, err := s.text.GenerateJSON(ctx, TextRequest{
		SystemPrompt: videoSystemPrompt,
		Prompt:       BuildScriptPrompt(req),
		SchemaName:   "video_script",
		Schema:       videoScriptSchema,
		Temperature:  scriptTemperature,
		TopP:         scriptTopP,
		MaxTokens:    scriptMaxTokens,
	})
	if err != nil {
		return VideoScript{}, fmt.Errorf("text generation: %w", err)
	}

	script, err := ParseVideoScript(raw)
	if err != nil {
		return VideoScript{}, err
	}
	if err := ValidateVideoScript(script, req.SlideCount); err != nil {
		return VideoScript{}, err
	}
	return script, nil
}

// BuildScriptPrompt builds the instruction sent to the text model.
func BuildScriptPrompt(req GenerationRequest) string {
	return fmt.Sprintf(`Create a %d-slide video lesson script.

Topic: %s
Grade Band: %s
Region: %s

Required JSON Schema:
%s

Slide structure guidelines:
- Slide 1: Hook/Introduction - Start with an interesting fact or question to grab attention
- Slides 2-%d: Core Content - Explain main concepts clearly with examples from %s
- Slide %d: Summary - Recap key takeaways and encourage further exploration

Requirements:
- Number the slides 1 to %d in the "slideNumber" field
- Keep narration natural and conversational, like a friendly teacher
- Each slide's narration should be 2-3 sentences (~15-20 seconds when spoken)
- Image prompts should describe educational diagrams, illustrations, or photos
- Include local examples relevant to %s when possible
- Content must be appropriate for grades %s

Return ONLY valid JSON matching the schema.`,
		req.SlideCount, req.Topic, req.GradeBand, req.Region,
		schemaText(videoScriptSchema),
		req.SlideCount-1, req.Region, req.SlideCount, req.SlideCount,
		req.Region, req.GradeBand)
}

// ParseVideoScript decodes model output. Markdown code fences around the JSON
// are tolerated.
func ParseVideoScript(raw string) (VideoScript, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return VideoScript{}, errors.New("empty script response")
	}

	var script VideoScript
	if err := json.Unmarshal([]byte(raw), &script); err != nil {
		return VideoScript{}, fmt.Errorf("failed to parse script JSON: %w", err)
	}
	return script, nil
}

// ValidateVideoScript checks a script field by field against the expected shape.
func ValidateVideoScript(script VideoScript, slideCount int) error {
	if strings.TrimSpace(script.Title) == "" {
		return errors.New("script has no title")
	}
	if len(script.Slides) != slideCount {
		return fmt.Errorf("script has %d slides, want %d", len(script.Slides), slideCount)
	}
	for i, slide := range script.Slides {
		if slide.Index != i+1 {
			return fmt.Errorf("slide at position %d has index %d", i+1, slide.Index)
		}
		if strings.TrimSpace(slide.Title) == "" {
			return fmt.Errorf("slide %d has no title", slide.Index)
		}
		if strings.TrimSpace(slide.Narration) == "" {
			return fmt.Errorf("slide %d has no narration", slide.Index)
		}
		if strings.TrimSpace(slide.ImagePrompt) == "" {
			return fmt.Errorf("slide %d has no image prompt", slide.Index)
		}
	}
	return nil
}
