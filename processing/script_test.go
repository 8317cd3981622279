package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func validScriptJSON(t *testing.T, n int) string {
	t.Helper()
	script := VideoScript{Title: "The Magic of Photosynthesis"}
	for i := 1; i <= n; i++ {
		script.Slides = append(script.Slides, SlideScript{
			Index:       i,
			Title:       fmt.Sprintf("Slide %d", i),
			Narration:   fmt.Sprintf("Narration for slide %d about how plants make food.", i),
			ImagePrompt: fmt.Sprintf("Leaf cross-section number %d", i),
			KeyPoints:   []string{"Sunlight", "Water"},
		})
	}
	b, err := json.Marshal(script)
	if err != nil {
		t.Fatalf("marshal script: %v", err)
	}
	return string(b)
}

func TestGenerateScriptUsesModelOutput(t *testing.T) {
	text := &fakeText{response: validScriptJSON(t, 5)}
	s := NewScriptSynthesizer(text)

	result := s.GenerateScript(context.Background(), photosynthesisRequest())

	if result.Source != SourceGenerated {
		t.Fatalf("expected generated script, got %s (err %v)", result.Source, result.Err)
	}
	if result.Script.Title != "The Magic of Photosynthesis" {
		t.Errorf("unexpected title %q", result.Script.Title)
	}
	if len(result.Script.Slides) != 5 {
		t.Fatalf("expected 5 slides, got %d", len(result.Script.Slides))
	}
	if text.calls != 1 {
		t.Errorf("expected one model call, got %d", text.calls)
	}
	if text.last.Temperature != scriptTemperature || text.last.TopP != scriptTopP || text.last.MaxTokens != scriptMaxTokens {
		t.Errorf("unexpected sampling parameters: %+v", text.last)
	}
	if !strings.Contains(text.last.Prompt, "Photosynthesis") || !strings.Contains(text.last.Prompt, "Kenya") {
		t.Errorf("prompt does not mention topic and region: %s", text.last.Prompt)
	}
}

func TestGenerateScriptAcceptsFencedJSON(t *testing.T) {
	text := &fakeText{response: "```json\n" + validScriptJSON(t, 3) + "\n```"}
	req := photosynthesisRequest()
	req.SlideCount = 3

	result := NewScriptSynthesizer(text).GenerateScript(context.Background(), req)
	if result.Source != SourceGenerated {
		t.Fatalf("expected fenced JSON to parse, got fallback: %v", result.Err)
	}
}

func TestGenerateScriptFallsBack(t *testing.T) {
	tests := []struct {
		name string
		text TextGenerator
	}{
		{"no generator", nil},
		{"model error", &fakeText{err: errors.New("rate limited")}},
		{"invalid JSON", &fakeText{response: "Sure! Here is your script: {"}},
		{"empty response", &fakeText{response: "   "}},
		{"wrong slide count", &fakeText{response: validScriptJSON(t, 4)}},
		{"missing title", &fakeText{response: `{"title":"","slides":[]}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := photosynthesisRequest()
			result := NewScriptSynthesizer(tt.text).GenerateScript(context.Background(), req)

			if result.Source != SourceFallback {
				t.Fatalf("expected fallback, got %s", result.Source)
			}
			if result.Err == nil {
				t.Error("expected the fallback cause to be recorded")
			}
			if result.Script.Title != "Introduction to Photosynthesis" {
				t.Errorf("unexpected fallback title %q", result.Script.Title)
			}
			if len(result.Script.Slides) != req.SlideCount {
				t.Errorf("expected %d slides, got %d", req.SlideCount, len(result.Script.Slides))
			}
		})
	}
}

func TestFallbackScriptShape(t *testing.T) {
	for n := MinSlideCount; n <= MaxSlideCount; n++ {
		t.Run(fmt.Sprintf("%d slides", n), func(t *testing.T) {
			req := photosynthesisRequest()
			req.SlideCount = n
			script := FallbackScript(req)

			if len(script.Slides) != n {
				t.Fatalf("expected %d slides, got %d", n, len(script.Slides))
			}
			if err := ValidateVideoScript(script, n); err != nil {
				t.Fatalf("fallback script is not valid: %v", err)
			}
			if script.Slides[0].Title != "Welcome!" {
				t.Errorf("first slide should be the hook, got %q", script.Slides[0].Title)
			}
			if script.Slides[n-1].Title != "Let's Review!" {
				t.Errorf("last slide should be the summary, got %q", script.Slides[n-1].Title)
			}
			titles := map[string]bool{}
			for _, slide := range script.Slides {
				if titles[slide.Title] {
					t.Errorf("duplicate slide title %q", slide.Title)
				}
				titles[slide.Title] = true
			}
		})
	}
}

func TestFallbackScriptMentionsRegion(t *testing.T) {
	script := FallbackScript(photosynthesisRequest())
	found := false
	for _, slide := range script.Slides {
		if strings.Contains(slide.Narration, "Kenya") {
			found = true
		}
	}
	if !found {
		t.Error("expected at least one slide to reference the region")
	}
}

func TestValidateVideoScriptRejectsBadIndexes(t *testing.T) {
	script := FallbackScript(photosynthesisRequest())
	script.Slides[2].Index = 7

	if err := ValidateVideoScript(script, 5); err == nil {
		t.Fatal("expected out-of-order slide index to be rejected")
	}
}

func TestGenerationRequestValidate(t *testing.T) {
	valid := photosynthesisRequest()
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(r *GenerationRequest)
	}{
		{"empty topic", func(r *GenerationRequest) { r.Topic = " " }},
		{"empty region", func(r *GenerationRequest) { r.Region = "" }},
		{"unknown grade band", func(r *GenerationRequest) { r.GradeBand = "1-2" }},
		{"too few slides", func(r *GenerationRequest) { r.SlideCount = 2 }},
		{"too many slides", func(r *GenerationRequest) { r.SlideCount = 9 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := photosynthesisRequest()
			tt.mutate(&req)
			if err := req.Validate(); !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}
