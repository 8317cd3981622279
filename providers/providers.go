// Package providers adapts hosted AI services to the processing ports.
package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/drewmudry/lessonreel-api/processing"
)

// Text provider selection values.
const (
	TextProviderOpenAI = "openai"
	TextProviderGemini = "gemini"
	TextProviderAuto   = "auto"
)

// Config carries the credentials and model choices for every adapter.
type Config struct {
	TextProvider  string
	OpenAIKey     string
	OpenAIBaseURL string
	TextModel     string
	ImageModel    string
	ImageSize     string
	SpeechModel   string
	GeminiKey     string
	GeminiModel   string
	Timeout       time.Duration
	MaxRetries    int
}

// Set holds the constructed ports. A nil field means the capability is not
// configured and the matching processing component falls back.
type Set struct {
	Text   processing.TextGenerator
	Images processing.ImageGenerator
	Speech processing.SpeechSynthesizer

	closers []io.Closer
}

// New builds every adapter whose credentials are present.
func New(ctx context.Context, cfg Config) (*Set, error) {
	set := &Set{}

	var openaiText, geminiText processing.TextGenerator
	if cfg.OpenAIKey != "" {
		client := newOpenAIClient(cfg)
		openaiText = NewOpenAIText(client, cfg.TextModel)
		set.Images = NewOpenAIImages(client, cfg.ImageModel, cfg.ImageSize)
		set.Speech = NewOpenAISpeech(client, cfg.SpeechModel)
	} else {
		log.Println("[PROVIDERS] OPENAI_API_KEY not set, images and narration disabled")
	}

	wantGemini := cfg.TextProvider == TextProviderGemini || cfg.TextProvider == TextProviderAuto || cfg.TextProvider == ""
	if cfg.GeminiKey != "" && wantGemini {
		g, err := NewGeminiText(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		geminiText = g
		set.closers = append(set.closers, g)
	}

	switch cfg.TextProvider {
	case TextProviderOpenAI:
		set.Text = openaiText
	case TextProviderGemini:
		set.Text = geminiText
	case TextProviderAuto, "":
		set.Text = chainText(openaiText, geminiText)
	default:
		set.Close()
		return nil, fmt.Errorf("unknown text provider %q", cfg.TextProvider)
	}

	if set.Text == nil {
		log.Println("[PROVIDERS] No text provider configured, scripts will use the fallback")
	}
	return set, nil
}

// Close releases clients that hold connections.
func (s *Set) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FallbackText tries each generator in order until one succeeds.
type FallbackText struct {
	generators []processing.TextGenerator
}

// chainText drops absent generators. It returns nil when none remain and the
// single generator when only one does.
func chainText(generators ...processing.TextGenerator) processing.TextGenerator {
	var present []processing.TextGenerator
	for _, g := range generators {
		if g != nil {
			present = append(present, g)
		}
	}
	switch len(present) {
	case 0:
		return nil
	case 1:
		return present[0]
	}
	return &FallbackText{generators: present}
}

func (f *FallbackText) GenerateJSON(ctx context.Context, req processing.TextRequest) (string, error) {
	var errs []error
	for _, g := range f.generators {
		out, err := g.GenerateJSON(ctx, req)
		if err == nil {
			return out, nil
		}
		log.Printf("[PROVIDERS] Text provider failed, trying next: %v", err)
		errs = append(errs, err)
	}
	return "", errors.Join(errs...)
}
