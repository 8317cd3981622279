package processing

import (
	"context"
	"errors"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"
)

// WordsPerMinute is the assumed narration reading rate.
const WordsPerMinute = 150.0

var errNoSpeechSynthesizer = errors.New("speech synthesizer not configured")

// NarrationResult is the outcome of one narration synthesis. A nil Audio is a
// legitimate result (silent slide), in which case DurationSeconds is 0.
type NarrationResult struct {
	Audio           []byte
	DurationSeconds float64
	Err             error
}

func (r NarrationResult) Present() bool { return len(r.Audio) > 0 }

// Source reports whether the slide has generated audio.
func (r NarrationResult) Source() Source {
	if r.Present() {
		return SourceGenerated
	}
	return SourceAbsent
}

// EstimateSpeechDuration estimates the spoken length of text in seconds from its
// word count.
func EstimateSpeechDuration(text string) float64 {
	words := len(strings.Fields(text))
	return float64(words) / WordsPerMinute * 60
}

// NarrationSynthesizer produces one audio track per slide.
type NarrationSynthesizer struct {
	speech      SpeechSynthesizer
	voice       string
	concurrency int
}

// NewNarrationSynthesizer creates a synthesizer. A nil speech synthesizer means
// every slide is silent.
func NewNarrationSynthesizer(speech SpeechSynthesizer, voice string, concurrency int) *NarrationSynthesizer {
	return &NarrationSynthesizer{speech: speech, voice: voice, concurrency: concurrency}
}

// GenerateAudio returns the narration audio and its estimated duration, or
// (nil, 0) when synthesis is unavailable or fails.
func (s *NarrationSynthesizer) GenerateAudio(ctx context.Context, text string) NarrationResult {
	if s.speech == nil {
		return NarrationResult{Err: errNoSpeechSynthesizer}
	}
	if strings.TrimSpace(text) == "" {
		return NarrationResult{Err: errors.New("empty narration text")}
	}

	audio, err := s.speech.Synthesize(ctx, text, s.voice)
	if err != nil {
		log.Printf("[TTS] Generation error: %v", err)
		return NarrationResult{Err: err}
	}
	if len(audio) == 0 {
		log.Printf("[TTS] Empty audio payload")
		return NarrationResult{Err: errors.New("empty audio payload")}
	}

	return NarrationResult{Audio: audio, DurationSeconds: EstimateSpeechDuration(text)}
}

// GenerateSlideNarrations runs one GenerateAudio per text concurrently and waits
// for all of them, preserving input order.
func (s *NarrationSynthesizer) GenerateSlideNarrations(ctx context.Context, texts []string) []NarrationResult {
	results := make([]NarrationResult, len(texts))

	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, text := range texts {
		g.Go(func() error {
			results[i] = s.GenerateAudio(ctx, text)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
