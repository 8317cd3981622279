package processing

import "context"

// TextRequest is a single structured-output call to a text model.
type TextRequest struct {
	SystemPrompt string
	Prompt       string
	SchemaName   string
	Schema       interface{}
	Temperature  float64
	TopP         float64
	MaxTokens    int
}

// TextGenerator returns JSON-shaped text for a prompt.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, req TextRequest) (string, error)
}

// ImageGenerator turns a prompt into encoded image bytes.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// SpeechSynthesizer turns narration text into encoded audio (mp3).
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// ArtifactStore keeps a finished file and returns a retrievable reference.
type ArtifactStore interface {
	Put(ctx context.Context, localPath, id string) (string, error)
	Path(id string) string
}
