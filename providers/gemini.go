package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/drewmudry/lessonreel-api/processing"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash-lite"

// GeminiText generates JSON text with a Gemini model.
type GeminiText struct {
	client *genai.Client
	model  string
}

// NewGeminiText connects to the Gemini API. Close releases the client.
func NewGeminiText(ctx context.Context, apiKey, model string) (*GeminiText, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiText{client: client, model: model}, nil
}

func (g *GeminiText) GenerateJSON(ctx context.Context, req processing.TextRequest) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.ResponseMIMEType = "application/json"
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}
	if req.TopP > 0 {
		model.SetTopP(float32(req.TopP))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", fmt.Errorf("empty response from gemini")
	}
	return content, nil
}

func (g *GeminiText) Close() error {
	return g.client.Close()
}
