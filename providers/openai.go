package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/drewmudry/lessonreel-api/processing"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIText generates structured JSON with chat completions.
type OpenAIText struct {
	client openai.Client
	model  string
}

func NewOpenAIText(client openai.Client, model string) *OpenAIText {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAIText{client: client, model: model}
}

// GenerateJSON calls the chat completions API with JSON schema enforcement
// and returns the raw message content.
func (o *OpenAIText) GenerateJSON(ctx context.Context, req processing.TextRequest) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    o.model,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "structured_response"
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        name,
					Description: openai.String("Structured data response"),
					Schema:      req.Schema,
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	chatCompletion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(chatCompletion.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	content := strings.TrimSpace(chatCompletion.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return content, nil
}

// OpenAIImages generates slide illustrations.
type OpenAIImages struct {
	client openai.Client
	model  string
	size   string
}

func NewOpenAIImages(client openai.Client, model, size string) *OpenAIImages {
	if model == "" {
		model = openai.ImageModelGPTImage1
	}
	if size == "" {
		size = "1536x1024"
	}
	return &OpenAIImages{client: client, model: model, size: size}
}

// GenerateImage returns the decoded image bytes of the first result.
func (o *OpenAIImages) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  o.model,
		Size:   openai.ImageGenerateParamsSize(o.size),
		N:      openai.Int(1),
	}
	// gpt-image models always return base64 and reject response_format.
	if strings.HasPrefix(o.model, "dall-e") {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}

	resp, err := o.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("OpenAI image error: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("no image in response")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return data, nil
}

// OpenAISpeech synthesizes narration as mp3.
type OpenAISpeech struct {
	client openai.Client
	model  string
}

func NewOpenAISpeech(client openai.Client, model string) *OpenAISpeech {
	if model == "" {
		model = "tts-1"
	}
	return &OpenAISpeech{client: client, model: model}
}

func (o *OpenAISpeech) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = "alloy"
	}
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          o.model,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI speech error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAI speech returned status %d", resp.StatusCode)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech payload: %w", err)
	}
	return audio, nil
}

// newOpenAIClient builds the shared client for all OpenAI adapters.
func newOpenAIClient(cfg Config) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	return openai.NewClient(opts...)
}
