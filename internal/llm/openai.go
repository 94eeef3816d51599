package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIBaseURL points at OpenRouter, which speaks the OpenAI chat API.
const DefaultOpenAIBaseURL = "https://openrouter.ai/api/v1"

// DefaultOpenAIModel is a vision-capable model available through OpenRouter.
const DefaultOpenAIModel = "anthropic/claude-sonnet-4"

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	model  string
	client *openai.Client
}

// NewOpenAIClient constructs a client using the provided API key, base URL and default model.
func NewOpenAIClient(apiKey, baseURL, model string, timeout time.Duration) *OpenAIClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultOpenAIModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIClient{
		model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

// Complete sends chat messages and returns the first choice's content.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	model := resolveModel(ctx, req, c.model)
	payload := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(req.Messages),
	}
	if req.Temperature != nil {
		payload.Temperature = float32(*req.Temperature)
	}
	if req.TopP != nil {
		payload.TopP = float32(*req.TopP)
	}

	resp, err := c.client.CreateChatCompletion(ctx, payload)
	if err != nil {
		return Response{}, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("openai: no choices returned: %w", ErrEmptyCompletion)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Response{}, fmt.Errorf("openai: %w", ErrEmptyCompletion)
	}
	if resp.Model != "" {
		model = resp.Model
	}
	return Response{Text: text, Model: model}, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		if role == "" {
			role = openai.ChatMessageRoleUser
		}
		if len(msg.Images) == 0 {
			out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Text})
			continue
		}

		parts := make([]openai.ChatMessagePart, 0, len(msg.Images)+1)
		if msg.Text != "" {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: msg.Text,
			})
		}
		for _, img := range msg.Images {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL(img),
					Detail: openai.ImageURLDetailAuto,
				},
			})
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, MultiContent: parts})
	}
	return out
}

func dataURL(img Image) string {
	mime := strings.TrimSpace(img.MIMEType)
	if mime == "" {
		mime = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(img.Data))
}
