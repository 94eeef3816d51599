package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient wraps the Gemini API through the genai SDK.
type GeminiClient struct {
	apiKey  string
	model   string
	timeout time.Duration

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewGeminiClient constructs a Gemini client for the desired model.
func NewGeminiClient(apiKey, model string, timeout time.Duration) *GeminiClient {
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GeminiClient{
		apiKey:  apiKey,
		model:   normalizeModel(model),
		timeout: timeout,
	}
}

func (c *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		if strings.TrimSpace(c.apiKey) == "" {
			c.initErr = fmt.Errorf("gemini: missing API key")
			return
		}
		c.client, c.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     c.apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: &http.Client{Timeout: c.timeout},
		})
		if c.initErr != nil {
			c.initErr = fmt.Errorf("gemini: create client: %w", c.initErr)
		}
	})
	return c.client, c.initErr
}

// Complete sends conversational content to Gemini and returns the first candidate text.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (Response, error) {
	client, err := c.sdk(ctx)
	if err != nil {
		return Response{}, err
	}

	system, turns := splitSystem(req.Messages)
	var contents []*genai.Content
	for _, msg := range turns {
		role := genai.RoleUser
		if strings.EqualFold(msg.Role, RoleAssistant) {
			role = genai.RoleModel
		}
		parts := make([]*genai.Part, 0, len(msg.Images)+1)
		if msg.Text != "" {
			parts = append(parts, genai.NewPartFromText(msg.Text))
		}
		for _, img := range msg.Images {
			parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.Role(role)))
	}
	if len(contents) == 0 {
		return Response{}, fmt.Errorf("gemini: missing user or assistant messages")
	}

	cfg := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.TopP != nil {
		cfg.TopP = genai.Ptr(float32(*req.TopP))
	}

	model := resolveModel(ctx, req, c.model)
	resp, err := client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return Response{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Response{}, fmt.Errorf("gemini: %w", ErrEmptyCompletion)
	}
	return Response{Text: text, Model: model}, nil
}
