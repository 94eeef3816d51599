package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/proto"
)

// VertexConfig describes how to reach Gemini models on Vertex AI.
type VertexConfig struct {
	ProjectID          string
	Location           string
	Model              string
	APIKey             string
	ServiceAccount     string
	ServiceAccountJSON string
	// AccessToken is a pre-issued OAuth2 bearer token, used when no other credential is set.
	AccessToken string
}

// VertexClient implements Client via the Vertex AI prediction service.
type VertexClient struct {
	cfg VertexConfig

	once    sync.Once
	client  *aiplatform.PredictionClient
	initErr error
}

// NewVertexClient wires a VertexClient; the connection is opened on first use.
func NewVertexClient(cfg VertexConfig) *VertexClient {
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	cfg.Location = strings.TrimSpace(cfg.Location)
	cfg.Model = normalizeModel(cfg.Model)
	if cfg.Location == "" {
		cfg.Location = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	return &VertexClient{cfg: cfg}
}

func (v *VertexClient) options() []option.ClientOption {
	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", v.cfg.Location)),
	}
	switch {
	case strings.TrimSpace(v.cfg.ServiceAccountJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(v.cfg.ServiceAccountJSON)))
	case strings.TrimSpace(v.cfg.ServiceAccount) != "":
		opts = append(opts, option.WithCredentialsFile(v.cfg.ServiceAccount))
	case strings.TrimSpace(v.cfg.APIKey) != "":
		opts = append(opts, option.WithAPIKey(v.cfg.APIKey))
	case strings.TrimSpace(v.cfg.AccessToken) != "":
		opts = append(opts, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: v.cfg.AccessToken,
			TokenType:   "Bearer",
		})))
	}
	return opts
}

func (v *VertexClient) prediction(ctx context.Context) (*aiplatform.PredictionClient, error) {
	v.once.Do(func() {
		if v.cfg.ProjectID == "" {
			v.initErr = fmt.Errorf("vertex: missing project id")
			return
		}
		v.client, v.initErr = aiplatform.NewPredictionClient(ctx, v.options()...)
		if v.initErr != nil {
			v.initErr = fmt.Errorf("vertex: prediction client: %w", v.initErr)
		}
	})
	return v.client, v.initErr
}

// Complete runs GenerateContent against the configured publisher model.
func (v *VertexClient) Complete(ctx context.Context, req Request) (Response, error) {
	client, err := v.prediction(ctx)
	if err != nil {
		return Response{}, err
	}

	model := resolveModel(ctx, req, v.cfg.Model)
	system, turns := splitSystem(req.Messages)
	payload := &aiplatformpb.GenerateContentRequest{
		Model:            v.endpoint(model),
		GenerationConfig: &aiplatformpb.GenerationConfig{},
	}
	for _, msg := range turns {
		role := RoleUser
		if strings.EqualFold(msg.Role, RoleAssistant) {
			role = "model"
		}
		content := &aiplatformpb.Content{Role: role}
		if msg.Text != "" {
			content.Parts = append(content.Parts, &aiplatformpb.Part{
				Data: &aiplatformpb.Part_Text{Text: msg.Text},
			})
		}
		for _, img := range msg.Images {
			content.Parts = append(content.Parts, &aiplatformpb.Part{
				Data: &aiplatformpb.Part_InlineData{InlineData: &aiplatformpb.Blob{
					MimeType: img.MIMEType,
					Data:     img.Data,
				}},
			})
		}
		payload.Contents = append(payload.Contents, content)
	}
	if len(payload.Contents) == 0 {
		return Response{}, fmt.Errorf("vertex: missing user or assistant messages")
	}
	if len(system) > 0 {
		payload.SystemInstruction = &aiplatformpb.Content{Parts: []*aiplatformpb.Part{{
			Data: &aiplatformpb.Part_Text{Text: strings.Join(system, "\n\n")},
		}}}
	}
	if req.Temperature != nil {
		payload.GenerationConfig.Temperature = proto.Float32(float32(*req.Temperature))
	}
	if req.TopP != nil {
		payload.GenerationConfig.TopP = proto.Float32(float32(*req.TopP))
	}

	resp, err := client.GenerateContent(ctx, payload)
	if err != nil {
		return Response{}, fmt.Errorf("vertex: generate content: %w", err)
	}
	if len(resp.GetCandidates()) == 0 {
		return Response{}, fmt.Errorf("vertex: no candidates: %w", ErrEmptyCompletion)
	}

	var texts []string
	for _, part := range resp.GetCandidates()[0].GetContent().GetParts() {
		if trimmed := strings.TrimSpace(part.GetText()); trimmed != "" {
			texts = append(texts, trimmed)
		}
	}
	if len(texts) == 0 {
		return Response{}, fmt.Errorf("vertex: %w", ErrEmptyCompletion)
	}
	return Response{Text: strings.Join(texts, "\n\n"), Model: model}, nil
}

// Close releases the gRPC connection, if one was opened.
func (v *VertexClient) Close() error {
	if v.client == nil {
		return nil
	}
	return v.client.Close()
}

func (v *VertexClient) endpoint(model string) string {
	return fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", v.cfg.ProjectID, v.cfg.Location, model)
}
