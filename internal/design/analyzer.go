package design

import (
	"context"
	"fmt"
	"strings"

	"reverseDesignAi/internal/extract"
	"reverseDesignAi/internal/llm"
	"reverseDesignAi/internal/prompts"
	"reverseDesignAi/internal/uploads"
)

// StyleAnalyzer derives a style prompt from reference images with a vision model.
type StyleAnalyzer struct {
	Client    llm.Client
	Extractor extract.Extractor
}

// Analyze sends every image in one request and reads the {"prompt": ...} object back.
func (a StyleAnalyzer) Analyze(ctx context.Context, images []uploads.Image) (StyleAnalysis, error) {
	if err := uploads.ValidateAll(images); err != nil {
		return StyleAnalysis{}, err
	}

	attachments := make([]llm.Image, 0, len(images))
	for _, img := range images {
		attachments = append(attachments, llm.Image{MIMEType: img.MIMEType, Data: img.Data})
	}
	system, user := prompts.Analyze()
	resp, err := a.Client.Complete(llm.WithOperation(ctx, "analyze"), llm.Request{
		Messages:    []llm.Message{llm.System(system), llm.User(user, attachments...)},
		Temperature: llm.Float(0.6),
		TopP:        llm.Float(0.9),
	})
	if err != nil {
		return StyleAnalysis{}, fmt.Errorf("analyze: %w", err)
	}

	fields, err := a.Extractor.ExtractObject(resp.Text)
	if err != nil {
		return StyleAnalysis{}, &ParseError{Raw: resp.Text, Err: err}
	}
	prompt, ok := fields["prompt"].(string)
	if !ok || strings.TrimSpace(prompt) == "" {
		return StyleAnalysis{}, &ParseError{Raw: resp.Text, Err: ErrMissingPrompt}
	}

	return StyleAnalysis{
		Prompt:     strings.TrimSpace(prompt),
		Fields:     fields,
		ImageCount: len(images),
		Model:      resp.Model,
	}, nil
}
