package design

import (
	"context"
	"fmt"
	"strings"

	"reverseDesignAi/internal/extract"
	"reverseDesignAi/internal/llm"
	"reverseDesignAi/internal/prompts"
)

// ThemeSplitter splits free text into themed segments with a text model.
type ThemeSplitter struct {
	Client    llm.Client
	Extractor extract.Extractor
}

// Split asks for {"texts": [...]} and accepts anything ExtractSegments recovers.
func (s ThemeSplitter) Split(ctx context.Context, text string) (ThemeSegments, error) {
	if strings.TrimSpace(text) == "" {
		return ThemeSegments{}, ErrEmptyPrompt
	}

	system, user := prompts.Split(text)
	resp, err := s.Client.Complete(llm.WithOperation(ctx, "split"), llm.Request{
		Messages:    []llm.Message{llm.System(system), llm.User(user)},
		Temperature: llm.Float(0.3),
	})
	if err != nil {
		return ThemeSegments{}, fmt.Errorf("split: %w", err)
	}

	values, err := s.Extractor.ExtractSegments(resp.Text)
	if err != nil {
		return ThemeSegments{}, &ParseError{Raw: resp.Text, Err: err}
	}
	segments, err := DecodeSegments(values)
	if err != nil {
		return ThemeSegments{}, &ParseError{Raw: resp.Text, Err: err}
	}
	return ThemeSegments{Segments: segments, Model: resp.Model}, nil
}

// DecodeSegments converts extracted array elements into segments. Elements
// must be objects; theme and content must be strings when present, and at
// least one of them must be set.
func DecodeSegments(values []any) ([]Segment, error) {
	segments := make([]Segment, 0, len(values))
	for i, value := range values {
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("segment %d: expected object, got %T", i, value)
		}
		theme, err := stringField(obj, "theme")
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		content, err := stringField(obj, "content")
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		if theme == "" && content == "" {
			return nil, fmt.Errorf("segment %d: missing theme and content", i)
		}
		segments = append(segments, Segment{Theme: theme, Content: content})
	}
	return segments, nil
}

func stringField(obj map[string]any, key string) (string, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %T", key, raw)
	}
	return s, nil
}
