package design

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"reverseDesignAi/internal/prompts"
)

// DefaultConcurrency bounds parallel renders when Pipeline.Concurrency is unset.
const DefaultConcurrency = 3

// Renderer produces one image from a generation prompt.
type Renderer interface {
	Render(ctx context.Context, prompt string) (GeneratedImage, error)
}

// Pipeline renders one image per segment in the derived style.
type Pipeline struct {
	Renderer    Renderer
	Concurrency int
	Logger      *zap.Logger
}

// Generate renders every segment with bounded concurrency. Results keep the
// segment order and the first failure cancels the rest. With no segments the
// style prompt is rendered once on its own.
func (p Pipeline) Generate(ctx context.Context, style StyleAnalysis, segments []Segment) ([]GeneratedImage, error) {
	if strings.TrimSpace(style.Prompt) == "" {
		return nil, ErrMissingPrompt
	}
	if len(segments) == 0 {
		segments = []Segment{{}}
	}
	limit := p.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([]GeneratedImage, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, seg := range segments {
		g.Go(func() error {
			img, err := p.Renderer.Render(gctx, prompts.Compose(style.Prompt, seg.Theme, seg.Content))
			if err != nil {
				logger.Debug("segment render failed", zap.Int("segment", i), zap.String("theme", seg.Theme), zap.Error(err))
				return fmt.Errorf("segment %d: %w", i, err)
			}
			img.Theme = seg.Theme
			results[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
