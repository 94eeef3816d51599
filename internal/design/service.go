package design

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"reverseDesignAi/internal/audit"
	"reverseDesignAi/internal/uploads"
)

// Archiver stores reference images and returns their keys.
type Archiver interface {
	Archive(ctx context.Context, sessionID string, images []uploads.Image) []string
}

// Recorder receives one audit entry per operation.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry) (audit.Entry, error)
}

// Service runs the design operations and records their side effects:
// reference images are archived and every call is audited.
type Service struct {
	Analyzer StyleAnalyzer
	Splitter ThemeSplitter
	Renderer SVGRenderer
	Pipeline Pipeline
	Archiver Archiver
	Audit    Recorder
	Logger   *zap.Logger
}

// NewService wires the operations around one client-backed set of components.
func NewService(analyzer StyleAnalyzer, splitter ThemeSplitter, renderer SVGRenderer, concurrency int, archiver Archiver, recorder Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Analyzer: analyzer,
		Splitter: splitter,
		Renderer: renderer,
		Pipeline: Pipeline{Renderer: renderer, Concurrency: concurrency, Logger: logger},
		Archiver: archiver,
		Audit:    recorder,
		Logger:   logger,
	}
}

// Analyze derives a style prompt for images on behalf of sessionID (may be empty).
func (s *Service) Analyze(ctx context.Context, sessionID string, images []uploads.Image) (StyleAnalysis, error) {
	var keys []string
	if s.Archiver != nil {
		keys = s.Archiver.Archive(ctx, sessionID, images)
	}
	analysis, err := s.Analyzer.Analyze(ctx, images)
	s.record(ctx, audit.Entry{
		Operation:  audit.OpAnalyze,
		SessionID:  sessionID,
		ImageCount: len(images),
		Model:      analysis.Model,
		MediaKeys:  keys,
	}, err)
	return analysis, err
}

// Split splits text into themed segments.
func (s *Service) Split(ctx context.Context, sessionID, text string) (ThemeSegments, error) {
	segments, err := s.Splitter.Split(ctx, text)
	s.record(ctx, audit.Entry{Operation: audit.OpSplit, SessionID: sessionID, Model: segments.Model}, err)
	return segments, err
}

// Render produces one SVG for prompt.
func (s *Service) Render(ctx context.Context, sessionID, prompt string) (GeneratedImage, error) {
	img, err := s.Renderer.Render(ctx, prompt)
	s.record(ctx, audit.Entry{Operation: audit.OpGenerate, SessionID: sessionID, Model: img.Model}, err)
	return img, err
}

// Generate renders every segment in style.
func (s *Service) Generate(ctx context.Context, sessionID string, style StyleAnalysis, segments []Segment) ([]GeneratedImage, error) {
	images, err := s.Pipeline.Generate(ctx, style, segments)
	entry := audit.Entry{Operation: audit.OpPipeline, SessionID: sessionID}
	if len(images) > 0 {
		entry.Model = images[0].Model
	}
	s.record(ctx, entry, err)
	return images, err
}

func (s *Service) record(ctx context.Context, entry audit.Entry, opErr error) {
	entry.Success = opErr == nil
	if opErr != nil {
		entry.Error = opErr.Error()
		var parseErr *ParseError
		if errors.As(opErr, &parseErr) {
			s.Logger.Warn("unparsable model response",
				zap.String("operation", entry.Operation),
				zap.String("raw", parseErr.Raw),
				zap.Error(parseErr.Err))
		}
	}
	if s.Audit == nil {
		return
	}
	// Audit writes must outlive a cancelled request.
	if _, err := s.Audit.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.Logger.Warn("audit record failed", zap.String("operation", entry.Operation), zap.Error(err))
	}
}
