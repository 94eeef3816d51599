package workspace

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"reverseDesignAi/internal/design"
	"reverseDesignAi/internal/events"
	"reverseDesignAi/internal/uploads"
)

// Designer runs the model-backed operations for a session.
type Designer interface {
	Analyze(ctx context.Context, sessionID string, images []uploads.Image) (design.StyleAnalysis, error)
	Split(ctx context.Context, sessionID, text string) (design.ThemeSegments, error)
	Generate(ctx context.Context, sessionID string, style design.StyleAnalysis, segments []design.Segment) ([]design.GeneratedImage, error)
}

// Publisher receives state change events.
type Publisher interface {
	Publish(evt events.Event)
}

// Direction moves an image one slot.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
)

// Service applies user actions to sessions.
type Service struct {
	store    *Store
	designer Designer
	events   Publisher
	logger   *zap.Logger
}

// NewService wires a session service. events and logger may be nil.
func NewService(store *Store, designer Designer, publisher Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, designer: designer, events: publisher, logger: logger}
}

// Create starts an idle session.
func (s *Service) Create() Session {
	sess := s.store.Create()
	s.publish(sess)
	return sess
}

// Get returns the session.
func (s *Service) Get(id string) (Session, error) {
	return s.store.Get(id)
}

// AddImages merges new images into the session and moves it to uploading.
func (s *Service) AddImages(id string, incoming []uploads.Image) (Session, uploads.MergeReport, error) {
	var report uploads.MergeReport
	sess, err := s.store.Update(id, func(sess *Session, now time.Time) error {
		merged, r := uploads.Merge(sess.Images, incoming)
		report = r
		if r.Added == 0 {
			if len(sess.Images) >= uploads.MaxFiles {
				return fmt.Errorf("%w: limit of %d images reached", uploads.ErrTooManyFiles, uploads.MaxFiles)
			}
			return fmt.Errorf("%w: nothing new to add", uploads.ErrNoFiles)
		}
		if err := sess.moveTo(StateUploading, now); err != nil {
			return err
		}
		sess.Images = merged
		return nil
	})
	if err != nil {
		return sess, report, err
	}
	s.publish(sess)
	return sess, report, nil
}

// ClearImages drops all images and resets the session to idle.
func (s *Service) ClearImages(id string) (Session, error) {
	sess, err := s.store.Update(id, func(sess *Session, now time.Time) error {
		if sess.State == StateIdle {
			return nil
		}
		if err := sess.moveTo(StateIdle, now); err != nil {
			return err
		}
		sess.Images = nil
		sess.Analysis = nil
		sess.Results = nil
		return nil
	})
	if err != nil {
		return sess, err
	}
	s.publish(sess)
	return sess, nil
}

// RemoveImage deletes the image at index. Removing the last image resets the session.
func (s *Service) RemoveImage(id string, index int) (Session, error) {
	sess, err := s.store.Update(id, func(sess *Session, now time.Time) error {
		if err := sess.requireIdleHands(); err != nil {
			return err
		}
		if index < 0 || index >= len(sess.Images) {
			return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		images := append(append([]uploads.Image(nil), sess.Images[:index]...), sess.Images[index+1:]...)
		target := StateUploading
		if len(images) == 0 {
			target = StateIdle
		}
		if err := sess.moveTo(target, now); err != nil {
			return err
		}
		sess.Images = images
		if target == StateIdle {
			sess.Analysis = nil
			sess.Results = nil
		}
		return nil
	})
	if err != nil {
		return sess, err
	}
	s.publish(sess)
	return sess, nil
}

// MoveImage swaps the image at index with its neighbour. Moving past either
// end is a no-op.
func (s *Service) MoveImage(id string, index int, dir Direction) (Session, error) {
	return s.store.Update(id, func(sess *Session, _ time.Time) error {
		if err := sess.requireIdleHands(); err != nil {
			return err
		}
		if index < 0 || index >= len(sess.Images) {
			return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		var target int
		switch dir {
		case Left:
			target = index - 1
		case Right:
			target = index + 1
		default:
			return fmt.Errorf("workspace: unknown direction %q", dir)
		}
		if target < 0 || target >= len(sess.Images) {
			return nil
		}
		sess.Images[index], sess.Images[target] = sess.Images[target], sess.Images[index]
		return nil
	})
}

// SetContentText stores the text to split, truncated to MaxContentRunes.
func (s *Service) SetContentText(id, text string) (Session, error) {
	return s.store.Update(id, func(sess *Session, _ time.Time) error {
		if err := sess.requireIdleHands(); err != nil {
			return err
		}
		sess.ContentText = truncateRunes(text, MaxContentRunes)
		return nil
	})
}

// Analyze derives the style prompt from the session images.
func (s *Service) Analyze(ctx context.Context, id string) (Session, error) {
	var images []uploads.Image
	sess, err := s.store.Update(id, func(sess *Session, now time.Time) error {
		if len(sess.Images) == 0 {
			return ErrNoImages
		}
		if err := sess.moveTo(StateAnalyzing, now); err != nil {
			return err
		}
		images = sess.Images
		return nil
	})
	if err != nil {
		return sess, err
	}
	s.publish(sess)

	analysis, opErr := s.designer.Analyze(ctx, id, images)
	return s.finish(id, opErr, StateAnalyzed, func(sess *Session) {
		sess.Analysis = &analysis
	})
}

// Split splits the session's content text into themed segments.
func (s *Service) Split(ctx context.Context, id string) (Session, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return Session{}, err
	}
	if sess.State == StateGenerating {
		return sess, fmt.Errorf("%w: session is %s", ErrInvalidTransition, sess.State)
	}
	if strings.TrimSpace(sess.ContentText) == "" {
		return sess, design.ErrEmptyPrompt
	}

	segments, err := s.designer.Split(ctx, id, sess.ContentText)
	if err != nil {
		return sess, err
	}
	return s.store.Update(id, func(sess *Session, _ time.Time) error {
		if sess.State == StateGenerating {
			return fmt.Errorf("%w: session is %s", ErrInvalidTransition, sess.State)
		}
		sess.Segments = &segments
		return nil
	})
}

// Generate renders one image per stored segment in the analysed style.
func (s *Service) Generate(ctx context.Context, id string) (Session, error) {
	var (
		style    design.StyleAnalysis
		segments []design.Segment
	)
	sess, err := s.store.Update(id, func(sess *Session, now time.Time) error {
		if sess.Analysis == nil {
			return ErrNoAnalysis
		}
		if err := sess.moveTo(StateGenerating, now); err != nil {
			return err
		}
		style = *sess.Analysis
		if sess.Segments != nil {
			segments = sess.Segments.Segments
		}
		return nil
	})
	if err != nil {
		return sess, err
	}
	s.publish(sess)

	results, opErr := s.designer.Generate(ctx, id, style, segments)
	return s.finish(id, opErr, StateGenerated, func(sess *Session) {
		sess.Results = results
	})
}

// finish records the outcome of a model call: success moves to done and
// applies the result, failure moves to failed with the error text.
func (s *Service) finish(id string, opErr error, done State, apply func(*Session)) (Session, error) {
	sess, err := s.store.Update(id, func(sess *Session, now time.Time) error {
		if opErr != nil {
			if err := sess.moveTo(StateFailed, now); err != nil {
				return err
			}
			sess.Err = opErr.Error()
			return nil
		}
		if err := sess.moveTo(done, now); err != nil {
			return err
		}
		apply(sess)
		return nil
	})
	if err != nil {
		s.logger.Warn("session changed during model call", zap.String("session", id), zap.Error(err))
		if opErr != nil {
			return sess, opErr
		}
		return sess, err
	}
	s.publish(sess)
	return sess, opErr
}

func (s *Service) publish(sess Session) {
	if s.events == nil {
		return
	}
	s.events.Publish(events.Event{SessionID: sess.ID, State: string(sess.State), Error: sess.Err, At: sess.UpdatedAt})
}

func truncateRunes(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}
