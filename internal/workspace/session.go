// Package workspace keeps the per-user reverse-design state: uploaded
// reference images, the derived style, content text, segments and results,
// moved through an explicit state machine.
package workspace

import (
	"errors"
	"fmt"
	"time"

	"reverseDesignAi/internal/design"
	"reverseDesignAi/internal/uploads"
)

var (
	ErrNotFound          = errors.New("workspace: session not found")
	ErrInvalidTransition = errors.New("workspace: invalid state transition")
	ErrNoImages          = errors.New("workspace: session has no images")
	ErrNoAnalysis        = errors.New("workspace: session has no style analysis")
	ErrIndexOutOfRange   = errors.New("workspace: image index out of range")
)

// MaxContentRunes caps the content text kept per session.
const MaxContentRunes = 5000

// State is the lifecycle position of a session.
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateAnalyzing  State = "analyzing"
	StateAnalyzed   State = "analyzed"
	StateGenerating State = "generating"
	StateGenerated  State = "generated"
	StateFailed     State = "failed"
)

var transitions = map[State][]State{
	StateIdle:       {StateUploading},
	StateUploading:  {StateUploading, StateAnalyzing, StateIdle},
	StateAnalyzing:  {StateAnalyzed, StateFailed},
	StateAnalyzed:   {StateAnalyzing, StateGenerating, StateUploading, StateIdle},
	StateGenerating: {StateGenerated, StateFailed},
	StateGenerated:  {StateGenerating, StateUploading, StateAnalyzing, StateIdle},
	StateFailed:     {StateUploading, StateAnalyzing, StateGenerating, StateIdle},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Busy reports whether a model call is in flight for the state.
func (s State) Busy() bool {
	return s == StateAnalyzing || s == StateGenerating
}

// Session is the single application-state object of one user.
type Session struct {
	ID          string                  `json:"id"`
	State       State                   `json:"state"`
	Images      []uploads.Image         `json:"images"`
	Analysis    *design.StyleAnalysis   `json:"analysis,omitempty"`
	ContentText string                  `json:"contentText"`
	Segments    *design.ThemeSegments   `json:"segments,omitempty"`
	Results     []design.GeneratedImage `json:"results,omitempty"`
	Err         string                  `json:"error,omitempty"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

func (s *Session) moveTo(to State, now time.Time) error {
	if !CanTransition(s.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, to)
	}
	s.State = to
	s.UpdatedAt = now
	if to != StateFailed {
		s.Err = ""
	}
	return nil
}

func (s *Session) requireIdleHands() error {
	if s.State.Busy() {
		return fmt.Errorf("%w: session is %s", ErrInvalidTransition, s.State)
	}
	return nil
}

// clone copies the session deeply enough that callers cannot mutate the stored one.
func (s *Session) clone() Session {
	out := *s
	out.Images = append([]uploads.Image(nil), s.Images...)
	out.Results = append([]design.GeneratedImage(nil), s.Results...)
	if s.Analysis != nil {
		a := *s.Analysis
		out.Analysis = &a
	}
	if s.Segments != nil {
		seg := *s.Segments
		seg.Segments = append([]design.Segment(nil), s.Segments.Segments...)
		out.Segments = &seg
	}
	return out
}
