// Package design holds the three model-backed operations behind reverse
// design: deriving a style prompt from reference images, splitting text into
// themes and rendering SVGs.
package design

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks a model answer that could not be turned into the expected structure.
	ErrParse = errors.New("the AI response could not be parsed")
	// ErrInvalidSVG is returned when a generation answer holds no <svg> document.
	ErrInvalidSVG = errors.New("model did not return a valid SVG")
	// ErrEmptyPrompt is returned for blank text or generation prompts.
	ErrEmptyPrompt = errors.New("prompt is required")
	// ErrMissingPrompt is returned when a style analysis lacks its prompt field.
	ErrMissingPrompt = errors.New("analysis has no prompt")
)

// ParseError carries the raw model text of a failed parse for diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrParse, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is reports ErrParse so callers can match without errors.As.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// StyleAnalysis is the reusable design prompt derived from reference images.
type StyleAnalysis struct {
	Prompt string `json:"prompt"`
	// Fields holds every field of the model's object, prompt included.
	Fields     map[string]any `json:"fields"`
	ImageCount int            `json:"imageCount"`
	Model      string         `json:"model"`
}

// Segment is one theme and the text that belongs to it.
type Segment struct {
	Theme   string `json:"theme"`
	Content string `json:"content"`
}

// ThemeSegments is the result of splitting text by topic.
type ThemeSegments struct {
	Segments []Segment `json:"segments"`
	Model    string    `json:"model"`
}

// GeneratedImage is one rendered SVG.
type GeneratedImage struct {
	Theme   string `json:"theme,omitempty"`
	SVG     string `json:"svg"`
	DataURL string `json:"image"`
	Model   string `json:"model"`
}
