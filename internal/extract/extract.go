// Package extract recovers strict JSON values from free-form language model output.
//
// Models wrap JSON in prose or markdown fences and often emit JavaScript-literal
// syntax (single quotes, trailing commas). The functions here locate and parse
// the JSON span, normalizing syntax only; field values are never rewritten.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNoJSONFound reports that the text holds no span shaped like the requested value.
	ErrNoJSONFound = errors.New("extract: no JSON found")
	// ErrMalformedJSON reports that a candidate span was found but did not parse.
	ErrMalformedJSON = errors.New("extract: malformed JSON")
)

// MalformedJSONError carries the parser failure and the raw model text.
type MalformedJSONError struct {
	Raw string
	Err error
}

func (e *MalformedJSONError) Error() string {
	if e.Err == nil {
		return ErrMalformedJSON.Error()
	}
	return fmt.Sprintf("%s: %v", ErrMalformedJSON, e.Err)
}

// Unwrap exposes the parser error, so errors.Is also sees ErrNoJSONFound when
// the last stage found no span at all.
func (e *MalformedJSONError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMalformedJSON) hold for every MalformedJSONError.
func (e *MalformedJSONError) Is(target error) bool { return target == ErrMalformedJSON }

// SegmentsField is the object field that may hold the segment array.
const SegmentsField = "texts"

var (
	objectSpanPattern = regexp.MustCompile(`(?s)\{.*\}`)
	arraySpanPattern  = regexp.MustCompile(`(?s)\[.*\]`)
)

type shape struct {
	name    string
	open    byte
	close   byte
	pattern *regexp.Regexp
}

var (
	objectShape = shape{name: "object", open: '{', close: '}', pattern: objectSpanPattern}
	arrayShape  = shape{name: "array", open: '[', close: ']', pattern: arraySpanPattern}
)

var strict Extractor

// ExtractObject returns the JSON object embedded in text. No normalization is applied.
func ExtractObject(text string) (map[string]any, error) {
	return strict.ExtractObject(text)
}

// ExtractArray returns the JSON array embedded in text. No normalization is applied.
func ExtractArray(text string) ([]any, error) {
	return strict.ExtractArray(text)
}

// ExtractSegments returns the segment array from text holding either a bare
// array or an object with a "texts" array field, normalizing relaxed syntax first.
func ExtractSegments(text string) ([]any, error) {
	return strict.ExtractSegments(text)
}

// extractSpan runs the slice-then-regex strategy for one shape and decodes into out.
//
// A text whose closing bracket only appears before the opening one is treated as
// holding no JSON. An opening bracket with no closing bracket anywhere is an
// unterminated candidate and fails to parse.
func extractSpan(text string, sh shape, out any) error {
	trimmed := strings.TrimSpace(text)
	start := strings.IndexByte(trimmed, sh.open)
	if start < 0 {
		return fmt.Errorf("%w: no %s in model output", ErrNoJSONFound, sh.name)
	}
	end := strings.LastIndexByte(trimmed, sh.close)
	if end < 0 {
		return json.Unmarshal([]byte(trimmed[start:]), out)
	}
	if end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), out); err == nil {
			return nil
		}
	}

	match := sh.pattern.FindString(trimmed)
	if match == "" {
		return fmt.Errorf("%w: %s closes before it opens", ErrNoJSONFound, sh.name)
	}
	return json.Unmarshal([]byte(match), out)
}

// segmentsFrom reports the usable array held by a parsed value, if any.
func segmentsFrom(v any) ([]any, bool) {
	switch typed := v.(type) {
	case []any:
		return typed, true
	case map[string]any:
		if arr, ok := typed[SegmentsField].([]any); ok {
			return arr, true
		}
	}
	return nil, false
}

func malformed(raw string, err error) error {
	if errors.Is(err, ErrMalformedJSON) {
		return err
	}
	return &MalformedJSONError{Raw: raw, Err: err}
}
