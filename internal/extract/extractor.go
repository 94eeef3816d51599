package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Stage names reported to an Observer.
const (
	StageObject     = "object"
	StageArray      = "array"
	StageNormalized = "normalized"
	StageObjectSpan = "object_span"
	StageArraySpan  = "array_span"
	StageRepair     = "repair"
)

// Observer is told the outcome of every stage an Extractor attempts.
type Observer func(stage string, ok bool)

// Extractor configures extraction. The zero value is strict: it only
// normalizes syntax and never repairs content.
type Extractor struct {
	// Repair enables a last-resort jsonrepair pass once every strict stage
	// has failed. Repaired output may differ from what the model meant.
	Repair bool
	// Observer, when set, receives stage outcomes.
	Observer Observer
}

func (x Extractor) observe(stage string, ok bool) {
	if x.Observer != nil {
		x.Observer(stage, ok)
	}
}

// ExtractObject locates the first '{' and last '}' and parses the span, falling
// back to a regular-expression search for a brace-delimited span.
func (x Extractor) ExtractObject(text string) (map[string]any, error) {
	var obj map[string]any
	err := extractSpan(text, objectShape, &obj)
	x.observe(StageObject, err == nil)
	if err == nil {
		return obj, nil
	}
	if errors.Is(err, ErrNoJSONFound) {
		return nil, err
	}
	if x.Repair {
		if err := x.repairInto(candidateSpan(text, objectShape), &obj); err == nil {
			return obj, nil
		}
	}
	return nil, malformed(text, err)
}

// ExtractArray is ExtractObject anchored on '[' and ']'.
func (x Extractor) ExtractArray(text string) ([]any, error) {
	var arr []any
	err := extractSpan(text, arrayShape, &arr)
	x.observe(StageArray, err == nil)
	if err == nil {
		return arr, nil
	}
	if errors.Is(err, ErrNoJSONFound) {
		return nil, err
	}
	if x.Repair {
		if err := x.repairInto(candidateSpan(text, arrayShape), &arr); err == nil {
			return arr, nil
		}
	}
	return nil, malformed(text, err)
}

// ExtractSegments resolves, in order: the whole normalized text, the
// normalized '{'..'}' span, then a plain array span of the normalized text.
// A parsed array is used as-is; a parsed object must carry a "texts" array.
func (x Extractor) ExtractSegments(text string) ([]any, error) {
	normalized := strings.TrimSpace(Normalize(text))

	var parseErr error
	var whole any
	if err := json.Unmarshal([]byte(normalized), &whole); err != nil {
		parseErr = err
	} else if segments, ok := segmentsFrom(whole); ok {
		x.observe(StageNormalized, true)
		return segments, nil
	} else {
		parseErr = fmt.Errorf("parsed value has no %q array", SegmentsField)
	}
	x.observe(StageNormalized, false)

	start := strings.IndexByte(normalized, '{')
	end := strings.LastIndexByte(normalized, '}')
	if start >= 0 && end > start {
		var obj any
		if err := json.Unmarshal([]byte(Normalize(normalized[start:end+1])), &obj); err != nil {
			parseErr = err
		} else if segments, ok := segmentsFrom(obj); ok {
			x.observe(StageObjectSpan, true)
			return segments, nil
		} else {
			parseErr = fmt.Errorf("object has no %q array", SegmentsField)
		}
		x.observe(StageObjectSpan, false)
	}

	var arr []any
	err := extractSpan(normalized, arrayShape, &arr)
	x.observe(StageArraySpan, err == nil)
	if err == nil {
		return arr, nil
	}

	if x.Repair {
		var repaired any
		if rerr := x.repairInto(normalized, &repaired); rerr == nil {
			if segments, ok := segmentsFrom(repaired); ok {
				return segments, nil
			}
		}
	}

	if errors.Is(err, ErrNoJSONFound) && parseErr != nil {
		err = errors.Join(err, parseErr)
	}
	return nil, &MalformedJSONError{Raw: text, Err: err}
}

func (x Extractor) repairInto(candidate string, out any) error {
	repaired, err := jsonrepair.JSONRepair(candidate)
	if err == nil {
		err = json.Unmarshal([]byte(repaired), out)
	}
	x.observe(StageRepair, err == nil)
	return err
}

// candidateSpan is the text from the first opening bracket through the last
// closing one, or through the end when the span is unterminated.
func candidateSpan(text string, sh shape) string {
	trimmed := strings.TrimSpace(text)
	start := strings.IndexByte(trimmed, sh.open)
	if start < 0 {
		return trimmed
	}
	if end := strings.LastIndexByte(trimmed, sh.close); end > start {
		return trimmed[start : end+1]
	}
	return trimmed[start:]
}
