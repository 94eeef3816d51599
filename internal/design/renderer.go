package design

import (
	"context"
	"fmt"
	"strings"

	"reverseDesignAi/internal/llm"
	"reverseDesignAi/internal/prompts"
)

const svgDataURLPrefix = "data:image/svg+xml;utf8,"

// SVGRenderer asks a text model for a single SVG document.
type SVGRenderer struct {
	Client llm.Client
}

// Render returns the SVG for prompt, trimmed to its <svg>...</svg> span.
func (r SVGRenderer) Render(ctx context.Context, prompt string) (GeneratedImage, error) {
	if strings.TrimSpace(prompt) == "" {
		return GeneratedImage{}, ErrEmptyPrompt
	}

	system, user := prompts.Generate(prompt)
	resp, err := r.Client.Complete(llm.WithOperation(ctx, "generate"), llm.Request{
		Messages:    []llm.Message{llm.System(system), llm.User(user)},
		Temperature: llm.Float(0.4),
	})
	if err != nil {
		return GeneratedImage{}, fmt.Errorf("generate: %w", err)
	}

	svg, ok := ExtractSVG(resp.Text)
	if !ok {
		return GeneratedImage{}, ErrInvalidSVG
	}
	return GeneratedImage{SVG: svg, DataURL: SVGDataURL(svg), Model: resp.Model}, nil
}

// ExtractSVG trims text to the span from the first "<svg" to the last
// "</svg>", ignoring case. It reports false when either tag is missing.
func ExtractSVG(text string) (string, bool) {
	text = strings.TrimSpace(text)
	start := indexFold(text, "<svg")
	end := lastIndexFold(text, "</svg>")
	if start < 0 || end < 0 || end < start {
		return "", false
	}
	return text[start : end+len("</svg>")], true
}

func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func lastIndexFold(s, sub string) int {
	for i := len(s) - len(sub); i >= 0; i-- {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

// SVGDataURL percent-encodes svg the way encodeURIComponent does and
// prefixes it as an image/svg+xml data URL.
func SVGDataURL(svg string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(svgDataURLPrefix) + len(svg)*3)
	b.WriteString(svgDataURLPrefix)
	for i := 0; i < len(svg); i++ {
		c := svg[i]
		if uriUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func uriUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
