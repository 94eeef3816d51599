package prompts

import (
	"fmt"
	"strings"
)

const analyzeSystemPrompt = `You are a senior UI/UX design reviewer and prompt engineer. Your task:
- Systematically analyse the design language of the reference images (layout and grid, information hierarchy, typography, colour, whitespace, alignment, contrast, icon and illustration style, hinted components and motion, shadows and texture, module composition).
- Systematically analyse their content structure (main title, subtitle, key points, data points, supporting copy, data visualisations, type hierarchy, information density).
- Merge the shared style of all images into one description. Call out what varies between them as adjustable parameters instead of listing each image separately.`

const analyzeUserPrompt = `Reverse-engineer the design style of the knowledge-card images I provided and write one reusable generation prompt. The prompt must cover:
- overall style (for example minimal neutral, card based, glassmorphism, flat illustration), keeping one or more key design principles;
- colour scheme for background and text, with primary and secondary colours and where each is used;
- typography: font style, hierarchy and size scale, line height, letter spacing;
- card dimensions;
- layout: grid, columns, spacing and module composition;
- spacing and rhythm: whitespace and divider rules;
- shadows and depth: elevation and texture;
- imagery and icons: illustration and icon style;
- per-card title design: main title, subtitle, title colour;
- per-card content structure: key point, supporting data, notes;
- per-card visual elements: background decoration, charts, highlights, whitespace;
- per-card text rules: body text, emphasis, type levels, mixed-language handling;
- per-card output format, summarised from the images.
The prompt may be used to generate one or several images, so never state how many images to produce.`

const analyzeSchema = `Output strictly this JSON structure and nothing else:
{
  "prompt": ""
}`

const splitSystemPrompt = "You are an expert text analyst. Respond with valid JSON only. No commentary, no markdown."

const splitUserTemplate = `Analyse the text below and split it into its key themes. Each theme gets a short title and the part of the text that belongs to it, summarised into its main points.
Return JSON shaped as {"texts": [{"theme": "", "content": ""}]}.

Text:
%s`

const generateSystemPrompt = "You are a professional vector graphics and front-end graphics engineer. Output valid SVG text only. No explanations, no Markdown code blocks."

var generateUserLines = []string{
	"Produce a compact, semantically clear SVG that renders as-is, following the requirements below:",
	`- use an <svg xmlns="http://www.w3.org/2000/svg"> root element`,
	"- prefer inline styles and avoid external references",
	"- output only the complete SVG, with no explanation or wrapping characters",
	"",
}

// Analyze returns the system and user prompts for style analysis of reference images.
func Analyze() (string, string) {
	return analyzeSystemPrompt, analyzeUserPrompt + "\n\n" + analyzeSchema
}

// Split returns the prompts that ask the model to split text into themed segments.
func Split(text string) (string, string) {
	return splitSystemPrompt, fmt.Sprintf(splitUserTemplate, strings.TrimSpace(text))
}

// Generate returns the prompts that ask the model for a single SVG.
func Generate(requirement string) (string, string) {
	lines := append(append([]string(nil), generateUserLines...), "Requirements:\n"+strings.TrimSpace(requirement))
	return generateSystemPrompt, strings.Join(lines, "\n")
}

// Compose merges a derived style prompt with one theme and its content into
// a single generation requirement. Empty parts are skipped.
func Compose(style, theme, content string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(style))
	if theme = strings.TrimSpace(theme); theme != "" {
		fmt.Fprintf(&b, "\n\nTheme: %s", theme)
	}
	if content = strings.TrimSpace(content); content != "" {
		fmt.Fprintf(&b, "\n\nContent:\n%s", content)
	}
	return strings.TrimSpace(b.String())
}
