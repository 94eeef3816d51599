package extract

import (
	"regexp"
	"strings"
)

var (
	leadingFencePattern  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	trailingFencePattern = regexp.MustCompile("\\s*```$")
	trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)
	singleQuotedKey      = regexp.MustCompile(`'([A-Za-z0-9_\-]+)'\s*:`)
	singleQuotedValue    = regexp.MustCompile(`:\s*'([^']*)'`)

	smartQuotes = strings.NewReplacer(
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
	)
)

// Normalize rewrites near-JSON syntax into strict JSON syntax: it strips a
// surrounding code fence, replaces smart quotes, drops trailing commas and
// double-quotes single-quoted keys and string values.
//
// The result is a fixed point: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	out := text
	for {
		next := normalizeOnce(out)
		if next == out {
			return out
		}
		out = next
	}
}

// Each rewrite either deletes characters or consumes quotes (smart to plain,
// single to double), so repeated application converges.
func normalizeOnce(text string) string {
	out := stripCodeFences(text)
	out = smartQuotes.Replace(out)
	out = trailingCommaPattern.ReplaceAllString(out, "$1")
	out = singleQuotedKey.ReplaceAllString(out, `"$1":`)
	out = singleQuotedValue.ReplaceAllString(out, `: "$1"`)
	return out
}

func stripCodeFences(text string) string {
	out := leadingFencePattern.ReplaceAllString(text, "")
	out = trailingFencePattern.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
