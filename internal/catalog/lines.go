package catalog

import (
	"strings"

	"github.com/starford/marketeer/internal/models"
)

// ParseLines splits newline-joined form text into a fresh slice, trimming
// each line and dropping blank ones.
func ParseLines(text string) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// JoinLines is the inverse of ParseLines for non-blank single-line values.
func JoinLines(xs []string) string {
	return strings.Join(xs, "\n")
}

// FormatTraderItems renders the override map as "ClassName: value" lines.
func FormatTraderItems(items models.TraderItems) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = it.ClassName + ": " + it.Value.String()
	}
	return strings.Join(lines, "\n")
}

// ParseTraderItems parses "ClassName: value" lines. Lines without a colon
// are ignored and values that parse as integers are stored as integers.
// Blank text leaves existing untouched and reports false.
func ParseTraderItems(text string, existing models.TraderItems) (models.TraderItems, bool) {
	if strings.TrimSpace(text) == "" {
		return existing, false
	}
	out := models.TraderItems{}
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out.Set(strings.TrimSpace(key), models.ParseOverride(strings.TrimSpace(value)))
	}
	return out, true
}
