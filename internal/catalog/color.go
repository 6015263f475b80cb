package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	colorRe = regexp.MustCompile(`^[0-9A-F]{8}$`)
	rgbRe   = regexp.MustCompile(`^#?([0-9A-Fa-f]{6})$`)
)

// NormalizeColor trims and upper-cases a color field.
func NormalizeColor(text string) string {
	return strings.ToUpper(strings.TrimSpace(text))
}

// ColorFromRGB turns a picker value like "#1a2b3c" into the on-disk
// RRGGBBAA form with an opaque alpha.
func ColorFromRGB(rgb string) (string, error) {
	m := rgbRe.FindStringSubmatch(strings.TrimSpace(rgb))
	if m == nil {
		return "", fmt.Errorf("invalid rgb color %q", rgb)
	}
	return strings.ToUpper(m[1]) + "FF", nil
}
