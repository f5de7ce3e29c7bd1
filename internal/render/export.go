package render

import (
	"fmt"
	"strings"
	"unicode"
)

// Format is an image output format.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

const defaultFilename = "qr-code"

// ParseFormat accepts "png" or "svg"; empty selects PNG.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Filename builds a download name for f from a user-supplied name. Anything
// outside letters, digits, '-', '_' and '.' is replaced; an empty result
// falls back to "qr-code".
func Filename(name string, f Format) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, "."+string(f))
	var b strings.Builder
	dash := false
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '_', r == '.':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	clean := strings.Trim(b.String(), "-.")
	if clean == "" {
		clean = defaultFilename
	}
	return clean + "." + string(f)
}
