package payload

import (
	"net/url"
	"strings"
)

// vCard 3.0 and iCalendar TEXT values share the same escaping rules.
var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	`;`, `\;`,
	`,`, `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", "",
)

func escapeText(s string) string { return textEscaper.Replace(s) }

// WiFi QR values escape the record delimiters with a backslash.
var wifiEscaper = strings.NewReplacer(
	`\`, `\\`,
	`;`, `\;`,
	`,`, `\,`,
	`:`, `\:`,
)

func escapeWiFi(s string) string { return wifiEscaper.Replace(s) }

// escapeComponent percent-encodes everything outside the unreserved set so
// the value decodes back unchanged with either query or path unescaping.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// unescapeBackslash reverses escapeText and escapeWiFi.
func unescapeBackslash(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// splitEscaped splits s on sep, ignoring separators preceded by a backslash.
// Escapes are left in place for unescapeBackslash.
func splitEscaped(s string, sep byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
