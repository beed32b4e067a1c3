package entity

import (
	"strings"
	"unicode"
)

// toSnake converts the provided string to snake_case using ASCII-aware rules.
// Acronyms stay together ("HTTPServer" becomes "http_server") and any
// punctuation collapses into a single separator so reflected Go names and
// wire keys land on the same spelling.
func toSnake(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	lastUnderscore := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case unicode.IsUpper(r):
			if b.Len() > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if (unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower) && !lastUnderscore {
					b.WriteByte('_')
					lastUnderscore = true
				}
			}
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		case unicode.IsLower(r), unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.Trim(b.String(), "_")
}

// toCamel converts a snake_case wire key into lowerCamelCase.
func toCamel(s string) string {
	p := toPascal(s)
	if p == "" {
		return ""
	}
	runes := []rune(p)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

// toPascal converts a snake_case wire key into the exported Go spelling.
// The segment "id" is upper cased to follow Go initialism conventions.
func toPascal(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})

	var b strings.Builder
	b.Grow(len(s))
	for _, part := range parts {
		if strings.EqualFold(part, "id") {
			b.WriteString("ID")
			continue
		}
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// SnakeCase exposes the wire naming rule used for serialized keys.
func SnakeCase(s string) string {
	return toSnake(s)
}

// CamelCase exposes the in-memory naming rule applied to wire keys.
func CamelCase(s string) string {
	return toCamel(s)
}
