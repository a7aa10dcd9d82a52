// Package filename provides utilities for sanitizing strings into safe filenames.
package filename

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// invalidChars are the characters rejected by at least one common filesystem.
const invalidChars = `<>:"/\|?*`

// Sanitize replaces every character that is illegal on common filesystems
// with an underscore and trims surrounding whitespace. It never fails and is
// idempotent. The result is meant for display and download names only; it
// is not a trusted path component.
func Sanitize(name string) string {
	s := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidChars, r) {
			return '_'
		}
		return r
	}, name)
	return strings.TrimSpace(s)
}

// stripMarks decomposes runes and removes combining marks ("é" -> "e").
// Transformers carry state, so each call gets its own chain.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// ASCIIFallback returns an ASCII-only rendition of name suitable for the
// plain filename parameter of a Content-Disposition header. Accents are
// dropped; anything else outside printable ASCII becomes an underscore.
func ASCIIFallback(name string) string {
	s, _, err := transform.String(stripMarks(), name)
	if err != nil {
		s = name
	}
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// ContentDisposition builds an attachment header value carrying both the
// ASCII fallback and the exact UTF-8 name (RFC 5987).
func ContentDisposition(name string) string {
	fallback := ASCIIFallback(name)
	if fallback == name {
		return `attachment; filename="` + name + `"`
	}
	return `attachment; filename="` + fallback + `"; filename*=UTF-8''` + url.PathEscape(name)
}
