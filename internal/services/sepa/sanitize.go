package sepa

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxNameLength is the party-name cap most banks enforce on pain files.
const maxNameLength = 70

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// sanitizeName strips accents and caps the length. Entity escaping of the
// remaining characters is handled by the XML encoder.
func sanitizeName(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		out = s
	}
	out = strings.TrimSpace(out)
	r := []rune(out)
	if len(r) > maxNameLength {
		out = string(r[:maxNameLength])
	}
	return out
}
