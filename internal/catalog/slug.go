package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify normalizes a title into the catalog lookup key: lowercased,
// accents stripped, runs of non-alphanumeric characters collapsed to a
// single hyphen, no leading or trailing hyphen.
// "Innovación y Transformación Digital" -> "innovacion-y-transformacion-digital".
func Slugify(title string) string {
	lowered := strings.ToLower(title)

	stripped, _, err := transform.String(deaccent, lowered)
	if err != nil {
		stripped = lowered
	}

	var b strings.Builder
	lastHyphen := true // swallow a leading hyphen
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
