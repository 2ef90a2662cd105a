package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nameFold decomposes characters and strips combining marks so accented and
// plain spellings compare equal ("Pokémon" vs "Pokemon").
var nameFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName folds a card name for comparison: diacritics removed,
// lowercased, whitespace collapsed. OCR output and catalog names pass
// through the same fold so minor rendering differences cancel out.
func NormalizeName(name string) string {
	folded, _, err := transform.String(nameFold, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// NormalizeNumber canonicalizes a collector number for exact comparison:
// trimmed, uppercased, leading zeros stripped ("025" and "25" compare
// equal, "TG12" is untouched).
func NormalizeNumber(number string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(number))
	for len(trimmed) > 1 && trimmed[0] == '0' {
		trimmed = trimmed[1:]
	}
	return trimmed
}
