// Package textutil provides the text comparison helpers used to score OCR
// output against catalog names: accent and case folding plus a fuzzy
// similarity ratio tolerant of character-level OCR noise.
package textutil
