// Package ipa segments IPA transcriptions into phones, words and syllables.
package ipa

import (
	"strings"
	"unicode"
)

// Character inventories used by segmentation and by the phonex pattern
// classes. Vowels lists the vowel base letters; Modifiers lists spacing
// modifier letters that attach to the preceding phone.
const (
	Vowels    = "aeiouyæɐɑɒɔəɘɛɜɞɤɨɪʉʊʌʏøœɶɯɵɚɝ"
	Modifiers = "ʰʷʲˠˤⁿˡːˑ˞"
	Stress    = "ˈˌ"

	PrimaryStressMarker   = 'ˈ'
	SecondaryStressMarker = 'ˌ'
	SyllableBoundary      = '.'
	TieBar                = '͡'
)

// Span is a half-open rune range [Start, End) inside a transcription.
type Span struct {
	Start int
	End   int
}

// Len returns the number of runes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether s and o share at least one rune.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Element is a piece of a transcription: a phone (base letter plus
// diacritics) or a word.
type Element struct {
	Text string
	Span Span
}

// IsVowel reports whether r is a vowel base letter.
func IsVowel(r rune) bool { return strings.ContainsRune(Vowels, r) }

// IsModifier reports whether r attaches to the preceding phone.
func IsModifier(r rune) bool {
	return unicode.Is(unicode.Mn, r) || strings.ContainsRune(Modifiers, r)
}

// IsStress reports whether r is a stress marker.
func IsStress(r rune) bool { return r == PrimaryStressMarker || r == SecondaryStressMarker }

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == SyllableBoundary || IsStress(r)
}

// IsConsonant reports whether r is a consonant base letter.
func IsConsonant(r rune) bool {
	return !isSeparator(r) && !IsVowel(r) && !IsModifier(r) && unicode.IsLetter(r)
}

// Phones splits text into phones. Whitespace, syllable boundaries and
// stress markers are not phones. A tie bar joins the following letter to
// the current phone.
func Phones(text string) []Element {
	runes := []rune(text)
	var phones []Element
	for i := 0; i < len(runes); {
		r := runes[i]
		if isSeparator(r) || IsModifier(r) {
			i++
			continue
		}
		start := i
		i++
		for i < len(runes) {
			if runes[i] == TieBar && i+1 < len(runes) {
				i += 2
				continue
			}
			if !IsModifier(runes[i]) {
				break
			}
			i++
		}
		phones = append(phones, Element{Text: string(runes[start:i]), Span: Span{Start: start, End: i}})
	}
	return phones
}

// Words returns the whitespace-delimited words of text with their spans.
func Words(text string) []Element {
	runes := []rune(text)
	var words []Element
	start := -1
	for i, r := range runes {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, Element{Text: string(runes[start:i]), Span: Span{Start: start, End: i}})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, Element{Text: string(runes[start:]), Span: Span{Start: start, End: len(runes)}})
	}
	return words
}

// Position locates a word in its group or a syllable in its word.
type Position int

const (
	Singleton Position = iota
	Initial
	Medial
	Final
)

var positionNames = []string{"singleton", "initial", "medial", "final"}

func (p Position) String() string {
	if int(p) < len(positionNames) {
		return positionNames[p]
	}
	return "unknown"
}

// ParsePosition parses a position name.
func ParsePosition(s string) (Position, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range positionNames {
		if n == s {
			return Position(i), true
		}
	}
	return 0, false
}

// PositionOf returns the position of element i in a list of n elements.
func PositionOf(i, n int) Position {
	switch {
	case n == 1:
		return Singleton
	case i == 0:
		return Initial
	case i == n-1:
		return Final
	default:
		return Medial
	}
}
