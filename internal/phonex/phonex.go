// Package phonex compiles phonological search patterns and finds their
// matches inside IPA transcriptions.
//
// A pattern is a regular expression over IPA text with phone classes:
//
//	\c  any consonant (with its diacritics)
//	\v  any vowel (with its diacritics)
//	.   any phone
//	\s  a stress marker
//
// Every other construct is plain RE2 syntax. Matches never start or end
// inside a phone: a match ending before the diacritics of its last phone is
// extended over them, and any other match that splits a phone is dropped.
package phonex

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rcliao/speech-query/internal/ipa"
)

var (
	diacritics = `(?:` + string(ipa.TieBar) + `\pL|[\p{Mn}` + ipa.Modifiers + `])*`
	notBase    = `\s.` + ipa.Stress + `\p{Mn}` + ipa.Modifiers

	anyPhone  = `(?:[^` + notBase + `]` + diacritics + `)`
	vowel     = `(?:[` + ipa.Vowels + `]` + diacritics + `)`
	consonant = `(?:[^\P{L}` + ipa.Vowels + ipa.Modifiers + ipa.Stress + `]` + diacritics + `)`
	stress    = `[` + ipa.Stress + `]`
	trailing  = `[\p{Mn}` + ipa.Modifiers + `]*`
)

// Match is one occurrence of a pattern. Offset and Length count runes.
type Match struct {
	Text   string `json:"text"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

// End returns the rune offset just past the match.
func (m Match) End() int { return m.Offset + m.Length }

// Pattern is a compiled phonex expression. It is safe to reuse across all
// units of a search.
type Pattern struct {
	expr string
	re   *regexp.Regexp
	full *regexp.Regexp
}

// Compile translates and compiles a phonex expression.
func Compile(expr string) (*Pattern, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	src := translate(expr)
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return &Pattern{
		expr: expr,
		re:   re,
		full: regexp.MustCompile(`^(?:` + src + `)` + trailing + `$`),
	}, nil
}

func (p *Pattern) String() string { return p.expr }

// FindMatches returns every non-overlapping match in text, left to right.
// Searching resumes right after each match; an empty match advances the
// search by one position.
func (p *Pattern) FindMatches(text string) []Match {
	locs := p.re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	runes := []rune(text)
	inner := phoneInteriors(text, len(runes))
	var matches []Match
	for _, loc := range locs {
		start := utf8.RuneCountInString(text[:loc[0]])
		end := start + utf8.RuneCountInString(text[loc[0]:loc[1]])
		if inner[start] > 0 {
			continue
		}
		if pe := inner[end]; pe > 0 {
			if !onlyModifiers(runes[end:pe]) {
				continue
			}
			end = pe
		}
		matches = append(matches, Match{
			Text:   string(runes[start:end]),
			Offset: start,
			Length: end - start,
		})
	}
	return matches
}

// phoneInteriors maps every rune position strictly inside a phone to the end
// of that phone. Positions on a phone boundary map to zero.
func phoneInteriors(text string, n int) []int {
	inner := make([]int, n+1)
	for _, ph := range ipa.Phones(text) {
		for i := ph.Span.Start + 1; i < ph.Span.End; i++ {
			inner[i] = ph.Span.End
		}
	}
	return inner
}

func onlyModifiers(rs []rune) bool {
	for _, r := range rs {
		if r == ipa.TieBar || !ipa.IsModifier(r) {
			return false
		}
	}
	return true
}

// Contains reports whether the pattern occurs anywhere in text.
func (p *Pattern) Contains(text string) bool {
	return len(p.FindMatches(text)) > 0
}

// MatchesAll reports whether the pattern matches the whole of text.
func (p *Pattern) MatchesAll(text string) bool {
	return p.full.MatchString(text)
}

// translate rewrites phone classes into RE2 syntax. Escapes other than the
// phonex classes, and anything inside a bracket expression, pass through.
func translate(expr string) string {
	var b strings.Builder
	inClass := false
	runes := []rune(expr)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\' && i+1 < len(runes):
			next := runes[i+1]
			i++
			if !inClass {
				switch next {
				case 'c':
					b.WriteString(consonant)
					continue
				case 'v':
					b.WriteString(vowel)
					continue
				case 's':
					b.WriteString(stress)
					continue
				}
			}
			b.WriteRune('\\')
			b.WriteRune(next)
		case r == '[' && !inClass:
			inClass = true
			b.WriteRune(r)
			if i+1 < len(runes) && runes[i+1] == '^' {
				b.WriteRune('^')
				i++
			}
			if i+1 < len(runes) && runes[i+1] == ']' {
				b.WriteRune(']')
				i++
			}
		case r == ']' && inClass:
			inClass = false
			b.WriteRune(r)
		case r == '.' && !inClass:
			b.WriteString(anyPhone)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
