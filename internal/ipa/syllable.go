package ipa

import "strings"

// StressLevel is the stress carried by a syllable.
type StressLevel int

const (
	Unstressed StressLevel = iota
	PrimaryStress
	SecondaryStress
)

var stressNames = []string{"unstressed", "primary", "secondary"}

func (s StressLevel) String() string {
	if int(s) < len(stressNames) {
		return stressNames[s]
	}
	return "unknown"
}

// ParseStress parses a stress level name.
func ParseStress(s string) (StressLevel, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range stressNames {
		if n == s {
			return StressLevel(i), true
		}
	}
	return 0, false
}

// Syllable is a syllable derived from a transcription. Span is relative to
// the syllabified text; Position is relative to the containing word.
type Syllable struct {
	Text     string
	Span     Span
	Stress   StressLevel
	Position Position
}

type chunk struct {
	span   Span
	stress StressLevel
}

// Syllabify splits every word of text into syllables. Explicit syllable
// boundaries and stress markers always start a new syllable; inside a chunk
// without markers each vowel is a nucleus and a single consonant between
// two nuclei is the onset of the second.
func Syllabify(text string) []Syllable {
	runes := []rune(text)
	var out []Syllable
	for _, w := range Words(text) {
		var sylls []Syllable
		for _, c := range chunks(runes, w.Span) {
			sylls = append(sylls, splitChunk(runes, c)...)
		}
		for i := range sylls {
			sylls[i].Position = PositionOf(i, len(sylls))
		}
		out = append(out, sylls...)
	}
	return out
}

func chunks(runes []rune, word Span) []chunk {
	var out []chunk
	cur := chunk{span: Span{Start: word.Start, End: word.Start}}
	flush := func(end int) {
		cur.span.End = end
		if cur.span.Len() > 0 {
			out = append(out, cur)
		}
	}
	for i := word.Start; i < word.End; i++ {
		switch r := runes[i]; {
		case r == SyllableBoundary:
			flush(i)
			cur = chunk{span: Span{Start: i + 1}}
		case IsStress(r):
			flush(i)
			cur = chunk{span: Span{Start: i}, stress: PrimaryStress}
			if r == SecondaryStressMarker {
				cur.stress = SecondaryStress
			}
		}
	}
	flush(word.End)
	return out
}

func splitChunk(runes []rune, c chunk) []Syllable {
	phones := Phones(string(runes[c.span.Start:c.span.End]))
	if len(phones) == 0 {
		return nil
	}
	var nuclei []int
	for i, p := range phones {
		if IsVowel([]rune(p.Text)[0]) {
			nuclei = append(nuclei, i)
		}
	}
	if len(nuclei) <= 1 {
		return []Syllable{newSyllable(runes, c.span, c.stress)}
	}

	// starts holds the rune offset at which each syllable begins.
	starts := []int{c.span.Start}
	for k := 1; k < len(nuclei); k++ {
		first := nuclei[k]
		if nuclei[k]-nuclei[k-1] > 1 {
			first = nuclei[k] - 1
		}
		starts = append(starts, c.span.Start+phones[first].Span.Start)
	}

	sylls := make([]Syllable, 0, len(starts))
	for i, s := range starts {
		end := c.span.End
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		stress := Unstressed
		if i == 0 {
			stress = c.stress
		}
		sylls = append(sylls, newSyllable(runes, Span{Start: s, End: end}, stress))
	}
	return sylls
}

func newSyllable(runes []rune, span Span, stress StressLevel) Syllable {
	return Syllable{Text: string(runes[span.Start:span.End]), Span: span, Stress: stress}
}
