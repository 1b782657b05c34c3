// Package model defines the corpus, alignment and result types shared by
// the query pipeline and its adapters.
package model

import (
	"fmt"
	"strings"

	"github.com/rcliao/speech-query/internal/ipa"
)

// Tier selects one of the two parallel phonetic transcriptions.
type Tier int

const (
	TargetTier Tier = iota
	ActualTier
)

func (t Tier) String() string {
	if t == ActualTier {
		return "IPA Actual"
	}
	return "IPA Target"
}

// Other returns the aligned tier.
func (t Tier) Other() Tier {
	if t == ActualTier {
		return TargetTier
	}
	return ActualTier
}

// ParseTier accepts "target", "actual", "IPA Target" or "IPA Actual".
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "target", "ipa target", "ipa_target":
		return TargetTier, nil
	case "actual", "ipa actual", "ipa_actual":
		return ActualTier, nil
	}
	return 0, fmt.Errorf("unknown tier %q (valid: target, actual)", s)
}

// Segment is a record's time span in its media, in milliseconds.
type Segment struct {
	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`
}

// Start returns the segment start in seconds.
func (s Segment) Start() float64 { return float64(s.StartMs) / 1000.0 }

// End returns the segment end in seconds.
func (s Segment) End() float64 { return float64(s.EndMs) / 1000.0 }

// Record is one utterance of a session.
type Record struct {
	ID       string    `json:"id"`
	Corpus   string    `json:"corpus"`
	Session  string    `json:"session"`
	Index    int       `json:"index"`
	Speaker  string    `json:"speaker,omitempty"`
	Media    string    `json:"media,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
	Groups   []*Group  `json:"groups"`
}

// Group is an utterance-level unit with both transcriptions.
type Group struct {
	Index  int         `json:"index"`
	Target *Transcript `json:"target"`
	Actual *Transcript `json:"actual"`
}

// NewGroup builds a group from its two transcriptions.
func NewGroup(index int, target, actual string) *Group {
	return &Group{Index: index, Target: NewTranscript(target), Actual: NewTranscript(actual)}
}

// Transcript returns the transcription for tier t.
func (g *Group) Transcript(t Tier) *Transcript {
	if t == ActualTier {
		return g.Actual
	}
	return g.Target
}

// Words returns the aligned word pairs of the group. Word i of the target
// transcription aligns with word i of the actual transcription.
func (g *Group) Words() []Word {
	n := len(g.Target.Words)
	if len(g.Actual.Words) > n {
		n = len(g.Actual.Words)
	}
	words := make([]Word, n)
	for i := range words {
		words[i] = Word{Index: i, Group: g}
	}
	return words
}

// Word is one aligned word pair of a group.
type Word struct {
	Index int
	Group *Group
}

// Token returns the word token on tier t, if that tier has word i.
func (w Word) Token(t Tier) (*Token, bool) {
	tr := w.Group.Transcript(t)
	if w.Index >= len(tr.Words) {
		return nil, false
	}
	return &tr.Words[w.Index], true
}

// Text returns the word's transcription on tier t.
func (w Word) Text(t Tier) string {
	if tok, ok := w.Token(t); ok {
		return tok.Text
	}
	return ""
}

// Token is an alignable piece of a transcription: a phone or a word. Start
// and End are rune offsets into the transcription text.
type Token struct {
	Text     string           `json:"text"`
	Start    int              `json:"start"`
	End      int              `json:"end"`
	Interval *AlignedInterval `json:"interval,omitempty"`
}

// Transcript is one tier's transcription of a group with its phone and word
// tokens. Intervals are attached by the annotation step.
type Transcript struct {
	Text     string           `json:"text"`
	Interval *AlignedInterval `json:"interval,omitempty"`
	Phones   []Token          `json:"-"`
	Words    []Token          `json:"-"`
}

// NewTranscript segments text into phone and word tokens.
func NewTranscript(text string) *Transcript {
	tr := &Transcript{Text: text}
	for _, p := range ipa.Phones(text) {
		tr.Phones = append(tr.Phones, Token{Text: p.Text, Start: p.Span.Start, End: p.Span.End})
	}
	for _, w := range ipa.Words(text) {
		tr.Words = append(tr.Words, Token{Text: w.Text, Start: w.Span.Start, End: w.Span.End})
	}
	return tr
}

// PhonesAligned reports whether any phone carries an interval.
func (tr *Transcript) PhonesAligned() bool {
	for _, p := range tr.Phones {
		if p.Interval != nil {
			return true
		}
	}
	return false
}

// AlignedInterval is a labelled interval, in seconds, from a time-aligned
// annotation of the record's media.
type AlignedInterval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Label string  `json:"label,omitempty"`
}

// ResolvedInterval is the time span measured for a match.
type ResolvedInterval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Window is an inclusive range of sample indices. A window with Hi < Lo is
// empty.
type Window struct {
	Lo int
	Hi int
}

// Len returns the number of samples in the window.
func (w Window) Len() int {
	if w.Hi < w.Lo {
		return 0
	}
	return w.Hi - w.Lo + 1
}
