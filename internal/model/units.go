package model

import (
	"unicode/utf8"

	"github.com/rcliao/speech-query/internal/ipa"
)

// PhoneticUnit is a searchable piece of a record: a group transcription, a
// word or a syllable. Token offsets are relative to Text.
type PhoneticUnit interface {
	Text() string
	// AlignedText is the counterpart of the unit on the other tier.
	AlignedText() string
	Tier() Tier
	Group() *Group
	// Offset is the rune offset of the unit inside its group transcription.
	Offset() int
	// Interval is the unit's own aligned interval, if the annotation step
	// attached one.
	Interval() (AlignedInterval, bool)
	// Tokens are the aligned pieces of the unit used to resolve partial
	// matches: phones, or words when no phone carries alignment.
	Tokens() []Token
}

// GroupUnit is a whole group transcription.
type GroupUnit struct {
	group *Group
	tier  Tier
}

// NewGroupUnit returns the unit for g's transcription on tier t.
func NewGroupUnit(g *Group, t Tier) *GroupUnit { return &GroupUnit{group: g, tier: t} }

func (u *GroupUnit) Text() string        { return u.group.Transcript(u.tier).Text }
func (u *GroupUnit) AlignedText() string { return u.group.Transcript(u.tier.Other()).Text }
func (u *GroupUnit) Tier() Tier          { return u.tier }
func (u *GroupUnit) Group() *Group       { return u.group }
func (u *GroupUnit) Offset() int         { return 0 }

func (u *GroupUnit) Interval() (AlignedInterval, bool) {
	return deref(u.group.Transcript(u.tier).Interval)
}

func (u *GroupUnit) Tokens() []Token {
	tr := u.group.Transcript(u.tier)
	if tr.PhonesAligned() {
		return tr.Phones
	}
	return tr.Words
}

// WordUnit is one word of a group.
type WordUnit struct {
	word Word
	tier Tier
}

// NewWordUnit returns the unit for w on tier t.
func NewWordUnit(w Word, t Tier) *WordUnit { return &WordUnit{word: w, tier: t} }

func (u *WordUnit) Word() Word          { return u.word }
func (u *WordUnit) Text() string        { return u.word.Text(u.tier) }
func (u *WordUnit) AlignedText() string { return u.word.Text(u.tier.Other()) }
func (u *WordUnit) Tier() Tier          { return u.tier }
func (u *WordUnit) Group() *Group       { return u.word.Group }

func (u *WordUnit) Offset() int {
	if tok, ok := u.word.Token(u.tier); ok {
		return tok.Start
	}
	return 0
}

func (u *WordUnit) Interval() (AlignedInterval, bool) {
	if tok, ok := u.word.Token(u.tier); ok {
		return deref(tok.Interval)
	}
	return AlignedInterval{}, false
}

func (u *WordUnit) Tokens() []Token {
	tok, ok := u.word.Token(u.tier)
	if !ok {
		return nil
	}
	return SubTokens(NewGroupUnit(u.word.Group, u.tier).Tokens(), tok.Start, tok.End)
}

// SyllableUnit is one syllable of a group or word unit.
type SyllableUnit struct {
	parent   PhoneticUnit
	syllable ipa.Syllable
}

// NewSyllableUnit returns the unit for s, which was derived from parent's
// text.
func NewSyllableUnit(parent PhoneticUnit, s ipa.Syllable) *SyllableUnit {
	return &SyllableUnit{parent: parent, syllable: s}
}

func (u *SyllableUnit) Syllable() ipa.Syllable { return u.syllable }
func (u *SyllableUnit) Text() string           { return u.syllable.Text }
func (u *SyllableUnit) AlignedText() string    { return u.parent.AlignedText() }
func (u *SyllableUnit) Tier() Tier             { return u.parent.Tier() }
func (u *SyllableUnit) Group() *Group          { return u.parent.Group() }
func (u *SyllableUnit) Offset() int            { return u.parent.Offset() + u.syllable.Span.Start }

// Interval is always absent: syllable timing is inferred from its tokens.
func (u *SyllableUnit) Interval() (AlignedInterval, bool) { return AlignedInterval{}, false }

func (u *SyllableUnit) Tokens() []Token {
	return SubTokens(u.parent.Tokens(), u.syllable.Span.Start, u.syllable.Span.End)
}

// SubTokens returns the tokens overlapping [start, end), clipped to that
// range and rebased so that start becomes offset 0.
func SubTokens(tokens []Token, start, end int) []Token {
	var out []Token
	for _, t := range tokens {
		if t.End <= start || t.Start >= end {
			continue
		}
		s, e := t.Start, t.End
		if s < start {
			s = start
		}
		if e > end {
			e = end
		}
		out = append(out, Token{Text: t.Text, Start: s - start, End: e - start, Interval: t.Interval})
	}
	return out
}

// RuneLen returns the length of a unit's text in runes.
func RuneLen(u PhoneticUnit) int { return utf8.RuneCountInString(u.Text()) }

func deref(iv *AlignedInterval) (AlignedInterval, bool) {
	if iv == nil {
		return AlignedInterval{}, false
	}
	return *iv, true
}
