package model

import (
	"math"
	"testing"

	"github.com/rcliao/speech-query/internal/ipa"
)

func TestGroupWords(t *testing.T) {
	g := NewGroup(0, "ˈtsa pi", "tsa bi di")
	words := g.Words()
	if len(words) != 3 {
		t.Fatalf("expected 3 words, got %d", len(words))
	}
	if words[1].Text(TargetTier) != "pi" || words[1].Text(ActualTier) != "bi" {
		t.Errorf("unexpected word 1: %q / %q", words[1].Text(TargetTier), words[1].Text(ActualTier))
	}
	if words[2].Text(TargetTier) != "" {
		t.Errorf("target has no third word, got %q", words[2].Text(TargetTier))
	}
}

func TestGroupUnit_TokensFallBackToWords(t *testing.T) {
	g := NewGroup(0, "tsa pi", "tsa pi")
	u := NewGroupUnit(g, TargetTier)
	if got := len(u.Tokens()); got != 2 {
		t.Fatalf("expected word tokens without phone alignment, got %d", got)
	}

	g.Target.Phones[0].Interval = &AlignedInterval{Start: 0.1, End: 0.2, Label: "t"}
	if got := len(u.Tokens()); got != 5 {
		t.Fatalf("expected phone tokens once aligned, got %d", got)
	}
	if u.AlignedText() != "tsa pi" || u.Tier() != TargetTier || u.Offset() != 0 {
		t.Errorf("unexpected unit accessors")
	}
	if _, ok := u.Interval(); ok {
		t.Error("group has no interval yet")
	}
}

func TestWordUnit(t *testing.T) {
	g := NewGroup(2, "ba tsi", "ba si")
	g.Target.Words[1].Interval = &AlignedInterval{Start: 0.4, End: 0.7}
	for i := range g.Target.Phones {
		g.Target.Phones[i].Interval = &AlignedInterval{Start: float64(i) / 10, End: float64(i+1) / 10}
	}

	u := NewWordUnit(g.Words()[1], TargetTier)
	if u.Text() != "tsi" || u.AlignedText() != "si" {
		t.Fatalf("unexpected texts %q / %q", u.Text(), u.AlignedText())
	}
	if u.Offset() != 3 {
		t.Errorf("offset = %d, want 3", u.Offset())
	}
	iv, ok := u.Interval()
	if !ok || iv.Start != 0.4 || iv.End != 0.7 {
		t.Errorf("unexpected interval %+v %v", iv, ok)
	}
	toks := u.Tokens()
	if len(toks) != 3 {
		t.Fatalf("expected 3 phone tokens, got %d", len(toks))
	}
	if toks[0].Text != "t" || toks[0].Start != 0 || toks[2].End != 3 {
		t.Errorf("tokens not rebased: %+v", toks)
	}
}

func TestSyllableUnit(t *testing.T) {
	g := NewGroup(0, "bana", "bana")
	for i := range g.Target.Phones {
		g.Target.Phones[i].Interval = &AlignedInterval{Start: float64(i) / 10, End: float64(i+1) / 10}
	}
	parent := NewGroupUnit(g, TargetTier)
	sylls := ipa.Syllabify(parent.Text())
	if len(sylls) != 2 {
		t.Fatalf("expected 2 syllables, got %d", len(sylls))
	}
	u := NewSyllableUnit(parent, sylls[1])
	if u.Text() != "na" || u.Offset() != 2 {
		t.Errorf("unexpected syllable %q at %d", u.Text(), u.Offset())
	}
	if _, ok := u.Interval(); ok {
		t.Error("syllables carry no interval")
	}
	toks := u.Tokens()
	if len(toks) != 2 || toks[0].Start != 0 || toks[0].Interval.Start != 0.2 {
		t.Errorf("unexpected tokens %+v", toks)
	}
}

func TestSubTokens_Clips(t *testing.T) {
	toks := []Token{{Text: "ab", Start: 0, End: 2}, {Text: "cd", Start: 3, End: 5}}
	got := SubTokens(toks, 1, 4)
	if len(got) != 2 {
		t.Fatalf("expected 2 tokens, got %+v", got)
	}
	if got[0].Start != 0 || got[0].End != 1 || got[1].Start != 2 || got[1].End != 3 {
		t.Errorf("unexpected clipping %+v", got)
	}
}

func TestParseTierAndKind(t *testing.T) {
	if tier, err := ParseTier("IPA Actual"); err != nil || tier != ActualTier {
		t.Errorf("ParseTier: %v %v", tier, err)
	}
	if _, err := ParseTier("orthography"); err == nil {
		t.Error("expected error for unknown tier")
	}
	if k, err := ParseMeasurementKind("Formants"); err != nil || k != FormantKind {
		t.Errorf("ParseMeasurementKind: %v %v", k, err)
	}
	if _, err := ParseMeasurementKind("spectrum"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestSeriesShift(t *testing.T) {
	s := &MeasurementSeries{Samples: []Sample{{Time: 0}, {Time: 0.01}}}
	s.Shift(1.5)
	if s.Samples[0].Time != 1.5 || math.Abs(s.Samples[1].Time-1.51) > 1e-12 {
		t.Errorf("unexpected times %+v", s.Samples)
	}
}
