package textgrid

import (
	"strings"

	"github.com/rcliao/speech-query/internal/ipa"
	"github.com/rcliao/speech-query/internal/model"
)

// Tier name suffixes. A TextGrid aligned with a record names its tiers
// "<record tier>: <classifier>", e.g. "IPA Target: Phone".
const (
	ClassTier  = "Tier"
	ClassWord  = "Word"
	ClassPhone = "Phone"
)

// TierName returns the TextGrid tier name for a record tier and classifier.
func TierName(t model.Tier, classifier string) string {
	return t.String() + ": " + classifier
}

// Annotate attaches the intervals of tg to the transcriptions of rec and
// returns the number of intervals attached. Labels are matched in order:
// each search starts after the previous match on the same tier.
func Annotate(tg *TextGrid, rec *model.Record) int {
	n := 0
	for _, t := range []model.Tier{model.TargetTier, model.ActualTier} {
		n += annotateGroups(tg, rec, t)
		n += annotatePhones(tg, rec, t)
		n += annotateWords(tg, rec, t)
	}
	return n
}

func annotateGroups(tg *TextGrid, rec *model.Record, t model.Tier) int {
	tier := tg.IntervalTier(TierName(t, ClassTier))
	if tier == nil {
		return 0
	}
	n, cursor := 0, 0
	for _, g := range rec.Groups {
		tr := g.Transcript(t)
		text := strings.TrimSpace(tr.Text)
		if text == "" {
			continue
		}
		idx := tier.find(text, cursor)
		if idx < 0 {
			continue
		}
		tr.Interval = tier.aligned(idx)
		cursor = idx + 1
		n++
	}
	return n
}

// annotatePhones stops at the first phone without a matching interval. A
// phone preceded by a stress marker may be labelled with the marker.
func annotatePhones(tg *TextGrid, rec *model.Record, t model.Tier) int {
	tier := tg.IntervalTier(TierName(t, ClassPhone))
	if tier == nil {
		return 0
	}
	n, cursor := 0, 0
	for _, g := range rec.Groups {
		tr := g.Transcript(t)
		runes := []rune(tr.Text)
		for i := range tr.Phones {
			ph := &tr.Phones[i]
			idx := -1
			if ph.Start > 0 && ipa.IsStress(runes[ph.Start-1]) {
				idx = tier.find(string(runes[ph.Start-1])+ph.Text, cursor)
			}
			if idx < 0 {
				idx = tier.find(ph.Text, cursor)
			}
			if idx < 0 {
				return n
			}
			ph.Interval = tier.aligned(idx)
			cursor = idx + 1
			n++
		}
	}
	return n
}

// annotateWords uses the word tier when there is one and otherwise infers
// each word's interval from its first and last phones.
func annotateWords(tg *TextGrid, rec *model.Record, t model.Tier) int {
	tier := tg.IntervalTier(TierName(t, ClassWord))
	n, cursor := 0, 0
	for _, g := range rec.Groups {
		tr := g.Transcript(t)
		for i := range tr.Words {
			w := &tr.Words[i]
			if tier == nil {
				if iv := inferInterval(w, tr.Phones); iv != nil {
					w.Interval = iv
					n++
				}
				continue
			}
			idx := tier.find(w.Text, cursor)
			if idx < 0 {
				continue
			}
			w.Interval = tier.aligned(idx)
			cursor = idx + 1
			n++
		}
	}
	return n
}

func inferInterval(w *model.Token, phones []model.Token) *model.AlignedInterval {
	var first, last *model.Token
	for i := range phones {
		p := &phones[i]
		if p.Start < w.Start || p.End > w.End {
			continue
		}
		if first == nil {
			first = p
		}
		last = p
	}
	if first == nil || first.Interval == nil || last.Interval == nil {
		return nil
	}
	return &model.AlignedInterval{Start: first.Interval.Start, End: last.Interval.End, Label: w.Text}
}

// find returns the index of the first interval at or after from whose
// trimmed label equals text, or -1.
func (t *Tier) find(text string, from int) int {
	for i := from; i < len(t.Intervals); i++ {
		if strings.TrimSpace(t.Intervals[i].Text) == text {
			return i
		}
	}
	return -1
}

func (t *Tier) aligned(i int) *model.AlignedInterval {
	iv := t.Intervals[i]
	return &model.AlignedInterval{Start: iv.XMin, End: iv.XMax, Label: iv.Text}
}
