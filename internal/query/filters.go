package query

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/rcliao/speech-query/internal/ipa"
	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/phonex"
)

// Filter is one stage of a Pipeline. An inactive filter is skipped.
// Apply narrows units, or replaces them with finer units for the
// expanding stages.
type Filter interface {
	Name() string
	Active() bool
	Apply(rec *model.Record, units []model.PhoneticUnit) []model.PhoneticUnit
}

// SpeakerFilter rejects records whose speaker is not listed. Names compare
// case-insensitively.
type SpeakerFilter struct {
	Enabled  bool
	Speakers []string
}

func (f *SpeakerFilter) Name() string { return "speaker" }
func (f *SpeakerFilter) Active() bool { return f.Enabled }

func (f *SpeakerFilter) Apply(rec *model.Record, units []model.PhoneticUnit) []model.PhoneticUnit {
	for _, s := range f.Speakers {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(rec.Speaker)) {
			return units
		}
	}
	return nil
}

// IndexRange is an inclusive range of 1-based group numbers.
type IndexRange struct {
	From int
	To   int
}

func (r IndexRange) contains(n int) bool { return n >= r.From && n <= r.To }

// ParseRanges parses a list such as "1,3-5" into ranges. An open range
// such as "4-" runs to the last group.
func ParseRanges(s string) ([]IndexRange, error) {
	var out []IndexRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid group range %q", part)
		}
		to := from
		switch {
		case isRange && strings.TrimSpace(hi) == "":
			to = math.MaxInt
		case isRange:
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("invalid group range %q", part)
			}
		}
		if from < 1 || to < from {
			return nil, fmt.Errorf("invalid group range %q", part)
		}
		out = append(out, IndexRange{From: from, To: to})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty group range")
	}
	return out, nil
}

// GroupFilter keeps units of the listed groups.
type GroupFilter struct {
	Enabled bool
	Ranges  []IndexRange
}

func (f *GroupFilter) Name() string { return "group" }
func (f *GroupFilter) Active() bool { return f.Enabled && len(f.Ranges) > 0 }

func (f *GroupFilter) Apply(_ *model.Record, units []model.PhoneticUnit) []model.PhoneticUnit {
	var out []model.PhoneticUnit
	for _, u := range units {
		n := u.Group().Index + 1
		if slices.ContainsFunc(f.Ranges, func(r IndexRange) bool { return r.contains(n) }) {
			out = append(out, u)
		}
	}
	return out
}

// PatternFilter keeps units whose text contains Pattern, or matches it
// entirely when Exact is set. Aligned tests the other tier's text instead.
// Exclude inverts the test.
type PatternFilter struct {
	Label   string
	Enabled bool
	Pattern *phonex.Pattern
	Exact   bool
	Exclude bool
	Aligned bool
}

func (f *PatternFilter) Name() string { return f.Label }
func (f *PatternFilter) Active() bool { return f.Enabled && f.Pattern != nil }

func (f *PatternFilter) Apply(_ *model.Record, units []model.PhoneticUnit) []model.PhoneticUnit {
	var out []model.PhoneticUnit
	for _, u := range units {
		text := u.Text()
		if f.Aligned {
			text = u.AlignedText()
		}
		ok := f.Pattern.Contains(text)
		if f.Exact {
			ok = f.Pattern.MatchesAll(text)
		}
		if ok != f.Exclude {
			out = append(out, u)
		}
	}
	return out
}

// WordFilter turns group units into word units, optionally keeping only
// words at the listed positions in their group.
type WordFilter struct {
	Enabled   bool
	Positions []ipa.Position
}

func (f *WordFilter) Name() string { return "word" }
func (f *WordFilter) Active() bool { return f.Enabled }

func (f *WordFilter) Apply(_ *model.Record, units []model.PhoneticUnit) []model.PhoneticUnit {
	var out []model.PhoneticUnit
	for _, u := range units {
		if _, ok := u.(*model.GroupUnit); !ok {
			out = append(out, u)
			continue
		}
		g, tier := u.Group(), u.Tier()
		n := len(g.Transcript(tier).Words)
		for i, w := range g.Words()[:n] {
			if len(f.Positions) > 0 && !slices.Contains(f.Positions, ipa.PositionOf(i, n)) {
				continue
			}
			out = append(out, model.NewWordUnit(w, tier))
		}
	}
	return out
}

// SyllableFilter turns units into syllable units, optionally keeping only
// syllables with the listed word positions and stress levels.
type SyllableFilter struct {
	Enabled   bool
	Positions []ipa.Position
	Stress    []ipa.StressLevel
}

func (f *SyllableFilter) Name() string { return "syllable" }
func (f *SyllableFilter) Active() bool { return f.Enabled }

func (f *SyllableFilter) Apply(_ *model.Record, units []model.PhoneticUnit) []model.PhoneticUnit {
	var out []model.PhoneticUnit
	for _, u := range units {
		for _, s := range ipa.Syllabify(u.Text()) {
			if len(f.Positions) > 0 && !slices.Contains(f.Positions, s.Position) {
				continue
			}
			if len(f.Stress) > 0 && !slices.Contains(f.Stress, s.Stress) {
				continue
			}
			out = append(out, model.NewSyllableUnit(u, s))
		}
	}
	return out
}
