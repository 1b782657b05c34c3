// Package textgrid reads Praat TextGrids and attaches their intervals to
// record transcriptions.
package textgrid

import (
	"fmt"
	"io"
	"strings"
)

// Tier classes as written in the TextGrid file.
const (
	IntervalTierClass = "IntervalTier"
	PointTierClass    = "TextTier"
)

// TextGrid is a time-aligned annotation of a span of audio.
type TextGrid struct {
	XMin  float64 `json:"xmin"`
	XMax  float64 `json:"xmax"`
	Tiers []*Tier `json:"tiers"`
}

// Tier is an interval tier or a point tier.
type Tier struct {
	Name      string     `json:"name"`
	Class     string     `json:"class"`
	XMin      float64    `json:"xmin"`
	XMax      float64    `json:"xmax"`
	Intervals []Interval `json:"intervals,omitempty"`
	Points    []Point    `json:"points,omitempty"`
}

// Interval is a labelled time range.
type Interval struct {
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
	Text string  `json:"text"`
}

// Point is a labelled instant.
type Point struct {
	Time float64 `json:"time"`
	Mark string  `json:"mark"`
}

// IsInterval reports whether t is an interval tier.
func (t *Tier) IsInterval() bool { return t.Class == IntervalTierClass }

// IntervalTier returns the interval tier with the given name, or nil.
func (tg *TextGrid) IntervalTier(name string) *Tier {
	for _, t := range tg.Tiers {
		if t.IsInterval() && t.Name == name {
			return t
		}
	}
	return nil
}

// ExtractPart returns the part of tg between start and end. Times are kept
// as they are in the full grid; intervals crossing the boundaries are
// clipped and intervals outside them are dropped. A range overrunning the
// grid is clamped to it; a range that does not overlap it is an error.
func (tg *TextGrid) ExtractPart(start, end float64) (*TextGrid, error) {
	if end <= start {
		return nil, fmt.Errorf("extract part: empty range [%g, %g]", start, end)
	}
	if end <= tg.XMin || start >= tg.XMax {
		return nil, fmt.Errorf("extract part: [%g, %g] outside [%g, %g]", start, end, tg.XMin, tg.XMax)
	}
	start, end = max(start, tg.XMin), min(end, tg.XMax)

	part := &TextGrid{XMin: start, XMax: end}
	for _, t := range tg.Tiers {
		nt := &Tier{Name: t.Name, Class: t.Class, XMin: start, XMax: end}
		for _, iv := range t.Intervals {
			if iv.XMax <= start || iv.XMin >= end {
				continue
			}
			nt.Intervals = append(nt.Intervals, Interval{
				XMin: max(iv.XMin, start),
				XMax: min(iv.XMax, end),
				Text: iv.Text,
			})
		}
		for _, p := range t.Points {
			if p.Time >= start && p.Time <= end {
				nt.Points = append(nt.Points, p)
			}
		}
		part.Tiers = append(part.Tiers, nt)
	}
	return part, nil
}

// Covers reports whether [start, end] lies within the grid, allowing for
// rounding of the stored times.
func (tg *TextGrid) Covers(start, end float64) bool {
	const eps = 1e-9
	return start >= tg.XMin-eps && end <= tg.XMax+eps
}

// Write encodes tg in the long text format.
func Write(w io.Writer, tg *TextGrid) error {
	var b strings.Builder
	b.WriteString("File type = \"ooTextFile\"\nObject class = \"TextGrid\"\n\n")
	fmt.Fprintf(&b, "xmin = %s\nxmax = %s\n", num(tg.XMin), num(tg.XMax))
	if len(tg.Tiers) == 0 {
		b.WriteString("tiers? <absent>\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	fmt.Fprintf(&b, "tiers? <exists>\nsize = %d\nitem []:\n", len(tg.Tiers))
	for i, t := range tg.Tiers {
		fmt.Fprintf(&b, "    item [%d]:\n", i+1)
		fmt.Fprintf(&b, "        class = %s\n", quote(t.Class))
		fmt.Fprintf(&b, "        name = %s\n", quote(t.Name))
		fmt.Fprintf(&b, "        xmin = %s\n        xmax = %s\n", num(t.XMin), num(t.XMax))
		if t.IsInterval() {
			fmt.Fprintf(&b, "        intervals: size = %d\n", len(t.Intervals))
			for j, iv := range t.Intervals {
				fmt.Fprintf(&b, "        intervals [%d]:\n", j+1)
				fmt.Fprintf(&b, "            xmin = %s\n            xmax = %s\n", num(iv.XMin), num(iv.XMax))
				fmt.Fprintf(&b, "            text = %s\n", quote(iv.Text))
			}
			continue
		}
		fmt.Fprintf(&b, "        points: size = %d\n", len(t.Points))
		for j, p := range t.Points {
			fmt.Fprintf(&b, "        points [%d]:\n", j+1)
			fmt.Fprintf(&b, "            number = %s\n", num(p.Time))
			fmt.Fprintf(&b, "            mark = %s\n", quote(p.Mark))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func num(v float64) string { return fmt.Sprintf("%g", v) }

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
