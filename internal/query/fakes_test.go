package query

import (
	"context"
	"errors"
	"math"

	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/phonex"
	"github.com/rcliao/speech-query/internal/textgrid"
)

func mustPattern(expr string) *phonex.Pattern {
	p, err := phonex.Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

type fakeAudio struct{}

func (fakeAudio) Locate(_ context.Context, rec *model.Record) (AudioHandle, error) {
	if rec.Media == "" {
		return AudioHandle{}, ErrNoMedia
	}
	return AudioHandle{Path: rec.Media, Fingerprint: "fp-" + rec.Media}, nil
}

func (fakeAudio) ExtractSegment(_ context.Context, h AudioHandle, start, end float64) (Waveform, error) {
	return Waveform{Path: h.Path, Start: start, End: end}, nil
}

// fakeEngine returns constant series sampled every step seconds from the
// start of the waveform to its end.
type fakeEngine struct {
	step  float64
	value float64
	err   error
	calls int
}

func (e *fakeEngine) series(w Waveform, cols []string) (*model.MeasurementSeries, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	s := &model.MeasurementSeries{Columns: cols}
	n := int(math.Round((w.End - w.Start) / e.step))
	for i := 0; i <= n; i++ {
		vals := make([]float64, len(cols))
		for j := range vals {
			vals[j] = e.value + float64(j)
		}
		s.Samples = append(s.Samples, model.Sample{Time: float64(i) * e.step, Values: vals})
	}
	return s, nil
}

func (e *fakeEngine) Formants(_ context.Context, w Waveform, _ FormantParams) (*model.MeasurementSeries, error) {
	return e.series(w, []string{"intensity", "nformants", "F1(Hz)", "B1(Hz)", "F2(Hz)", "B2(Hz)"})
}

func (e *fakeEngine) Pitch(_ context.Context, w Waveform, _ PitchParams) (*model.MeasurementSeries, error) {
	return e.series(w, []string{"F0"})
}

func (e *fakeEngine) Intensity(_ context.Context, w Waveform, _ IntensityParams) (*model.MeasurementSeries, error) {
	return e.series(w, []string{"Intensity(dB)"})
}

// fakeAnnotations serves TextGrids by record ID.
type fakeAnnotations map[string]*textgrid.TextGrid

func (f fakeAnnotations) LoadAnnotation(_ context.Context, rec *model.Record) (*textgrid.TextGrid, error) {
	if rec.ID == "broken" {
		return nil, errors.New("database is locked")
	}
	return f[rec.ID], nil
}

// phoneGrid builds a grid over [0, 1] with one target phone tier.
func phoneGrid(intervals ...textgrid.Interval) *textgrid.TextGrid {
	return &textgrid.TextGrid{XMin: 0, XMax: 1, Tiers: []*textgrid.Tier{{
		Name:      textgrid.TierName(model.TargetTier, textgrid.ClassPhone),
		Class:     textgrid.IntervalTierClass,
		XMin:      0,
		XMax:      1,
		Intervals: intervals,
	}}}
}

func newRecord(id, speaker, media string, groups ...*model.Group) *model.Record {
	return &model.Record{
		ID:       id,
		Speaker:  speaker,
		Media:    media,
		Segments: []model.Segment{{StartMs: 0, EndMs: 1000}},
		Groups:   groups,
	}
}
