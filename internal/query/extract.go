package query

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/textgrid"
)

// AudioHandle identifies a record's audio.
type AudioHandle struct {
	Path        string
	Fingerprint string
}

// Waveform is a piece of audio ready for analysis. Start and End are its
// bounds in the source media, in seconds.
type Waveform struct {
	Path  string
	Start float64
	End   float64
}

// AudioSource finds and cuts record audio. Locate returns ErrNoMedia when a
// record has no audio.
type AudioSource interface {
	Locate(ctx context.Context, rec *model.Record) (AudioHandle, error)
	ExtractSegment(ctx context.Context, h AudioHandle, start, end float64) (Waveform, error)
}

// SignalEngine computes measurements over a waveform. Sample times are
// relative to the start of the waveform; formant and intensity columns are
// named by the engine, pitch values are in Hz.
type SignalEngine interface {
	Formants(ctx context.Context, w Waveform, p FormantParams) (*model.MeasurementSeries, error)
	Pitch(ctx context.Context, w Waveform, p PitchParams) (*model.MeasurementSeries, error)
	Intensity(ctx context.Context, w Waveform, p IntensityParams) (*model.MeasurementSeries, error)
}

// AnnotationStore loads the time-aligned annotation covering a record. It
// returns nil and no error when there is none.
type AnnotationStore interface {
	LoadAnnotation(ctx context.Context, rec *model.Record) (*textgrid.TextGrid, error)
}

// Options carries the analysis settings of every measurement kind.
type Options struct {
	Formant   FormantParams
	Pitch     PitchParams
	Intensity IntensityParams
}

// DefaultOptions returns the default settings of every kind.
func DefaultOptions() Options {
	return Options{
		Formant:   DefaultFormantParams(),
		Pitch:     DefaultPitchParams(),
		Intensity: DefaultIntensityParams(),
	}
}

// Extractor obtains measurement series for record segments.
type Extractor struct {
	Audio  AudioSource
	Engine SignalEngine
}

// RecordSegment returns the single span of rec.
func RecordSegment(rec *model.Record) (model.Segment, error) {
	switch len(rec.Segments) {
	case 0:
		return model.Segment{}, ErrMissingSegment
	case 1:
		seg := rec.Segments[0]
		if seg.EndMs <= seg.StartMs {
			return model.Segment{}, ErrMissingSegment
		}
		return seg, nil
	default:
		return model.Segment{}, ErrAmbiguousSegment
	}
}

// Extract measures kind over the segment of rec. Sample times in the
// returned series are media times. ErrNoMedia is returned as is; any audio
// or engine failure is reported as ErrMeasurementUnavailable.
func (x *Extractor) Extract(ctx context.Context, rec *model.Record, kind model.MeasurementKind, opts Options) (*model.MeasurementSeries, error) {
	seg, err := RecordSegment(rec)
	if err != nil {
		return nil, err
	}

	h, err := x.Audio.Locate(ctx, rec)
	if err != nil {
		if errors.Is(err, ErrNoMedia) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: locate audio: %v", ErrMeasurementUnavailable, err)
	}

	w, err := x.Audio.ExtractSegment(ctx, h, seg.Start(), seg.End())
	if err != nil {
		return nil, fmt.Errorf("%w: extract segment: %v", ErrMeasurementUnavailable, err)
	}

	var series *model.MeasurementSeries
	switch kind {
	case model.PitchKind:
		series, err = x.Engine.Pitch(ctx, w, opts.Pitch)
	case model.IntensityKind:
		series, err = x.Engine.Intensity(ctx, w, opts.Intensity)
	default:
		series, err = x.Engine.Formants(ctx, w, opts.Formant)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMeasurementUnavailable, kind, err)
	}
	if series == nil {
		return nil, fmt.Errorf("%w: %s: engine returned no data", ErrMeasurementUnavailable, kind)
	}

	series.Kind = kind
	series.Shift(w.Start)
	switch kind {
	case model.PitchKind:
		convertPitch(series, opts.Pitch.Unit)
	case model.FormantKind:
		selectFormantColumns(series, opts.Formant)
	}
	return series, nil
}

func convertPitch(s *model.MeasurementSeries, unit PitchUnit) {
	for i := range s.Samples {
		for j, v := range s.Samples[i].Values {
			s.Samples[i].Values[j] = unit.Convert(v)
		}
	}
	s.Columns = []string{"F0(" + unit.Text() + ")"}
}

var bandwidthColumn = regexp.MustCompile(`^B\d+\(`)

// selectFormantColumns drops the optional columns the settings exclude.
func selectFormantColumns(s *model.MeasurementSeries, p FormantParams) {
	var keep []int
	for i, c := range s.Columns {
		switch {
		case c == "intensity" && !p.IncludeIntensity,
			c == "nformants" && !p.IncludeNumFormants,
			bandwidthColumn.MatchString(c) && !p.IncludeBandwidths:
			continue
		}
		keep = append(keep, i)
	}
	if len(keep) == len(s.Columns) {
		return
	}
	cols := make([]string, len(keep))
	for i, k := range keep {
		cols[i] = s.Columns[k]
	}
	s.Columns = cols
	for i := range s.Samples {
		vals := make([]float64, len(keep))
		for j, k := range keep {
			if k < len(s.Samples[i].Values) {
				vals[j] = s.Samples[i].Values[k]
			}
		}
		s.Samples[i].Values = vals
	}
}
