package model

import (
	"fmt"
	"strings"
)

// MeasurementKind selects the acoustic measurement listed for each match.
type MeasurementKind int

const (
	FormantKind MeasurementKind = iota
	PitchKind
	IntensityKind
)

func (k MeasurementKind) String() string {
	switch k {
	case PitchKind:
		return "pitch"
	case IntensityKind:
		return "intensity"
	default:
		return "formant"
	}
}

// ParseMeasurementKind accepts formant(s), pitch or intensity.
func ParseMeasurementKind(s string) (MeasurementKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "formant", "formants":
		return FormantKind, nil
	case "pitch", "f0":
		return PitchKind, nil
	case "intensity":
		return IntensityKind, nil
	}
	return 0, fmt.Errorf("unknown measurement kind %q (valid: formant, pitch, intensity)", s)
}

// Sample is one analysis frame. Values line up with the series columns; an
// undefined value is NaN.
type Sample struct {
	Time   float64   `json:"time"`
	Values []float64 `json:"values"`
}

// MeasurementSeries is a measurement over a record segment, sampled at
// monotonically increasing times.
type MeasurementSeries struct {
	Kind    MeasurementKind `json:"kind"`
	Columns []string        `json:"columns"`
	Samples []Sample        `json:"samples"`
}

// Shift moves every sample by offset seconds.
func (s *MeasurementSeries) Shift(offset float64) {
	for i := range s.Samples {
		s.Samples[i].Time += offset
	}
}

// Column returns the index of the named column, or -1.
func (s *MeasurementSeries) Column(name string) int {
	for i, c := range s.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Len returns the number of samples.
func (s *MeasurementSeries) Len() int { return len(s.Samples) }
