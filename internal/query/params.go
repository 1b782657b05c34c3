package query

import (
	"fmt"
	"math"
	"strings"
)

// FormantParams are the Burg formant analysis settings.
type FormantParams struct {
	MaxFormants        float64 `yaml:"max_formants" json:"max_formants"`
	WindowLength       float64 `yaml:"window_length" json:"window_length"`
	MaxFrequency       float64 `yaml:"max_frequency" json:"max_frequency"`
	TimeStep           float64 `yaml:"time_step" json:"time_step"`
	PreEmphasis        float64 `yaml:"pre_emphasis" json:"pre_emphasis"`
	IncludeIntensity   bool    `yaml:"include_intensity" json:"include_intensity"`
	IncludeNumFormants bool    `yaml:"include_num_formants" json:"include_num_formants"`
	IncludeBandwidths  bool    `yaml:"include_bandwidths" json:"include_bandwidths"`
}

// DefaultFormantParams returns Praat's standard formant settings with every
// optional column listed.
func DefaultFormantParams() FormantParams {
	return FormantParams{
		MaxFormants:        4,
		WindowLength:       0.025,
		MaxFrequency:       5500,
		TimeStep:           0,
		PreEmphasis:        50,
		IncludeIntensity:   true,
		IncludeNumFormants: true,
		IncludeBandwidths:  true,
	}
}

// Validate checks the settings are usable by the engine.
func (p FormantParams) Validate() error {
	switch {
	case p.MaxFormants <= 0 || p.MaxFormants > 10:
		return fmt.Errorf("max_formants must be in (0, 10]")
	case p.WindowLength <= 0:
		return fmt.Errorf("window_length must be positive")
	case p.MaxFrequency <= 0:
		return fmt.Errorf("max_frequency must be positive")
	case p.TimeStep < 0:
		return fmt.Errorf("time_step must not be negative")
	case p.PreEmphasis < 0:
		return fmt.Errorf("pre_emphasis must not be negative")
	}
	return nil
}

// PitchUnit is the unit F0 values are listed in.
type PitchUnit int

const (
	Hertz PitchUnit = iota
	HertzLogarithmic
	Mel
	LogHertz
	Semitones1
	Semitones100
	Semitones200
	Semitones440
	ERB
)

var pitchUnitNames = []string{
	"HERTZ", "HERTZ_LOGARITHMIC", "MEL", "LOG_HERTZ",
	"SEMITONES_1", "SEMITONES_100", "SEMITONES_200", "SEMITONES_440", "ERB",
}

var pitchUnitTexts = []string{
	"Hz", "Hz", "mel", "log Hz",
	"st re 1 Hz", "st re 100 Hz", "st re 200 Hz", "st re 440 Hz", "ERB",
}

func (u PitchUnit) String() string {
	if int(u) < len(pitchUnitNames) {
		return pitchUnitNames[u]
	}
	return "UNKNOWN"
}

// Text is the short unit label used in the F0 column header.
func (u PitchUnit) Text() string {
	if int(u) < len(pitchUnitTexts) {
		return pitchUnitTexts[u]
	}
	return ""
}

// ParsePitchUnit parses a unit name such as "SEMITONES_100".
func ParsePitchUnit(s string) (PitchUnit, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range pitchUnitNames {
		if n == s {
			return PitchUnit(i), nil
		}
	}
	return 0, fmt.Errorf("unknown pitch unit %q", s)
}

func (u PitchUnit) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func (u *PitchUnit) UnmarshalText(b []byte) error {
	v, err := ParsePitchUnit(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// Convert converts a frequency in Hz to u. Undefined input stays NaN.
// Logarithmic Hertz is listed in Hz.
func (u PitchUnit) Convert(hz float64) float64 {
	if math.IsNaN(hz) || hz <= 0 {
		return math.NaN()
	}
	switch u {
	case Mel:
		return 550 * math.Log(1+hz/550)
	case LogHertz:
		return math.Log10(hz)
	case Semitones1:
		return 12 * math.Log2(hz)
	case Semitones100:
		return 12 * math.Log2(hz/100)
	case Semitones200:
		return 12 * math.Log2(hz/200)
	case Semitones440:
		return 12 * math.Log2(hz/440)
	case ERB:
		return 11.17*math.Log((hz+312)/(hz+14680)) + 43
	default:
		return hz
	}
}

// PitchMethod selects auto- or cross-correlation.
type PitchMethod int

const (
	AutoCorrelation PitchMethod = iota
	CrossCorrelation
)

func (m PitchMethod) String() string {
	if m == CrossCorrelation {
		return "cc"
	}
	return "ac"
}

// ParsePitchMethod accepts ac, cc or their long names.
func ParsePitchMethod(s string) (PitchMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ac", "auto", "auto-correlate", "autocorrelation":
		return AutoCorrelation, nil
	case "cc", "cross", "cross-correlate", "crosscorrelation":
		return CrossCorrelation, nil
	}
	return 0, fmt.Errorf("unknown pitch method %q (valid: ac, cc)", s)
}

func (m PitchMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *PitchMethod) UnmarshalText(b []byte) error {
	v, err := ParsePitchMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// PitchParams are the pitch analysis settings.
type PitchParams struct {
	TimeStep         float64     `yaml:"time_step" json:"time_step"`
	RangeStart       float64     `yaml:"range_start" json:"range_start"`
	RangeEnd         float64     `yaml:"range_end" json:"range_end"`
	Unit             PitchUnit   `yaml:"unit" json:"unit"`
	Method           PitchMethod `yaml:"method" json:"method"`
	VeryAccurate     bool        `yaml:"very_accurate" json:"very_accurate"`
	MaxCandidates    int         `yaml:"max_candidates" json:"max_candidates"`
	SilenceThreshold float64     `yaml:"silence_threshold" json:"silence_threshold"`
	VoicingThreshold float64     `yaml:"voicing_threshold" json:"voicing_threshold"`
	OctaveCost       float64     `yaml:"octave_cost" json:"octave_cost"`
	OctaveJumpCost   float64     `yaml:"octave_jump_cost" json:"octave_jump_cost"`
	VoicedUnvoiced   float64     `yaml:"voiced_unvoiced_cost" json:"voiced_unvoiced_cost"`
}

// DefaultPitchParams returns Praat's standard pitch settings.
func DefaultPitchParams() PitchParams {
	return PitchParams{
		TimeStep:         0,
		RangeStart:       75,
		RangeEnd:         500,
		Unit:             Hertz,
		Method:           AutoCorrelation,
		MaxCandidates:    15,
		SilenceThreshold: 0.03,
		VoicingThreshold: 0.45,
		OctaveCost:       0.01,
		OctaveJumpCost:   0.35,
		VoicedUnvoiced:   0.14,
	}
}

// Validate checks the settings are usable by the engine.
func (p PitchParams) Validate() error {
	switch {
	case p.TimeStep < 0:
		return fmt.Errorf("time_step must not be negative")
	case p.RangeStart <= 0:
		return fmt.Errorf("range_start must be positive")
	case p.RangeEnd <= p.RangeStart:
		return fmt.Errorf("range_end must be above range_start")
	case p.MaxCandidates < 2:
		return fmt.Errorf("max_candidates must be at least 2")
	case int(p.Unit) >= len(pitchUnitNames) || p.Unit < 0:
		return fmt.Errorf("unknown pitch unit")
	}
	return nil
}

// IntensityParams are the intensity analysis settings.
type IntensityParams struct {
	TimeStep     float64 `yaml:"time_step" json:"time_step"`
	MinPitch     float64 `yaml:"min_pitch" json:"min_pitch"`
	SubtractMean bool    `yaml:"subtract_mean" json:"subtract_mean"`
}

// DefaultIntensityParams returns Praat's standard intensity settings.
func DefaultIntensityParams() IntensityParams {
	return IntensityParams{TimeStep: 0, MinPitch: 100, SubtractMean: true}
}

// Validate checks the settings are usable by the engine.
func (p IntensityParams) Validate() error {
	switch {
	case p.TimeStep < 0:
		return fmt.Errorf("time_step must not be negative")
	case p.MinPitch <= 0:
		return fmt.Errorf("min_pitch must be positive")
	}
	return nil
}
