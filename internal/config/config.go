package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/speech-query/internal/ipa"
	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/phonex"
	"github.com/rcliao/speech-query/internal/query"
)

// ConfigurationError reports an invalid setting. It is fatal to a run and
// is raised before any record is read.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func invalid(field string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Err: err}
}

// PatternConfig configures a secondary pattern filter
type PatternConfig struct {
	Enabled bool   `yaml:"enabled"`
	Pattern string `yaml:"pattern"`
	Exact   bool   `yaml:"exact,omitempty"`
	Exclude bool   `yaml:"exclude,omitempty"`
}

// Config represents one query: what to search, where, and what to measure
type Config struct {
	Kind     string `yaml:"kind"`
	Tier     string `yaml:"tier"`
	Pattern  string `yaml:"pattern"`
	TextGrid string `yaml:"textgrid"`

	Filters struct {
		Speaker struct {
			Enabled  bool     `yaml:"enabled"`
			Speakers []string `yaml:"speakers"`
		} `yaml:"speaker"`
		Group struct {
			Enabled bool   `yaml:"enabled"`
			Ranges  string `yaml:"ranges"`
		} `yaml:"group"`
		GroupPattern PatternConfig `yaml:"group_pattern"`
		AlignedGroup PatternConfig `yaml:"aligned_group"`
		Word         struct {
			Enabled   bool     `yaml:"enabled"`
			Positions []string `yaml:"positions"`
		} `yaml:"word"`
		WordPattern PatternConfig `yaml:"word_pattern"`
		AlignedWord PatternConfig `yaml:"aligned_word"`
		Syllable    struct {
			Enabled   bool     `yaml:"enabled"`
			Positions []string `yaml:"positions"`
			Stress    []string `yaml:"stress"`
		} `yaml:"syllable"`
	} `yaml:"filters"`

	Formant   query.FormantParams   `yaml:"formant"`
	Pitch     query.PitchParams     `yaml:"pitch"`
	Intensity query.IntensityParams `yaml:"intensity"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Kind = model.PitchKind.String()
	cfg.Tier = "target"
	cfg.Filters.Group.Ranges = "1-"

	cfg.Formant = query.DefaultFormantParams()
	cfg.Pitch = query.DefaultPitchParams()
	cfg.Intensity = query.DefaultIntensityParams()
	return cfg
}

// Parse decodes YAML on top of the defaults
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, invalid("yaml", err)
	}
	return cfg, nil
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// LoadWithFallback loads the first configuration found.
// Priority: explicit path > ~/.speech-query/query.yaml > defaults
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}
	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(homeDir, ".speech-query", "query.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			return Load(userConfigPath)
		}
	}
	return DefaultConfig(), nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks every setting once.
func (c *Config) Validate() error {
	_, err := c.Build()
	return err
}

// Build turns the configuration into a query. Any invalid setting is
// returned as a *ConfigurationError.
func (c *Config) Build() (*query.Query, error) {
	q := &query.Query{
		Options: query.Options{Formant: c.Formant, Pitch: c.Pitch, Intensity: c.Intensity},
	}
	var err error

	if q.Kind, err = model.ParseMeasurementKind(c.Kind); err != nil {
		return nil, invalid("kind", err)
	}
	if q.Tier, err = model.ParseTier(c.Tier); err != nil {
		return nil, invalid("tier", err)
	}
	if q.Pattern, err = phonex.Compile(c.Pattern); err != nil {
		return nil, invalid("pattern", err)
	}

	if err := c.Formant.Validate(); err != nil {
		return nil, invalid("formant", err)
	}
	if err := c.Pitch.Validate(); err != nil {
		return nil, invalid("pitch", err)
	}
	if err := c.Intensity.Validate(); err != nil {
		return nil, invalid("intensity", err)
	}

	if err := c.buildFilters(&q.Filters); err != nil {
		return nil, err
	}
	return q, nil
}

func (c *Config) buildFilters(f *query.Filters) error {
	fc := &c.Filters

	f.Speaker = query.SpeakerFilter{Enabled: fc.Speaker.Enabled, Speakers: fc.Speaker.Speakers}
	if f.Speaker.Enabled && len(f.Speaker.Speakers) == 0 {
		return invalid("filters.speaker.speakers", errors.New("no speaker listed"))
	}

	if fc.Group.Enabled {
		ranges, err := query.ParseRanges(fc.Group.Ranges)
		if err != nil {
			return invalid("filters.group.ranges", err)
		}
		f.Group = query.GroupFilter{Enabled: true, Ranges: ranges}
	}

	patterns := []struct {
		field string
		in    PatternConfig
		out   *query.PatternFilter
	}{
		{"filters.group_pattern", fc.GroupPattern, &f.GroupPattern},
		{"filters.aligned_group", fc.AlignedGroup, &f.AlignedGroup},
		{"filters.word_pattern", fc.WordPattern, &f.WordPattern},
		{"filters.aligned_word", fc.AlignedWord, &f.AlignedWord},
	}
	for _, p := range patterns {
		pf, err := buildPattern(p.field, p.in)
		if err != nil {
			return err
		}
		*p.out = pf
	}

	positions, err := parsePositions(fc.Word.Positions)
	if err != nil {
		return invalid("filters.word.positions", err)
	}
	f.Word = query.WordFilter{Enabled: fc.Word.Enabled, Positions: positions}

	if positions, err = parsePositions(fc.Syllable.Positions); err != nil {
		return invalid("filters.syllable.positions", err)
	}
	var stress []ipa.StressLevel
	for _, s := range fc.Syllable.Stress {
		lvl, ok := ipa.ParseStress(s)
		if !ok {
			return invalid("filters.syllable.stress", fmt.Errorf("unknown stress %q (valid: primary, secondary, unstressed)", s))
		}
		stress = append(stress, lvl)
	}
	f.Syllable = query.SyllableFilter{Enabled: fc.Syllable.Enabled, Positions: positions, Stress: stress}
	return nil
}

func buildPattern(field string, in PatternConfig) (query.PatternFilter, error) {
	pf := query.PatternFilter{Label: field, Enabled: in.Enabled, Exact: in.Exact, Exclude: in.Exclude}
	if !in.Enabled {
		return pf, nil
	}
	p, err := phonex.Compile(in.Pattern)
	if err != nil {
		return pf, invalid(field+".pattern", err)
	}
	pf.Pattern = p
	return pf, nil
}

func parsePositions(names []string) ([]ipa.Position, error) {
	var out []ipa.Position
	for _, n := range names {
		p, ok := ipa.ParsePosition(n)
		if !ok {
			return nil, fmt.Errorf("unknown position %q (valid: singleton, initial, medial, final)", n)
		}
		out = append(out, p)
	}
	return out, nil
}
