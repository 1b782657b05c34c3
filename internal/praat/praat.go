// Package praat measures formants, pitch and intensity by running Praat
// scripts on extracted segments.
package praat

import (
	"bufio"
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/query"
)

// Undefined is how Praat prints a missing value.
const Undefined = "--undefined--"

//go:embed scripts/*.praat
var scripts embed.FS

// Engine is a query.SignalEngine running the praat executable.
type Engine struct {
	Bin string      // praat executable, "praat" when empty
	Log *log.Logger // receives Praat's stderr; discarded when nil

	mu        sync.Mutex
	scriptDir string
}

var _ query.SignalEngine = (*Engine)(nil)

// NewEngine returns an engine running bin.
func NewEngine(bin string, logger *log.Logger) *Engine {
	return &Engine{Bin: bin, Log: logger}
}

// Pitch lists F0 in Hz for every analysis frame of w.
func (e *Engine) Pitch(ctx context.Context, w query.Waveform, p query.PitchParams) (*model.MeasurementSeries, error) {
	return e.run(ctx, "pitch.praat", pitchArgs(w.Path, p))
}

// Formants lists the Burg formant table of w.
func (e *Engine) Formants(ctx context.Context, w query.Waveform, p query.FormantParams) (*model.MeasurementSeries, error) {
	return e.run(ctx, "formant.praat", formantArgs(w.Path, p))
}

// Intensity lists intensity in dB for every analysis frame of w.
func (e *Engine) Intensity(ctx context.Context, w query.Waveform, p query.IntensityParams) (*model.MeasurementSeries, error) {
	return e.run(ctx, "intensity.praat", intensityArgs(w.Path, p))
}

func pitchArgs(file string, p query.PitchParams) []string {
	return []string{
		file,
		num(p.TimeStep), num(p.RangeStart), num(p.RangeEnd),
		p.Method.String(),
		boolean(p.VeryAccurate),
		strconv.Itoa(p.MaxCandidates),
		num(p.SilenceThreshold), num(p.VoicingThreshold),
		num(p.OctaveCost), num(p.OctaveJumpCost), num(p.VoicedUnvoiced),
	}
}

func formantArgs(file string, p query.FormantParams) []string {
	return []string{
		file,
		num(p.TimeStep), num(p.MaxFormants), num(p.MaxFrequency),
		num(p.WindowLength), num(p.PreEmphasis),
	}
}

func intensityArgs(file string, p query.IntensityParams) []string {
	return []string{file, num(p.MinPitch), num(p.TimeStep), boolean(p.SubtractMean)}
}

func num(v float64) string { return decimal.NewFromFloat(v).String() }

func boolean(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (e *Engine) run(ctx context.Context, script string, args []string) (*model.MeasurementSeries, error) {
	path, err := e.script(script)
	if err != nil {
		return nil, err
	}
	bin := e.Bin
	if bin == "" {
		bin = "praat"
	}

	cmd := exec.CommandContext(ctx, bin, append([]string{"--run", path}, args...)...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("praat: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("praat: %w", err)
	}

	var lastErr string
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		m := scanner.Text()
		if strings.TrimSpace(m) != "" {
			lastErr = m
		}
		if e.Log != nil {
			e.Log.Println("praat:", m)
		}
	}
	if err := cmd.Wait(); err != nil {
		if lastErr != "" {
			return nil, fmt.Errorf("running %s: %w: %s", script, err, lastErr)
		}
		return nil, fmt.Errorf("running %s: %w", script, err)
	}

	series, err := parseTable(&stdout)
	if err != nil {
		return nil, fmt.Errorf("%s output: %w", script, err)
	}
	return series, nil
}

// script writes the embedded script once and returns its path.
func (e *Engine) script(name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scriptDir == "" {
		dir, err := os.MkdirTemp("", "speech-query-praat-*")
		if err != nil {
			return "", fmt.Errorf("create script dir: %w", err)
		}
		e.scriptDir = dir
	}
	path := filepath.Join(e.scriptDir, name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	data, err := scripts.ReadFile("scripts/" + name)
	if err != nil {
		return "", fmt.Errorf("load script: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}
	return path, nil
}

// Close removes the written scripts.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scriptDir == "" {
		return nil
	}
	dir := e.scriptDir
	e.scriptDir = ""
	return os.RemoveAll(dir)
}

// parseTable reads a tab-separated table whose first column is time in
// seconds. Undefined values become NaN.
func parseTable(r io.Reader) (*model.MeasurementSeries, error) {
	scanner := bufio.NewScanner(r)
	var columns []string
	series := &model.MeasurementSeries{}
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if columns == nil {
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: header has no value columns", line)
			}
			columns = fields
			for i := range columns {
				columns[i] = strings.TrimSpace(columns[i])
			}
			series.Columns = columns[1:]
			continue
		}
		if len(fields) != len(columns) {
			return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(fields), len(columns))
		}
		t, err := value(fields[0])
		if err != nil || math.IsNaN(t) {
			return nil, fmt.Errorf("line %d: bad time %q", line, fields[0])
		}
		s := model.Sample{Time: t, Values: make([]float64, len(fields)-1)}
		for i, f := range fields[1:] {
			if s.Values[i], err = value(f); err != nil {
				return nil, fmt.Errorf("line %d: column %s: %w", line, columns[i+1], err)
			}
		}
		series.Samples = append(series.Samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if columns == nil {
		return nil, fmt.Errorf("empty table")
	}
	return series, nil
}

func value(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == Undefined {
		return math.NaN(), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return d.InexactFloat64(), nil
}
