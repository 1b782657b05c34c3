package praat

import (
	"bytes"
	"context"
	"log"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/rcliao/speech-query/internal/query"
)

func TestParseTable(t *testing.T) {
	in := "time(s)\tintensity\tnformants\tF1(Hz)\tB1(Hz)\n" +
		"0.026\t0.002\t4\t512.3\t80.25\n" +
		"\n" +
		"0.036\t0.004\t3\t--undefined--\t--undefined--\r\n"

	s, err := parseTable(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parseTable: %v", err)
	}
	if !reflect.DeepEqual(s.Columns, []string{"intensity", "nformants", "F1(Hz)", "B1(Hz)"}) {
		t.Errorf("columns %v", s.Columns)
	}
	if len(s.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(s.Samples))
	}
	if s.Samples[0].Time != 0.026 || s.Samples[0].Values[2] != 512.3 || s.Samples[0].Values[3] != 80.25 {
		t.Errorf("first sample %+v", s.Samples[0])
	}
	if !math.IsNaN(s.Samples[1].Values[2]) || s.Samples[1].Values[1] != 3 {
		t.Errorf("undefined value should be NaN: %+v", s.Samples[1])
	}
}

func TestParseTable_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"header only time", "time\n0.1\n"},
		{"short row", "time\tF0\n0.1\n"},
		{"bad number", "time\tF0\n0.1\tabc\n"},
		{"undefined time", "time\tF0\n--undefined--\t100\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseTable(strings.NewReader(tt.in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestArgs(t *testing.T) {
	p := query.DefaultPitchParams()
	p.Method = query.CrossCorrelation
	p.VeryAccurate = true
	want := []string{"a.wav", "0", "75", "500", "cc", "1", "15", "0.03", "0.45", "0.01", "0.35", "0.14"}
	if got := pitchArgs("a.wav", p); !reflect.DeepEqual(got, want) {
		t.Errorf("pitchArgs = %v, want %v", got, want)
	}

	want = []string{"a.wav", "0", "4", "5500", "0.025", "50"}
	if got := formantArgs("a.wav", query.DefaultFormantParams()); !reflect.DeepEqual(got, want) {
		t.Errorf("formantArgs = %v, want %v", got, want)
	}

	want = []string{"a.wav", "100", "0", "1"}
	if got := intensityArgs("a.wav", query.DefaultIntensityParams()); !reflect.DeepEqual(got, want) {
		t.Errorf("intensityArgs = %v, want %v", got, want)
	}
}

func TestScriptsEmbedded(t *testing.T) {
	for _, name := range []string{"pitch.praat", "formant.praat", "intensity.praat"} {
		data, err := scripts.ReadFile("scripts/" + name)
		if err != nil || !bytes.HasPrefix(data, []byte("form ")) {
			t.Errorf("script %s missing or malformed: %v", name, err)
		}
	}
}

// fakePraat writes a script printing a fixed pitch table, and an error for
// any script but pitch.
func fakePraat(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a POSIX shell")
	}
	bin := filepath.Join(t.TempDir(), "praat")
	script := `#!/bin/sh
case "$2" in
*pitch.praat)
	printf 'time\tF0\n0.01\t--undefined--\n0.02\t201.5\n'
	;;
*)
	echo "Sound not readable" >&2
	exit 1
	;;
esac
`
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin
}

func TestEngine(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	e := NewEngine(fakePraat(t), log.New(&logs, "", 0))
	defer e.Close()
	w := query.Waveform{Path: "seg.wav", Start: 1, End: 2}

	s, err := e.Pitch(ctx, w, query.DefaultPitchParams())
	if err != nil {
		t.Fatalf("Pitch: %v", err)
	}
	if len(s.Samples) != 2 || !math.IsNaN(s.Samples[0].Values[0]) || s.Samples[1].Values[0] != 201.5 {
		t.Errorf("unexpected series %+v", s)
	}
	if s.Samples[1].Time != 0.02 {
		t.Errorf("engine times stay relative to the waveform, got %v", s.Samples[1].Time)
	}

	_, err = e.Intensity(ctx, w, query.DefaultIntensityParams())
	if err == nil || !strings.Contains(err.Error(), "Sound not readable") {
		t.Errorf("expected the praat error message, got %v", err)
	}
	if !strings.Contains(logs.String(), "praat: Sound not readable") {
		t.Errorf("stderr not logged: %q", logs.String())
	}

	dir := e.scriptDir
	if _, err := os.Stat(filepath.Join(dir, "pitch.praat")); err != nil {
		t.Errorf("script not written: %v", err)
	}
	e.Close()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("script dir not removed")
	}
}
