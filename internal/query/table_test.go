package query

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/rcliao/speech-query/internal/model"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.12, "0.12"},
		{1.0 / 3.0, "0.333333"},
		{2.0000004, "2"},
		{5500, "5500"},
		{-12.5, "-12.5"},
		{math.NaN(), Undefined},
		{math.Inf(1), Undefined},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTableFormatter_HeaderOnceAndGrouping(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTableFormatter(&buf)
	series := &model.MeasurementSeries{
		Columns: []string{"F0(Hz)"},
		Samples: []model.Sample{
			{Time: 0.1, Values: []float64{200}},
			{Time: 0.2, Values: []float64{math.NaN()}},
			{Time: 0.3, Values: []float64{210.1234567}},
		},
	}

	if n, err := tf.WriteWindow(0, 0, "ts", series, model.Window{Lo: 1, Hi: 0}); err != nil || n != 0 {
		t.Fatalf("empty window wrote %d rows: %v", n, err)
	}
	if buf.Len() != 0 {
		t.Fatalf("header written before any row: %q", buf.String())
	}

	if _, err := tf.WriteWindow(2, 0, `t"s`, series, model.Window{Lo: 0, Hi: 2}); err != nil {
		t.Fatalf("WriteWindow: %v", err)
	}
	if _, err := tf.WriteWindow(3, 1, "a", series, model.Window{Lo: 2, Hi: 2}); err != nil {
		t.Fatalf("WriteWindow: %v", err)
	}

	want := strings.Join([]string{
		`"record","group","ipa","Time(s)","F0(Hz)"`,
		`"3","1","t""s","0.1","200"`,
		`"","","t""s","0.2","--undefined--"`,
		`"","","t""s","0.3","210.123457"`,
		`"4","2","a","0.3","210.123457"`,
	}, "\n") + "\n"
	if buf.String() != want {
		t.Errorf("table mismatch\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
	if tf.Rows() != 4 {
		t.Errorf("Rows() = %d, want 4", tf.Rows())
	}
}
