package query

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rcliao/speech-query/internal/model"
)

// Undefined is printed for samples without a value.
const Undefined = "--undefined--"

// TableFormatter writes measurement rows as comma-separated, double-quoted
// fields. The header is written once, before the first row of the run.
type TableFormatter struct {
	w          *bufio.Writer
	header     bool
	rows       int
	timeColumn string
}

// NewTableFormatter returns a formatter writing to w.
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{w: bufio.NewWriter(w), timeColumn: "Time(s)"}
}

// Rows returns the number of data rows written so far.
func (t *TableFormatter) Rows() int { return t.rows }

// WriteWindow writes one row per sample of win. Record and group numbers
// are printed 1-based on the first row only.
func (t *TableFormatter) WriteWindow(recordIndex, groupIndex int, text string, series *model.MeasurementSeries, win model.Window) (int, error) {
	n := win.Len()
	if n == 0 {
		return 0, nil
	}
	if !t.header {
		fields := append([]string{"record", "group", "ipa", t.timeColumn}, series.Columns...)
		t.writeRow(fields)
		t.header = true
	}

	for i := win.Lo; i <= win.Hi; i++ {
		s := series.Samples[i]
		fields := make([]string, 0, 4+len(s.Values))
		if i == win.Lo {
			fields = append(fields, strconv.Itoa(recordIndex+1), strconv.Itoa(groupIndex+1))
		} else {
			fields = append(fields, "", "")
		}
		fields = append(fields, text, FormatNumber(s.Time))
		for _, v := range s.Values {
			fields = append(fields, FormatNumber(v))
		}
		t.writeRow(fields)
	}
	t.rows += n
	return n, t.w.Flush()
}

// Flush writes any buffered output.
func (t *TableFormatter) Flush() error { return t.w.Flush() }

func (t *TableFormatter) writeRow(fields []string) {
	for i, f := range fields {
		if i > 0 {
			t.w.WriteByte(',')
		}
		t.w.WriteByte('"')
		t.w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		t.w.WriteByte('"')
	}
	t.w.WriteByte('\n')
}

// FormatNumber prints v with at most six fraction digits and no trailing
// zeros.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined
	}
	return decimal.NewFromFloat(v).Round(6).String()
}
