package query

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"lukechampine.com/blake3"

	"github.com/rcliao/speech-query/internal/model"
)

// QueryContext holds the state of one query run: the log, the table and
// result sinks, and the measurement series computed so far.
type QueryContext struct {
	Log     *log.Logger
	Debug   bool
	Table   *TableFormatter
	Results *ResultAssembler

	series map[string]*model.MeasurementSeries
}

// NewQueryContext returns a context writing table rows to table. A nil
// logger discards log output.
func NewQueryContext(table io.Writer, logger *log.Logger) *QueryContext {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &QueryContext{
		Log:     logger,
		Table:   NewTableFormatter(table),
		Results: &ResultAssembler{},
		series:  make(map[string]*model.MeasurementSeries),
	}
}

func (qc *QueryContext) debugf(format string, args ...any) {
	if qc.Debug {
		qc.Log.Printf(format, args...)
	}
}

// SeriesKey identifies a measurement of one media segment with one set of
// analysis settings.
func SeriesKey(media string, seg model.Segment, kind model.MeasurementKind, opts Options) string {
	h := blake3.New(32, nil)
	fmt.Fprintf(h, "%s\x00%d\x00%d\x00%s\x00", media, seg.StartMs, seg.EndMs, kind)
	var params any
	switch kind {
	case model.PitchKind:
		params = opts.Pitch
	case model.IntensityKind:
		params = opts.Intensity
	default:
		params = opts.Formant
	}
	json.NewEncoder(h).Encode(params)
	return hex.EncodeToString(h.Sum(nil))
}

func (qc *QueryContext) cached(key string) (*model.MeasurementSeries, bool) {
	s, ok := qc.series[key]
	return s, ok
}

func (qc *QueryContext) remember(key string, s *model.MeasurementSeries) {
	qc.series[key] = s
}
