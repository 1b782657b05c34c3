package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/phonex"
	"github.com/rcliao/speech-query/internal/textgrid"
)

// Query is a validated search: the pattern to find on a tier, the filters
// choosing where to look, and the measurement listed for every match.
type Query struct {
	Kind    model.MeasurementKind
	Tier    model.Tier
	Pattern *phonex.Pattern
	Filters Filters
	Options Options
}

// Runner executes queries over records. Without an Extractor it only
// reports matches.
type Runner struct {
	Annotations AnnotationStore
	Extractor   *Extractor
}

// Summary counts what a run produced.
type Summary struct {
	Records int                   `json:"records"`
	Matched int                   `json:"matched"`
	Results int                   `json:"results"`
	Rows    int                   `json:"rows"`
	Skipped []*RecordSkippedError `json:"-"`
}

// Run searches records in order. A record that cannot be measured is
// logged and skipped; only cancellation, checked between records, or a
// failing table writer stop the run.
func (r *Runner) Run(ctx context.Context, qc *QueryContext, q *Query, records []*model.Record) (*Summary, error) {
	if q.Pattern == nil {
		return nil, fmt.Errorf("query has no pattern")
	}
	pipe := q.Filters.Pipeline(q.Tier)
	sum := &Summary{}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Records++
		before := qc.Results.Len()

		err := r.runRecord(ctx, qc, q, pipe, rec)
		var skipped *RecordSkippedError
		switch {
		case errors.As(err, &skipped):
			qc.Log.Print(skipped.Error())
			sum.Skipped = append(sum.Skipped, skipped)
		case err != nil:
			return sum, err
		}
		if qc.Results.Len() > before {
			sum.Matched++
		}
	}
	sum.Results = qc.Results.Len()
	sum.Rows = qc.Table.Rows()
	return sum, qc.Table.Flush()
}

func (r *Runner) runRecord(ctx context.Context, qc *QueryContext, q *Query, pipe *Pipeline, rec *model.Record) error {
	units := pipe.SelectUnits(rec)
	if len(units) == 0 {
		return nil
	}
	skip := func(err error) error { return &RecordSkippedError{RecordIndex: rec.Index, Err: err} }

	var series *model.MeasurementSeries
	var seg model.Segment
	if r.Extractor != nil {
		var err error
		if seg, err = RecordSegment(rec); err != nil {
			return skip(err)
		}
		series, err = r.measure(ctx, qc, q, rec, seg)
		switch {
		case errors.Is(err, ErrNoMedia):
			qc.debugf("record %d: no media, listing matches only", rec.Index+1)
		case err != nil:
			return skip(err)
		}
		if series != nil {
			if err := r.annotate(ctx, qc, rec, seg); err != nil {
				return skip(err)
			}
		}
	}

	for _, u := range units {
		for _, m := range q.Pattern.FindMatches(u.Text()) {
			if series != nil {
				if err := r.list(qc, rec.Index, u, m, seg, series); err != nil {
					return err
				}
			}
			qc.Results.Add(rec, u, m)
		}
	}
	return nil
}

func (r *Runner) annotate(ctx context.Context, qc *QueryContext, rec *model.Record, seg model.Segment) error {
	if r.Annotations == nil {
		return ErrMissingAnnotation
	}
	tg, err := r.Annotations.LoadAnnotation(ctx, rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingAnnotation, err)
	}
	if tg == nil {
		return ErrMissingAnnotation
	}
	part, err := tg.ExtractPart(seg.Start(), seg.End())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingAnnotation, err)
	}
	if !tg.Covers(seg.Start(), seg.End()) {
		qc.Log.Printf("record %d: segment [%g, %g] clamped to TextGrid [%g, %g]",
			rec.Index+1, seg.Start(), seg.End(), part.XMin, part.XMax)
	}
	textgrid.Annotate(part, rec)
	return nil
}

func (r *Runner) measure(ctx context.Context, qc *QueryContext, q *Query, rec *model.Record, seg model.Segment) (*model.MeasurementSeries, error) {
	key := SeriesKey(rec.Media, seg, q.Kind, q.Options)
	if s, ok := qc.cached(key); ok {
		return s, nil
	}
	s, err := r.Extractor.Extract(ctx, rec, q.Kind, q.Options)
	if err != nil {
		return nil, err
	}
	qc.remember(key, s)
	return s, nil
}

// list writes the measurement rows of one match. A match that cannot be
// placed in time produces no rows.
func (r *Runner) list(qc *QueryContext, index int, u model.PhoneticUnit, m phonex.Match, seg model.Segment, series *model.MeasurementSeries) error {
	iv, ok := Resolve(m, u, seg)
	if !ok {
		qc.debugf("record %d: no alignment for %q", index+1, m.Text)
		return nil
	}
	win := WindowSamples(series, iv)
	if _, err := qc.Table.WriteWindow(index, u.Group().Index, m.Text, series, win); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}
