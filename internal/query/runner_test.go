package query

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/textgrid"
)

// tsaGrid aligns "tsa" so that "ts" resolves to [0.12, 0.20].
func tsaGrid() *textgrid.TextGrid {
	return phoneGrid(
		textgrid.Interval{XMin: 0, XMax: 0.12, Text: ""},
		textgrid.Interval{XMin: 0.12, XMax: 0.16, Text: "t"},
		textgrid.Interval{XMin: 0.16, XMax: 0.20, Text: "s"},
		textgrid.Interval{XMin: 0.20, XMax: 0.40, Text: "a"},
		textgrid.Interval{XMin: 0.40, XMax: 1, Text: ""},
	)
}

type harness struct {
	table  bytes.Buffer
	logs   bytes.Buffer
	qc     *QueryContext
	engine *fakeEngine
	runner *Runner
}

func newHarness(grids fakeAnnotations) *harness {
	h := &harness{engine: &fakeEngine{step: 0.01, value: 200}}
	h.qc = NewQueryContext(&h.table, log.New(&h.logs, "", 0))
	h.runner = &Runner{
		Annotations: grids,
		Extractor:   &Extractor{Audio: fakeAudio{}, Engine: h.engine},
	}
	return h
}

func pitchQuery(pattern string) *Query {
	return &Query{
		Kind:    model.PitchKind,
		Tier:    model.TargetTier,
		Pattern: mustPattern(pattern),
		Options: DefaultOptions(),
	}
}

func tableLines(buf *bytes.Buffer) []string {
	s := strings.TrimSuffix(buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestRun_PitchListingEndToEnd(t *testing.T) {
	h := newHarness(fakeAnnotations{"r1": tsaGrid()})
	rec := newRecord("r1", "CHI", "a.wav", model.NewGroup(0, "tsa", "sa"))

	sum, err := h.runner.Run(context.Background(), h.qc, pitchQuery("ts"), []*model.Record{rec})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := tableLines(&h.table)
	if len(lines) != 10 {
		t.Fatalf("expected header + 9 rows, got %d lines:\n%s", len(lines), h.table.String())
	}
	if lines[0] != `"record","group","ipa","Time(s)","F0(Hz)"` {
		t.Errorf("unexpected header %s", lines[0])
	}
	if lines[1] != `"1","1","ts","0.12","200"` {
		t.Errorf("unexpected first row %s", lines[1])
	}
	for i, l := range lines[2:] {
		if !strings.HasPrefix(l, `"","","ts",`) {
			t.Errorf("row %d repeats record/group: %s", i+2, l)
		}
	}
	if lines[9] != `"","","ts","0.2","200"` {
		t.Errorf("unexpected last row %s", lines[9])
	}

	results := h.qc.Results.Results()
	want := model.QueryResult{
		RecordID:    "r1",
		RecordIndex: 0,
		Schema:      "LINEAR",
		Tier:        "IPA Target",
		GroupIndex:  0,
		Range:       model.Range{Start: 0, End: 2},
		Value:       "ts",
	}
	if len(results) != 1 || results[0] != want {
		t.Errorf("unexpected results %+v", results)
	}
	if sum.Rows != 9 || sum.Results != 1 || sum.Matched != 1 || len(sum.Skipped) != 0 {
		t.Errorf("unexpected summary %+v", sum)
	}
}

func TestRun_NoMediaStillReportsMatches(t *testing.T) {
	h := newHarness(fakeAnnotations{})
	rec := newRecord("r1", "CHI", "", model.NewGroup(0, "tsa tsi", "sa si"))

	sum, err := h.runner.Run(context.Background(), h.qc, pitchQuery("ts"), []*model.Record{rec})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.table.Len() != 0 {
		t.Errorf("expected no rows, got %q", h.table.String())
	}
	if sum.Results != 2 || len(sum.Skipped) != 0 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if got := h.qc.Results.Results()[1].Range; got != (model.Range{Start: 4, End: 6}) {
		t.Errorf("second match range %+v", got)
	}
}

func TestRun_SpeakerRejectedRecordProducesNothing(t *testing.T) {
	h := newHarness(fakeAnnotations{"r1": tsaGrid()})
	rec := newRecord("r1", "MOT", "a.wav", model.NewGroup(0, "tsa", "sa"))
	q := pitchQuery("ts")
	q.Filters.Speaker = SpeakerFilter{Enabled: true, Speakers: []string{"CHI"}}

	sum, err := h.runner.Run(context.Background(), h.qc, q, []*model.Record{rec})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.table.Len() != 0 || sum.Results != 0 || h.engine.calls != 0 {
		t.Errorf("rejected record produced output: %+v, engine calls %d", sum, h.engine.calls)
	}
}

func TestRun_SkipsRecordsAndContinues(t *testing.T) {
	h := newHarness(fakeAnnotations{"ok": tsaGrid()})

	ambiguous := newRecord("amb", "CHI", "a.wav", model.NewGroup(0, "tsa", "sa"))
	ambiguous.Segments = append(ambiguous.Segments, model.Segment{StartMs: 1000, EndMs: 2000})
	noSegment := newRecord("noseg", "CHI", "a.wav", model.NewGroup(0, "tsa", "sa"))
	noSegment.Segments = nil
	noGrid := newRecord("nogrid", "CHI", "a.wav", model.NewGroup(0, "tsa", "sa"))
	broken := newRecord("broken", "CHI", "a.wav", model.NewGroup(0, "tsa", "sa"))
	ok := newRecord("ok", "CHI", "a.wav", model.NewGroup(0, "tsa", "sa"))

	records := []*model.Record{ambiguous, noSegment, noGrid, broken, ok}
	for i, rec := range records {
		rec.Index = 10 + i
	}
	sum, err := h.runner.Run(context.Background(), h.qc, pitchQuery("ts"), records)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantErrs := []error{ErrAmbiguousSegment, ErrMissingSegment, ErrMissingAnnotation, ErrMissingAnnotation}
	if len(sum.Skipped) != len(wantErrs) {
		t.Fatalf("expected %d skipped records, got %+v", len(wantErrs), sum.Skipped)
	}
	for i, want := range wantErrs {
		if !errors.Is(sum.Skipped[i], want) || sum.Skipped[i].RecordIndex != 10+i {
			t.Errorf("skip %d = %v, want %v", i, sum.Skipped[i], want)
		}
	}
	if sum.Results != 1 || sum.Rows != 9 {
		t.Errorf("only the last record should be listed: %+v", sum)
	}
	if r := h.qc.Results.Results()[0]; r.RecordIndex != 14 || r.RecordID != "ok" {
		t.Errorf("result from record %d (%s), want 14 (ok)", r.RecordIndex, r.RecordID)
	}
	if !strings.Contains(h.logs.String(), "record 11 skipped") {
		t.Errorf("skip not logged: %q", h.logs.String())
	}
}

func TestRun_SegmentOverrunningGridIsClamped(t *testing.T) {
	h := newHarness(fakeAnnotations{"r1": tsaGrid(), "r2": tsaGrid()})
	over := newRecord("r1", "CHI", "a.wav", model.NewGroup(0, "tsa", "sa"))
	over.Segments = []model.Segment{{StartMs: 0, EndMs: 1200}}
	outside := newRecord("r2", "CHI", "a.wav", model.NewGroup(0, "tsa", "sa"))
	outside.Index = 1
	outside.Segments = []model.Segment{{StartMs: 2000, EndMs: 3000}}

	sum, err := h.runner.Run(context.Background(), h.qc, pitchQuery("ts"), []*model.Record{over, outside})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Results != 1 || sum.Rows == 0 {
		t.Errorf("overrunning segment should still be listed: %+v", sum)
	}
	if !strings.Contains(h.logs.String(), "record 1: segment [0, 1.2] clamped to TextGrid [0, 1]") {
		t.Errorf("clamp not logged: %q", h.logs.String())
	}
	if len(sum.Skipped) != 1 || sum.Skipped[0].RecordIndex != 1 || !errors.Is(sum.Skipped[0], ErrMissingAnnotation) {
		t.Errorf("segment outside the grid should be skipped, got %+v", sum.Skipped)
	}
}

func TestRun_EngineFailureSkipsRecord(t *testing.T) {
	h := newHarness(fakeAnnotations{"r1": tsaGrid()})
	h.engine.err = errors.New("sound too short")
	rec := newRecord("r1", "CHI", "a.wav", model.NewGroup(0, "tsa", "sa"))

	sum, err := h.runner.Run(context.Background(), h.qc, pitchQuery("ts"), []*model.Record{rec})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sum.Skipped) != 1 || !errors.Is(sum.Skipped[0], ErrMeasurementUnavailable) {
		t.Errorf("expected a measurement skip, got %+v", sum.Skipped)
	}
	if sum.Results != 0 {
		t.Errorf("skipped record reported results")
	}
}

func TestRun_UnresolvedMatchIsStillReported(t *testing.T) {
	grid := phoneGrid(textgrid.Interval{XMin: 0, XMax: 1, Text: "x"})
	h := newHarness(fakeAnnotations{"r1": grid})
	rec := newRecord("r1", "CHI", "a.wav", model.NewGroup(0, "tsa", "sa"))

	sum, err := h.runner.Run(context.Background(), h.qc, pitchQuery("ts"), []*model.Record{rec})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Results != 1 || sum.Rows != 0 {
		t.Errorf("unexpected summary %+v", sum)
	}
}

func TestRun_SearchOnly(t *testing.T) {
	qc := NewQueryContext(&bytes.Buffer{}, nil)
	r := &Runner{}
	rec := &model.Record{Groups: []*model.Group{model.NewGroup(0, "ba", "pa"), model.NewGroup(1, "aba", "apa")}}
	q := &Query{Tier: model.ActualTier, Pattern: mustPattern(`\c`)}

	sum, err := r.Run(context.Background(), qc, q, []*model.Record{rec})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := qc.Results.Results()
	if sum.Results != 2 || got[1].GroupIndex != 1 || got[1].Tier != "IPA Actual" || got[1].Range.Start != 1 {
		t.Errorf("unexpected results %+v", got)
	}
}

func TestRun_CachesSeriesAndStopsOnCancel(t *testing.T) {
	h := newHarness(fakeAnnotations{"a": tsaGrid(), "b": tsaGrid()})
	a := newRecord("a", "CHI", "a.wav", model.NewGroup(0, "tsa", "sa"))
	b := newRecord("b", "CHI", "a.wav", model.NewGroup(0, "tsa", "sa"))

	if _, err := h.runner.Run(context.Background(), h.qc, pitchQuery("ts"), []*model.Record{a, b}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.engine.calls != 1 {
		t.Errorf("same media segment measured %d times", h.engine.calls)
	}
	if lines := tableLines(&h.table); len(lines) != 19 {
		t.Errorf("expected one header for the run, got %d lines", len(lines))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := h.runner.Run(ctx, h.qc, pitchQuery("ts"), []*model.Record{a})
	if !errors.Is(err, context.Canceled) || sum.Records != 0 {
		t.Errorf("expected cancellation before the first record, got %v %+v", err, sum)
	}
}

func TestRun_WordUnitOffsets(t *testing.T) {
	h := newHarness(fakeAnnotations{})
	rec := newRecord("r1", "CHI", "", model.NewGroup(0, "ba tsa", "ba sa"))
	q := pitchQuery("a")
	q.Filters.Word = WordFilter{Enabled: true}

	if _, err := h.runner.Run(context.Background(), h.qc, q, []*model.Record{rec}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := h.qc.Results.Results()
	if len(got) != 2 || got[1].Range != (model.Range{Start: 5, End: 6}) {
		t.Errorf("word match ranges should be relative to the group: %+v", got)
	}
}
