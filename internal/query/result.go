package query

import (
	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/phonex"
)

// ResultAssembler collects one QueryResult per match.
type ResultAssembler struct {
	results []model.QueryResult
}

// Add records m, found in unit of rec. The range is relative to the unit's
// group transcription.
func (a *ResultAssembler) Add(rec *model.Record, unit model.PhoneticUnit, m phonex.Match) model.QueryResult {
	start := unit.Offset() + m.Offset
	r := model.QueryResult{
		RecordID:    rec.ID,
		RecordIndex: rec.Index,
		Schema:      model.SchemaLinear,
		Tier:        unit.Tier().String(),
		GroupIndex:  unit.Group().Index,
		Range:       model.Range{Start: start, End: start + m.Length},
		Value:       m.Text,
	}
	a.results = append(a.results, r)
	return r
}

// Results returns the results in the order they were added.
func (a *ResultAssembler) Results() []model.QueryResult { return a.results }

// Len returns the number of results.
func (a *ResultAssembler) Len() int { return len(a.results) }
