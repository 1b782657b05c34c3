package query

import "github.com/rcliao/speech-query/internal/model"

// Filters holds every filter stage of a query. Stages left disabled pass
// units through unchanged.
type Filters struct {
	Speaker      SpeakerFilter
	Group        GroupFilter
	GroupPattern PatternFilter
	AlignedGroup PatternFilter
	Word         WordFilter
	WordPattern  PatternFilter
	AlignedWord  PatternFilter
	Syllable     SyllableFilter
}

// Pipeline returns the ordered stages for a search on tier. The word
// pattern stages only take part when words are searched.
func (f *Filters) Pipeline(tier model.Tier) *Pipeline {
	f.AlignedGroup.Aligned = true
	f.AlignedWord.Aligned = true

	stages := []Filter{&f.Speaker, &f.Group, &f.GroupPattern, &f.AlignedGroup, &f.Word}
	if f.Word.Active() {
		stages = append(stages, &f.WordPattern, &f.AlignedWord)
	}
	stages = append(stages, &f.Syllable)
	return &Pipeline{Tier: tier, Stages: stages}
}

// Pipeline selects the units of a record to search.
type Pipeline struct {
	Tier   model.Tier
	Stages []Filter
}

// SelectUnits starts from one unit per group and runs every active stage in
// order. It stops as soon as no unit is left.
func (p *Pipeline) SelectUnits(rec *model.Record) []model.PhoneticUnit {
	units := make([]model.PhoneticUnit, 0, len(rec.Groups))
	for _, g := range rec.Groups {
		units = append(units, model.NewGroupUnit(g, p.Tier))
	}
	if len(units) == 0 {
		return nil
	}
	for _, s := range p.Stages {
		if !s.Active() {
			continue
		}
		units = s.Apply(rec, units)
		if len(units) == 0 {
			return nil
		}
	}
	return units
}
