package query

import (
	"sort"

	"github.com/rcliao/speech-query/internal/model"
)

// timeTolerance absorbs rounding in engine sample times.
const timeTolerance = 1e-9

// WindowSamples returns the inclusive range of samples whose times fall
// inside iv. The window is empty when iv starts after the last sample or
// no sample lies inside it.
func WindowSamples(series *model.MeasurementSeries, iv model.ResolvedInterval) model.Window {
	s := series.Samples
	lo := sort.Search(len(s), func(i int) bool { return s[i].Time >= iv.Start-timeTolerance })
	hi := sort.Search(len(s), func(i int) bool { return s[i].Time > iv.End+timeTolerance }) - 1
	if lo >= len(s) {
		return model.Window{Lo: len(s), Hi: len(s) - 1}
	}
	return model.Window{Lo: lo, Hi: hi}
}
