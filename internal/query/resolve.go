package query

import (
	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/phonex"
)

// Resolve maps a match in unit to the time span it covers, clipped to the
// record segment. It reports false when no span can be determined.
//
// The unit's own interval is used when the match covers all of the unit's
// tokens or the unit has none. Otherwise the span runs from the first
// covered token to the last one. The first token must be aligned, and so
// must every token between the first and the last; an unaligned last token
// leaves the span at the first token.
func Resolve(m phonex.Match, unit model.PhoneticUnit, seg model.Segment) (model.ResolvedInterval, bool) {
	own, hasOwn := unit.Interval()
	tokens := unit.Tokens()

	var covered []model.Token
	for _, t := range tokens {
		if t.Start < m.End() && m.Offset < t.End {
			covered = append(covered, t)
		}
	}

	var res model.ResolvedInterval
	switch {
	case hasOwn && (len(tokens) == 0 || len(covered) == len(tokens)):
		res = model.ResolvedInterval{Start: own.Start, End: own.End}
	case len(covered) == 0:
		if !hasOwn {
			return model.ResolvedInterval{}, false
		}
		res = model.ResolvedInterval{Start: own.Start, End: own.End}
	default:
		first, last := covered[0], covered[len(covered)-1]
		if first.Interval == nil {
			return model.ResolvedInterval{}, false
		}
		for i := 1; i < len(covered)-1; i++ {
			if covered[i].Interval == nil {
				return model.ResolvedInterval{}, false
			}
		}
		res = model.ResolvedInterval{Start: first.Interval.Start, End: first.Interval.End}
		if len(covered) > 1 && last.Interval != nil {
			res.End = last.Interval.End
		}
	}

	res.Start = max(res.Start, seg.Start())
	res.End = min(res.End, seg.End())
	if res.End <= res.Start {
		return model.ResolvedInterval{}, false
	}
	return res, true
}
