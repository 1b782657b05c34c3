package query

import (
	"errors"
	"fmt"
)

// Reasons a record is skipped. They are reported wrapped in a
// *RecordSkippedError and never stop the run.
var (
	ErrMissingSegment         = errors.New("record has no segment")
	ErrAmbiguousSegment       = errors.New("record segment spans more than one interval")
	ErrMissingAnnotation      = errors.New("no annotation for record")
	ErrMeasurementUnavailable = errors.New("measurement unavailable")
)

// ErrNoMedia is returned by an AudioSource that finds no media for a record.
// Matches are still reported for such records.
var ErrNoMedia = errors.New("no media for record")

// RecordSkippedError reports a record that contributed nothing to a run.
// RecordIndex is the record's index in its session.
type RecordSkippedError struct {
	RecordIndex int
	Err         error
}

func (e *RecordSkippedError) Error() string {
	return fmt.Sprintf("record %d skipped: %v", e.RecordIndex+1, e.Err)
}

func (e *RecordSkippedError) Unwrap() error { return e.Err }
