// Package verdict holds reviewer judgments for complaint records.
//
// A Verdict is a quality state plus an optional disapproval reason. The Store
// keeps the in-memory mapping for one review session; durable persistence is
// delegated to a Repository (see package storage) and only happens on an
// explicit Flush.
package verdict

import (
	"encoding/json"
	"fmt"
)

// Quality is the reviewer's judgment of a record's before/after photos.
type Quality int

const (
	Pending Quality = iota
	NotReviewed
	Correct
	Incorrect
)

// Qualities lists every quality in display order.
var Qualities = []Quality{Pending, NotReviewed, Correct, Incorrect}

// Wire labels, shared by the durable file, the export and the API.
const (
	LabelPending     = "Status Yet to be Updated"
	LabelNotReviewed = "Not Reviewed(Incorrect Before/Poor Identification)"
	LabelCorrect     = "Correct"
	LabelIncorrect   = "Incorrect"
)

// Reasons is the fixed set of disapproval reasons, in picker order.
var Reasons = []string{
	"After Photo-Missing",
	"After Photo-Wrong/Blurry",
	"Incomplete Work/Work Not Started",
	"Image taken from wrong angle",
}

func (q Quality) String() string {
	switch q {
	case NotReviewed:
		return LabelNotReviewed
	case Correct:
		return LabelCorrect
	case Incorrect:
		return LabelIncorrect
	default:
		return LabelPending
	}
}

// ParseQuality maps a label (or the short enum name) to a Quality.
func ParseQuality(s string) (Quality, error) {
	switch s {
	case LabelPending, "Pending", "":
		return Pending, nil
	case LabelNotReviewed, "NotReviewed":
		return NotReviewed, nil
	case LabelCorrect:
		return Correct, nil
	case LabelIncorrect:
		return Incorrect, nil
	}
	return Pending, fmt.Errorf("unknown quality %q", s)
}

// MarshalJSON writes the wire label.
func (q Quality) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

// UnmarshalJSON reads a wire label. Unknown labels decode as Pending so a
// hand-edited file never poisons the whole store.
func (q *Quality) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*q, _ = ParseQuality(s)
	return nil
}

// Verdict is one record's review outcome. The JSON field names match the
// durable file format.
type Verdict struct {
	Quality Quality `json:"Quality"`
	Comment string  `json:"comment"`
}

// IsReason reports whether s is one of the fixed disapproval reasons.
func IsReason(s string) bool {
	for _, r := range Reasons {
		if r == s {
			return true
		}
	}
	return false
}

// Normalize enforces the comment invariant: only Incorrect carries a comment,
// and that comment is always one of Reasons (the first when unset).
func (v Verdict) Normalize() Verdict {
	if v.Quality != Incorrect {
		return Verdict{Quality: v.Quality}
	}
	if !IsReason(v.Comment) {
		v.Comment = Reasons[0]
	}
	return v
}
