package ingest

import "strings"

// DefaultHeaderKeyword marks the real header row of a portal export.
const DefaultHeaderKeyword = "complaint number"

// HeaderDetector locates the header row inside raw, uninterpreted rows.
//
// Detect returns the zero-based row index and true, or false when the strategy
// cannot decide. Strategies are combined with Chain so that a new export
// format only needs a new detector, not a change to the readers.
type HeaderDetector interface {
	Detect(rows [][]string) (int, bool)
}

// KeywordScan finds the first of the leading MaxRows rows that contains a
// cell equal to Keyword after trimming, compared case-insensitively.
type KeywordScan struct {
	Keyword string
	MaxRows int
}

func (k KeywordScan) Detect(rows [][]string) (int, bool) {
	limit := k.MaxRows
	if limit > len(rows) {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		for _, cell := range rows[i] {
			v := strings.TrimSpace(cell)
			if v != "" && strings.EqualFold(v, k.Keyword) {
				return i, true
			}
		}
	}
	return 0, false
}

// FixedRow always answers Row. It is the fallback for exports where the
// keyword cannot be found; callers must still validate the columns.
type FixedRow struct {
	Row int
}

func (f FixedRow) Detect(rows [][]string) (int, bool) {
	return f.Row, true
}

// FirstRowUnlessPlaceholder accepts row 0 as the header unless one of its
// cells would become an auto-generated "Unnamed" column, which signals that
// metadata rows sit above the real header. A row 0 narrower than the widest
// row below it counts too: the missing cells are named "Unnamed" when the
// header is widened.
type FirstRowUnlessPlaceholder struct{}

func (FirstRowUnlessPlaceholder) Detect(rows [][]string) (int, bool) {
	if len(rows) == 0 {
		return 0, false
	}
	for _, cell := range rows[0] {
		if isPlaceholder(cell) {
			return 0, false
		}
	}
	if len(rows[0]) < bodyWidth(rows[1:]) {
		return 0, false
	}
	return 0, true
}

// Chain tries each detector in order and returns the first answer.
type Chain []HeaderDetector

func (c Chain) Detect(rows [][]string) (int, bool) {
	for _, d := range c {
		if row, ok := d.Detect(rows); ok {
			return row, true
		}
	}
	return 0, false
}

// bodyWidth is the length of the longest non-blank row.
func bodyWidth(rows [][]string) int {
	width := 0
	for _, row := range rows {
		if len(row) > width && !isBlank(row) {
			width = len(row)
		}
	}
	return width
}

func isPlaceholder(cell string) bool {
	v := strings.TrimSpace(cell)
	return v == "" || strings.HasPrefix(strings.ToLower(v), "unnamed")
}
