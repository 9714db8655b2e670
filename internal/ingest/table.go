// Package ingest loads complaint exports of unknown layout into a Table.
//
// Exports from the complaint portal carry a variable number of metadata rows
// (report title, date range, filters) above the real column header. The
// package locates that header with pluggable HeaderDetector strategies,
// normalizes the column names, and validates that every column the review
// workflow consumes is present.
package ingest

import "strings"

// Columns consumed by the review workflow. Every other column is carried
// through unchanged for export.
const (
	ColComplaintNumber      = "Complaint Number"
	ColZone                 = "Zone"
	ColWard                 = "Ward"
	ColSubtype              = "Complaint Sub type"
	ColAddress              = "Address"
	ColSurveyor             = "Surveyor Name"
	ColDescription          = "Complaint Description"
	ColUploadDocuments      = "Upload Documents"
	ColResolvedDocuments    = "Resolved Documents"
	ColRegistrationLocation = "Registration Location"
)

// RequiredColumns lists the columns an upload must contain.
var RequiredColumns = []string{
	ColComplaintNumber,
	ColZone,
	ColWard,
	ColSubtype,
	ColAddress,
	ColSurveyor,
	ColDescription,
	ColUploadDocuments,
	ColResolvedDocuments,
	ColRegistrationLocation,
}

// Table is an ingested export: normalized column names plus string rows.
// Every row has exactly len(Columns) cells.
type Table struct {
	Columns   []string
	Rows      []Record
	HeaderRow int // zero-based row of the source the header was read from

	index map[string]int
}

// Record is one complaint row. It shares the column index of its table.
type Record struct {
	Values []string

	index map[string]int
}

// NewTable builds a table from normalized columns and raw rows. Short rows are
// padded with empty cells and long rows are truncated to the header width.
func NewTable(columns []string, rows [][]string) *Table {
	t := &Table{
		Columns: columns,
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}

	t.Rows = make([]Record, 0, len(rows))
	for _, raw := range rows {
		values := make([]string, len(columns))
		copy(values, raw)
		t.Rows = append(t.Rows, Record{Values: values, index: t.index})
	}
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the table has a column with this exact name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Options returns the distinct non-empty values of a column in order of first
// appearance. These feed the Zone, Ward and Sub type pickers.
func (t *Table) Options(column string) []string {
	i, ok := t.index[column]
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Rows {
		v := r.Values[i]
		if strings.TrimSpace(v) == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Get returns the cell for a column, or "" when the column does not exist.
func (r Record) Get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.Values) {
		return ""
	}
	return r.Values[i]
}

// ID returns the complaint number identifying this record.
func (r Record) ID() string {
	return r.Get(ColComplaintNumber)
}
