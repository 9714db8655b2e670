// Package review derives what a reviewer sees from an ingested table.
//
// Flow:
//  1. Filter narrows the table to a View by Zone, Ward and Sub type
//  2. Paginate slices the View into fixed-size pages
//  3. Summarize counts verdicts over the View for progress reporting
//
// Session ties these together with a verdict.Store and the current page.
package review

import "github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/ingest"

// All is the picker value meaning "no constraint".
const All = "All"

// View is an ordered subset of a table's records. It shares the records'
// backing values with the table and must not be mutated.
type View []ingest.Record

// Filter holds the optional equality predicates. An empty or All value leaves
// that column unconstrained; set predicates compose with AND.
type Filter struct {
	Zone    string `json:"zone"`
	Ward    string `json:"ward"`
	Subtype string `json:"subtype"`
}

func isSet(v string) bool {
	return v != "" && v != All
}

// Apply returns the records of t matching every set predicate, in table order.
func (f Filter) Apply(t *ingest.Table) View {
	if t == nil {
		return View{}
	}

	view := make(View, 0, t.Len())
	for _, r := range t.Rows {
		if f.Match(r) {
			view = append(view, r)
		}
	}
	return view
}

// Match reports whether a single record passes the filter.
func (f Filter) Match(r ingest.Record) bool {
	if isSet(f.Zone) && r.Get(ingest.ColZone) != f.Zone {
		return false
	}
	if isSet(f.Ward) && r.Get(ingest.ColWard) != f.Ward {
		return false
	}
	if isSet(f.Subtype) && r.Get(ingest.ColSubtype) != f.Subtype {
		return false
	}
	return true
}

// IDs returns the complaint numbers of the view in order.
func (v View) IDs() []string {
	ids := make([]string, len(v))
	for i, r := range v {
		ids[i] = r.ID()
	}
	return ids
}
