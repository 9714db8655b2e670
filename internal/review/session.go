package review

import (
	"fmt"

	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/ingest"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/verdict"
)

// Session is one reviewer's state: the ingested table, the verdict store,
// the active filter and the current page.
//
// Session is not safe for concurrent use; the HTTP adapter serializes access.
type Session struct {
	table    *ingest.Table
	store    *verdict.Store
	pageSize int

	filter Filter
	view   View
	page   int
}

// NewSession starts a session over the whole table on page 0.
func NewSession(table *ingest.Table, store *verdict.Store, pageSize int) *Session {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if store == nil {
		store = verdict.NewStore(nil)
	}
	s := &Session{table: table, store: store, pageSize: pageSize}
	s.view = s.filter.Apply(table)
	return s
}

// Table returns the ingested table.
func (s *Session) Table() *ingest.Table { return s.table }

// Store returns the session's verdict store.
func (s *Session) Store() *verdict.Store { return s.store }

// Filter returns the active filter.
func (s *Session) Filter() Filter { return s.filter }

// View returns the filtered records.
func (s *Session) View() View { return s.view }

// PageIndex returns the zero-based current page.
func (s *Session) PageIndex() int { return s.page }

// PageSize returns the number of records per page.
func (s *Session) PageSize() int { return s.pageSize }

// PageCount returns the number of pages in the current view.
func (s *Session) PageCount() int {
	return PageCount(len(s.view), s.pageSize)
}

// SetFilter recomputes the view. The page index resets to 0 when it no
// longer falls inside the new view.
func (s *Session) SetFilter(f Filter) {
	s.filter = f
	s.view = f.Apply(s.table)
	if s.page >= s.PageCount() {
		s.page = 0
	}
}

// Next moves forward one page; it does nothing on the last page.
func (s *Session) Next() {
	if s.page < s.PageCount()-1 {
		s.page++
	}
}

// Prev moves back one page; it does nothing on the first page.
func (s *Session) Prev() {
	if s.page > 0 {
		s.page--
	}
}

// Goto jumps to page n.
func (s *Session) Goto(n int) error {
	if n < 0 || n >= s.PageCount() {
		return fmt.Errorf("page %d out of range [0, %d)", n, s.PageCount())
	}
	s.page = n
	return nil
}

// Page returns the records on the current page. Displayed records get an
// explicit entry in the store, so a save records what the reviewer has seen.
func (s *Session) Page() View {
	page := Paginate(s.view, s.pageSize, s.page)
	for _, r := range page {
		s.store.Touch(r.ID())
	}
	return page
}

// SetVerdict records a verdict for a complaint. The reason is kept only for
// Incorrect.
func (s *Session) SetVerdict(id string, q verdict.Quality, reason string) verdict.Verdict {
	return s.store.Set(id, verdict.Verdict{Quality: q, Comment: reason})
}

// Summary counts verdicts over the current view.
func (s *Session) Summary() Counts {
	return Summarize(s.view, s.store)
}
