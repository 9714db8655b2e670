package review

import "github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/verdict"

// Counts maps each quality to the number of records in a view holding it.
type Counts map[verdict.Quality]int

// Summarize counts the verdicts of every record in view. Records without a
// stored verdict count as Pending.
func Summarize(view View, store *verdict.Store) Counts {
	counts := make(Counts, len(verdict.Qualities))
	for _, q := range verdict.Qualities {
		counts[q] = 0
	}
	for _, r := range view {
		q := verdict.Pending
		if store != nil {
			q = store.Get(r.ID()).Quality
		}
		counts[q]++
	}
	return counts
}

// Total is the number of records counted.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// QCDone is the number of records judged Correct or Incorrect.
func (c Counts) QCDone() int {
	return c[verdict.Correct] + c[verdict.Incorrect]
}

// QCStatusPercent is the share of judged records that are Correct.
func (c Counts) QCStatusPercent() float64 {
	return percent(c[verdict.Correct], c.QCDone())
}

// SampleSizePercent is the share of all records that have been judged.
func (c Counts) SampleSizePercent() float64 {
	return percent(c.QCDone(), c.Total())
}

func percent(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return 100 * float64(num) / float64(den)
}

// Report is the JSON form of Counts with its derived metrics.
type Report struct {
	Counts            map[string]int `json:"counts"`
	Total             int            `json:"total"`
	QCDone            int            `json:"qc_done"`
	QCStatusPercent   float64        `json:"qc_status_percent"`
	SampleSizePercent float64        `json:"sample_size_percent"`
}

// Report keys the counts by wire label.
func (c Counts) Report() Report {
	labels := make(map[string]int, len(verdict.Qualities))
	for _, q := range verdict.Qualities {
		labels[q.String()] = c[q]
	}
	return Report{
		Counts:            labels,
		Total:             c.Total(),
		QCDone:            c.QCDone(),
		QCStatusPercent:   c.QCStatusPercent(),
		SampleSizePercent: c.SampleSizePercent(),
	}
}
