// Package export writes the reviewed table as a colour-coded QC log.
//
// Every data row gets two trailing columns (Review Status, Comments) and a
// background fill keyed by its verdict. The header row is left unfilled.
package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/ingest"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/verdict"

	"github.com/xuri/excelize/v2"
)

const (
	// SheetName is the worksheet holding the log.
	SheetName = "QC Log"

	ColReviewStatus = "Review Status"
	ColComments     = "Comments"

	// ContentType is the MIME type of the exported workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Fills maps each verdict to its row background colour.
var Fills = map[verdict.Quality]string{
	verdict.Correct:     "00FF00",
	verdict.Incorrect:   "FF0000",
	verdict.NotReviewed: "FFFF00",
	verdict.Pending:     "FFFFFF",
}

// FileName returns the download name for a locale, e.g. qc_log_prayagraj.xlsx.
func FileName(locale string) string {
	return fmt.Sprintf("qc_log_%s.xlsx", locale)
}

// Write encodes the workbook for records to w. Row order follows records.
// Records without a stored verdict are exported as Pending.
func Write(w io.Writer, columns []string, records []ingest.Record, store *verdict.Store) error {
	f, _, err := build(columns, records, store)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// Bytes returns the encoded workbook.
func Bytes(columns []string, records []ingest.Record, store *verdict.Store) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, columns, records, store); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// build lays out the sheet and returns it with the style ID used per quality.
func build(columns []string, records []ingest.Record, store *verdict.Store) (*excelize.File, map[verdict.Quality]int, error) {
	if store == nil {
		store = verdict.NewStore(nil)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("error creating sheet: %w", err)
	}

	styles := make(map[verdict.Quality]int, len(Fills))
	for q, color := range Fills {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{
				Type:    "pattern",
				Color:   []string{"#" + color},
				Pattern: 1,
			},
		})
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("error creating style: %w", err)
		}
		styles[q] = id
	}

	header := make([]interface{}, 0, len(columns)+2)
	for _, c := range columns {
		header = append(header, c)
	}
	header = append(header, ColReviewStatus, ColComments)
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("error writing header: %w", err)
	}

	width := len(header)
	lastCol, err := excelize.ColumnNumberToName(width)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	for i, r := range records {
		row := i + 2 // header is row 1
		v := store.Get(r.ID())

		values := make([]interface{}, 0, width)
		for c := range columns {
			cell := ""
			if c < len(r.Values) {
				cell = r.Values[c]
			}
			values = append(values, cell)
		}
		values = append(values, v.Quality.String(), v.Comment)

		start := fmt.Sprintf("A%d", row)
		if err := f.SetSheetRow(SheetName, start, &values); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("error writing row %d: %w", row, err)
		}

		style, ok := styles[v.Quality]
		if !ok {
			style = styles[verdict.Pending]
		}
		if err := f.SetCellStyle(SheetName, start, fmt.Sprintf("%s%d", lastCol, row), style); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("error styling row %d: %w", row, err)
		}
	}

	return f, styles, nil
}
