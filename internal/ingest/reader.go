package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	qcerrors "github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/errors"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Reader turns an upload into a validated Table.
type Reader struct {
	Spreadsheet HeaderDetector // header strategy for .xlsx/.xls
	Delimited   HeaderDetector // header strategy for .csv and other text
	Required    []string       // columns that must be present

	logger *zap.Logger
}

// NewReader creates a reader whose spreadsheet strategy scans scanRows rows
// for the header keyword and whose strategies both fall back to fallbackRow.
func NewReader(scanRows, fallbackRow int, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		Spreadsheet: Chain{
			KeywordScan{Keyword: DefaultHeaderKeyword, MaxRows: scanRows},
			FixedRow{Row: fallbackRow},
		},
		Delimited: Chain{
			FirstRowUnlessPlaceholder{},
			FixedRow{Row: fallbackRow},
		},
		Required: RequiredColumns,
		logger:   logger,
	}
}

// IsSpreadsheet reports whether the filename names an Excel workbook.
func IsSpreadsheet(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls", ".xlsm":
		return true
	}
	return false
}

// Read parses src according to the filename's extension.
//
// Errors:
//   - *errors.IngestionError: unreadable or unparseable input
//   - *errors.ValidationError: required columns missing after normalization
//
// No table is returned on error.
func (r *Reader) Read(src io.Reader, filename string) (*Table, error) {
	var (
		rows     [][]string
		detector HeaderDetector
		err      error
	)

	if IsSpreadsheet(filename) {
		rows, err = readSpreadsheetRows(src)
		detector = r.Spreadsheet
	} else {
		rows, err = readDelimitedRows(src)
		detector = r.Delimited
	}
	if err != nil {
		return nil, err
	}

	headerRow, ok := detector.Detect(rows)
	if !ok {
		return nil, qcerrors.NewIngestionError(fmt.Sprintf("no header row found in %s", filename), nil)
	}
	if headerRow >= len(rows) {
		return nil, qcerrors.NewIngestionError(
			fmt.Sprintf("header row %d is beyond the %d rows of %s", headerRow, len(rows), filename), nil)
	}

	table := buildTable(rows, headerRow)
	r.logger.Debug("header row detected",
		zap.String("file", filename),
		zap.Int("row", headerRow),
		zap.Int("columns", len(table.Columns)))

	if missing := missingColumns(table, r.Required); len(missing) > 0 {
		return nil, qcerrors.NewValidationError(missing)
	}

	r.logger.Info("📥 Ingested upload",
		zap.String("file", filename),
		zap.Int("header_row", headerRow),
		zap.Int("records", table.Len()))
	return table, nil
}

// readSpreadsheetRows returns every row of the first sheet, uninterpreted.
func readSpreadsheetRows(src io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, qcerrors.NewIngestionError("cannot open spreadsheet", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, qcerrors.NewIngestionError("spreadsheet has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, qcerrors.NewIngestionError(fmt.Sprintf("cannot read sheet %q", sheets[0]), err)
	}
	return rows, nil
}

// readDelimitedRows returns every record of a CSV stream. Rows may differ in
// length; metadata lines above the header usually do.
func readDelimitedRows(src io.Reader) ([][]string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, qcerrors.NewIngestionError("cannot read upload", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, qcerrors.NewIngestionError("cannot parse delimited text", err)
	}
	if len(rows) == 0 {
		return nil, qcerrors.NewIngestionError("file is empty", nil)
	}
	return rows, nil
}

// buildTable turns rows below headerRow into records. Fully blank rows are
// dropped.
func buildTable(rows [][]string, headerRow int) *Table {
	body := rows[headerRow+1:]

	width := len(rows[headerRow])
	if w := bodyWidth(body); w > width {
		width = w
	}

	data := make([][]string, 0, len(body))
	for _, row := range body {
		if isBlank(row) {
			continue
		}
		data = append(data, row)
	}

	table := NewTable(normalizeColumns(rows[headerRow], width), data)
	table.HeaderRow = headerRow
	return table
}

// normalizeColumns trims names, names empty cells "Unnamed: <i>" and suffixes
// duplicates with ".1", ".2", ... so every column name is unique.
func normalizeColumns(header []string, width int) []string {
	cols := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		cols[i] = name
	}
	return cols
}

func missingColumns(t *Table, required []string) []string {
	var missing []string
	for _, c := range required {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	sort.Strings(missing)
	return missing
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
