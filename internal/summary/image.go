// Package summary renders QC progress reports as PNG images for Telegram.
package summary

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/ingest"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/review"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/verdict"
)

// Row holds the fields displayed for one reviewed complaint.
type Row struct {
	ComplaintNumber string
	Zone            string
	Ward            string
	Subtype         string
	Surveyor        string
	Quality         verdict.Quality
	Comment         string
}

// Table styling, rendered at 2x scale for Telegram clarity
const (
	cellPaddingX  = 20
	cellPaddingY  = 16
	minRowHeight  = 76
	headerHeight  = 88
	fontSize      = 26
	headerFontSz  = 26
	titleFontSz   = 40
	footerFontSz  = 24
	titlePadding  = 110
	footerPadding = 120
	minColWidth   = 110
	maxStatusW    = 320.0
	maxCommentW   = 360.0
)

var (
	bgColor         = color.RGBA{R: 245, G: 247, B: 250, A: 255}
	titleColor      = color.RGBA{R: 30, G: 41, B: 59, A: 255}
	headerBgColor   = color.RGBA{R: 37, G: 99, B: 235, A: 255}
	headerTextColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	rowEvenColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	rowOddColor     = color.RGBA{R: 241, G: 245, B: 249, A: 255}
	textColor       = color.RGBA{R: 30, G: 41, B: 59, A: 255}
	borderColor     = color.RGBA{R: 203, G: 213, B: 225, A: 255}
	footerColor     = color.RGBA{R: 100, G: 116, B: 139, A: 255}
)

// statusColors tint the status cell the same way the export fills rows.
var statusColors = map[verdict.Quality]color.RGBA{
	verdict.Correct:     {R: 134, G: 239, B: 172, A: 255},
	verdict.Incorrect:   {R: 252, G: 165, B: 165, A: 255},
	verdict.NotReviewed: {R: 253, G: 230, B: 138, A: 255},
}

type column struct {
	header   string
	field    func(r *Row) string
	maxWidth float64 // 0 means auto
}

var columns = []column{
	{"Complaint No.", func(r *Row) string { return r.ComplaintNumber }, 0},
	{"Zone", func(r *Row) string { return r.Zone }, 0},
	{"Ward", func(r *Row) string { return r.Ward }, 0},
	{"Sub Type", func(r *Row) string { return r.Subtype }, 0},
	{"Surveyor", func(r *Row) string { return r.Surveyor }, 0},
	{"Status", func(r *Row) string { return r.Quality.String() }, maxStatusW},
	{"Comment", func(r *Row) string { return r.Comment }, maxCommentW},
}

const statusColumn = 5

// findFont locates a system font file across Linux and Windows paths.
// It returns "" when none is installed.
func findFont(bold bool) string {
	var candidates []string
	if runtime.GOOS == "windows" {
		winRoot := os.Getenv("WINDIR")
		if winRoot == "" {
			winRoot = `C:\Windows`
		}
		if bold {
			candidates = []string{winRoot + `\Fonts\arialbd.ttf`, winRoot + `\Fonts\Arial Bold.ttf`}
		} else {
			candidates = []string{winRoot + `\Fonts\arial.ttf`, winRoot + `\Fonts\Arial.ttf`}
		}
	} else {
		if bold {
			candidates = []string{
				"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
				"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
			}
		} else {
			candidates = []string{
				"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
				"/usr/share/fonts/TTF/DejaVuSans.ttf",
			}
		}
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadFace prefers a system font and falls back to the Go fonts compiled
// into the binary, so rendering works in minimal containers.
func loadFace(bold bool, size float64) (font.Face, error) {
	if path := findFont(bold); path != "" {
		if face, err := gg.LoadFontFace(path, size); err == nil {
			return face, nil
		}
	}

	ttf := goregular.TTF
	if bold {
		ttf = gobold.TTF
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}

// wrapText splits text into lines that fit within maxWidth.
func wrapText(dc *gg.Context, text string, maxWidth float64) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))

	if maxWidth <= 0 {
		return []string{text}
	}
	if w, _ := dc.MeasureString(text); w <= maxWidth {
		return []string{text}
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if tw, _ := dc.MeasureString(candidate); tw > maxWidth {
			lines = append(lines, current)
			current = word
		} else {
			current = candidate
		}
	}
	return append(lines, current)
}

// RenderReport draws the rows as a table under title, with the QC metrics
// from counts in the footer, and returns PNG bytes.
func RenderReport(title string, rows []Row, counts review.Counts) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows to render")
	}

	bold, err := loadFace(true, headerFontSz)
	if err != nil {
		return nil, err
	}
	regular, err := loadFace(false, fontSize)
	if err != nil {
		return nil, err
	}
	titleFace, err := loadFace(true, titleFontSz)
	if err != nil {
		return nil, err
	}
	footerFace, err := loadFace(false, footerFontSz)
	if err != nil {
		return nil, err
	}

	// ---- Step 1: Measure columns ----
	measure := gg.NewContext(1, 1)
	measure.SetFontFace(bold)
	colWidths := make([]float64, len(columns))
	for i, col := range columns {
		w, _ := measure.MeasureString(col.header)
		colWidths[i] = w + cellPaddingX*2 + 4
		if colWidths[i] < minColWidth {
			colWidths[i] = minColWidth
		}
	}

	measure.SetFontFace(regular)
	for i := range rows {
		for c, col := range columns {
			w, _ := measure.MeasureString(col.field(&rows[i]))
			if needed := w + cellPaddingX*2 + 4; needed > colWidths[c] {
				colWidths[c] = needed
			}
		}
	}
	for i, col := range columns {
		if col.maxWidth > 0 && colWidths[i] > col.maxWidth {
			colWidths[i] = col.maxWidth
		}
	}

	_, lineH := measure.MeasureString("Ay")
	lineSpacing := lineH + 4

	rowHeights := make([]float64, len(rows))
	var totalRowHeight float64
	for i := range rows {
		maxLines := 1
		for c, col := range columns {
			if n := len(wrapText(measure, col.field(&rows[i]), colWidths[c]-cellPaddingX*2)); n > maxLines {
				maxLines = n
			}
		}
		h := float64(maxLines)*lineSpacing + cellPaddingY*2
		if h < minRowHeight {
			h = minRowHeight
		}
		rowHeights[i] = h
		totalRowHeight += h
	}

	// ---- Step 2: Canvas ----
	var totalWidth float64
	for _, w := range colWidths {
		totalWidth += w
	}
	canvasWidth := totalWidth + 80
	canvasHeight := titlePadding + headerHeight + totalRowHeight + footerPadding

	dc := gg.NewContext(int(canvasWidth), int(canvasHeight))
	dc.SetColor(bgColor)
	dc.Clear()

	// ---- Step 3: Draw ----
	dc.SetFontFace(titleFace)
	dc.SetColor(titleColor)
	heading := fmt.Sprintf("%s  -  %s", title, time.Now().Format("02 Jan 2006, 03:04 PM"))
	dc.DrawStringAnchored(heading, canvasWidth/2, titlePadding/2+2, 0.5, 0.5)

	tableX, tableY := 40.0, float64(titlePadding)

	dc.SetColor(headerBgColor)
	dc.DrawRoundedRectangle(tableX, tableY, totalWidth, headerHeight, 16)
	dc.Fill()

	dc.SetFontFace(bold)
	dc.SetColor(headerTextColor)
	x := tableX
	for i, col := range columns {
		dc.DrawStringAnchored(col.header, x+colWidths[i]/2, tableY+headerHeight/2, 0.5, 0.5)
		x += colWidths[i]
	}

	dc.SetFontFace(regular)
	curY := tableY + headerHeight
	for i := range rows {
		rh := rowHeights[i]

		if i%2 == 0 {
			dc.SetColor(rowEvenColor)
		} else {
			dc.SetColor(rowOddColor)
		}
		dc.DrawRectangle(tableX, curY, totalWidth, rh)
		dc.Fill()

		x := tableX
		for c, col := range columns {
			if c == statusColumn {
				if tint, ok := statusColors[rows[i].Quality]; ok {
					dc.SetColor(tint)
					dc.DrawRectangle(x, curY, colWidths[c], rh)
					dc.Fill()
				}
			}

			dc.SetColor(textColor)
			wrapped := wrapText(dc, col.field(&rows[i]), colWidths[c]-cellPaddingX*2)
			startY := curY + (rh-float64(len(wrapped))*lineSpacing)/2 + lineH
			for n, line := range wrapped {
				dc.DrawString(line, x+cellPaddingX, startY+float64(n)*lineSpacing)
			}
			x += colWidths[c]
		}

		dc.SetColor(borderColor)
		dc.SetLineWidth(0.5)
		dc.DrawLine(tableX, curY+rh, tableX+totalWidth, curY+rh)
		dc.Stroke()

		curY += rh
	}

	dc.SetColor(borderColor)
	dc.SetLineWidth(1)
	tableH := headerHeight + totalRowHeight
	dc.DrawRoundedRectangle(tableX, tableY, totalWidth, tableH, 16)
	dc.Stroke()

	dc.SetLineWidth(0.5)
	x = tableX
	for i := 0; i < len(columns)-1; i++ {
		x += colWidths[i]
		dc.DrawLine(x, tableY+headerHeight, x, tableY+tableH)
		dc.Stroke()
	}

	dc.SetFontFace(footerFace)
	dc.SetColor(footerColor)
	dc.DrawStringAnchored(Footer(counts), canvasWidth/2, canvasHeight-footerPadding/2, 0.5, 0.5)

	// ---- Step 4: Encode ----
	return encodeImage(dc.Image())
}

// Footer formats the QC metrics line shown under the table.
func Footer(c review.Counts) string {
	return fmt.Sprintf("QC Status: %.1f%%   |   Sample Size: %.1f%%   |   QC Done: %d of %d",
		c.QCStatusPercent(), c.SampleSizePercent(), c.QCDone(), c.Total())
}

// RowsFor builds report rows for the records of a view.
func RowsFor(view review.View, store *verdict.Store) []Row {
	rows := make([]Row, 0, len(view))
	for _, r := range view {
		v := store.Get(r.ID())
		rows = append(rows, Row{
			ComplaintNumber: r.ID(),
			Zone:            r.Get(ingest.ColZone),
			Ward:            r.Get(ingest.ColWard),
			Subtype:         r.Get(ingest.ColSubtype),
			Surveyor:        r.Get(ingest.ColSurveyor),
			Quality:         v.Quality,
			Comment:         v.Comment,
		})
	}
	return rows
}

func encodeImage(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
