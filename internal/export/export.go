// Package export renders executed reports into downloadable formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"sprintlens/internal/config"
	"sprintlens/internal/models"
	"sprintlens/internal/report"
)

// Renderer writes one report result in a single format.
type Renderer interface {
	Format() models.ExportFormat
	Render(res report.Result, w io.Writer) error
}

// Exporter picks the renderer for a format and enforces the export row
// budget before anything is rendered.
type Exporter struct {
	budget    int
	renderers map[models.ExportFormat]Renderer
}

// New returns an exporter with the built-in CSV and PDF renderers plus any
// extras (an XLSX renderer is typically plugged in here).
func New(cfg config.Config, extras ...Renderer) *Exporter {
	e := &Exporter{
		budget:    cfg.ExportMaxRows,
		renderers: make(map[models.ExportFormat]Renderer),
	}
	e.register(&CSVRenderer{})
	e.register(&PDFRenderer{Title: "Report"})
	for _, r := range extras {
		e.register(r)
	}
	return e
}

func (e *Exporter) register(r Renderer) {
	e.renderers[r.Format()] = r
}

// Export writes res to w in the requested format. A result over the row
// budget is refused before any bytes are written; the caller still holds the
// on-screen result.
func (e *Exporter) Export(res report.Result, format models.ExportFormat, w io.Writer) error {
	if res.RowCount > e.budget {
		return &models.ExportTooLargeError{Rows: res.RowCount, Budget: e.budget}
	}
	r, ok := e.renderers[format]
	if !ok {
		return &models.ValidationError{Rule: "format", Detail: fmt.Sprintf("no renderer for %q", format)}
	}
	return r.Render(res, w)
}

// CSVRenderer writes the result as a header row plus data rows.
type CSVRenderer struct{}

func (*CSVRenderer) Format() models.ExportFormat { return models.FormatCSV }

func (*CSVRenderer) Render(res report.Result, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return err
	}
	record := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, v := range row {
			record[i] = cellString(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PDFRenderer lays the result out as a simple table: bold header, one line
// per row, truncation notice at the end.
type PDFRenderer struct {
	Title string
}

func (*PDFRenderer) Format() models.ExportFormat { return models.FormatPDF }

func (r *PDFRenderer) Render(res report.Result, w io.Writer) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, r.Title)
	pdf.Ln(12)

	width := colWidth(len(res.Columns))
	pdf.SetFont("Arial", "B", 11)
	for _, c := range res.Columns {
		pdf.CellFormat(width, 8, c, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, row := range res.Rows {
		for _, v := range row {
			pdf.CellFormat(width, 7, cellString(v), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if res.Truncated {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(0, 8, fmt.Sprintf("Result truncated at %d rows.", res.RowCount))
	}
	return pdf.Output(w)
}

func colWidth(cols int) float64 {
	// A4 landscape printable width.
	const usable = 277.0
	if cols == 0 {
		return usable
	}
	return usable / float64(cols)
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case float64:
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
