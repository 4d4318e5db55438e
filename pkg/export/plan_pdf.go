package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PlanEntry is a single printable row of a weekly plan.
type PlanEntry struct {
	Day    string
	Start  string
	End    string
	Course string
	Kind   string
	Locked bool
}

// PlanDocument holds everything needed to render a weekly plan sheet.
type PlanDocument struct {
	Owner     string
	WeekStart string
	Entries   []PlanEntry
}

// PlanPDFExporter renders a weekly plan into a printable PDF sheet.
type PlanPDFExporter struct{}

// NewPlanPDFExporter constructs a plan exporter.
func NewPlanPDFExporter() *PlanPDFExporter {
	return &PlanPDFExporter{}
}

// Render produces a PDF document grouped by day.
func (e *PlanPDFExporter) Render(doc PlanDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("Weekly Plan - week of %s", doc.WeekStart), "", 1, "C", false, 0, "")
	if doc.Owner != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, doc.Owner, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	headers := []string{"Day", "Start", "End", "Course", "Kind"}
	widths := []float64{34, 24, 24, 80, 28}

	pdf.SetFont("Arial", "B", 10)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, entry := range doc.Entries {
		course := entry.Course
		if entry.Locked {
			course += " *"
		}
		cells := []string{entry.Day, entry.Start, entry.End, course, entry.Kind}
		for i, value := range cells {
			pdf.CellFormat(widths[i], 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(doc.Entries) == 0 {
		pdf.CellFormat(190, 7, "no blocks scheduled", "1", 1, "C", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, "* manually locked block", "", 1, "", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render plan pdf: %w", err)
	}
	return buf.Bytes(), nil
}
