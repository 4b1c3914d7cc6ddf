package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"policypulse/backend/internal/summary"
)

const (
	pdfMargin     = 18.0
	pdfLineHeight = 5.5
)

// PDFRenderer lays the summary out on A4 pages with the core Helvetica font.
// Text is translated to cp1252, so characters outside it are replaced.
type PDFRenderer struct{}

func (PDFRenderer) Format() Format      { return FormatPDF }
func (PDFRenderer) ContentType() string { return "application/pdf" }

func (PDFRenderer) Render(w io.Writer, s summary.PersonalizedSummary, reportID string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Personalized Policy Summary", true)
	pdf.SetSubject("Report "+reportID, true)
	pdf.SetCreationDate(s.GeneratedAt.UTC())
	pdf.SetModificationDate(s.GeneratedAt.UTC())
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 6, fmt.Sprintf("Report %s  |  page %d", reportID, pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	text := func(style string, size float64, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		pdf.SetFont("Helvetica", style, size)
		pdf.SetTextColor(33, 37, 41)
		pdf.MultiCell(0, pdfLineHeight, tr(body), "", "L", false)
	}
	heading := func(title string) {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.SetTextColor(20, 70, 140)
		pdf.CellFormat(0, 8, tr(title), "B", 1, "L", false, 0, "")
		pdf.Ln(2)
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(20, 70, 140)
	pdf.CellFormat(0, 10, tr("Personalized Policy Summary"), "", 1, "L", false, 0, "")
	text("", 10, fmt.Sprintf("Generated %s", s.GeneratedAt.UTC().Format(time.RFC1123)))
	pdf.Ln(2)
	pdf.SetFillColor(232, 240, 252)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(33, 37, 41)
	pdf.CellFormat(0, 10, fmt.Sprintf("Overall relevance: %d / 100", s.OverallScore), "", 1, "C", true, 0, "")

	heading("Relevant areas")
	for i, area := range s.RelevantAreas {
		text("B", 11, fmt.Sprintf("%d. %s", i+1, area.Title))
		text("I", 9, fmt.Sprintf("%s  |  relevance %d  |  impact %s", area.Category, area.RelevanceScore, area.Impact))
		text("", 10, area.Summary)
		text("", 10, area.Details)
		for _, item := range area.ActionItems {
			text("", 10, "- "+item)
		}
		pdf.Ln(2)
	}

	if len(s.MajorUpdates) > 0 {
		heading("Major updates")
		for _, u := range s.MajorUpdates {
			text("B", 11, u.Title)
			text("I", 9, fmt.Sprintf("%s  |  impact %s", u.Timeline, u.Impact))
			text("", 10, u.Description)
			text("", 10, u.RelevanceToUser)
			pdf.Ln(2)
		}
	}

	heading("Recommendations")
	for i, r := range s.Recommendations {
		text("B", 11, fmt.Sprintf("%d. %s", i+1, r.Title))
		text("I", 9, fmt.Sprintf("priority %s  |  %s", r.Priority, r.Category))
		text("", 10, r.Description)
		for n, step := range r.ActionSteps {
			text("", 10, fmt.Sprintf("%d) %s", n+1, step))
		}
		pdf.Ln(2)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}
