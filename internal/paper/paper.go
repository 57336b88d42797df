package paper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"psp.com/mock-exam/backend/internal/exam"
)

// Options controls optional sections of the rendered paper.
type Options struct {
	WithAnswers bool
}

// RenderPDF lays out a generated paper as an A4 question sheet, optionally
// followed by an answer key.
func RenderPDF(p exam.Paper, opts Options) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(p.Title), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(firstNonEmpty(p.Title, p.ExamID)), "", "C", false)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, summary(p), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, "Paper ID: "+p.ID, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	for i, q := range p.Questions {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, q.Question)), "", "L", false)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, tr(q.Category+" | "+string(q.Difficulty)), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for j, opt := range q.Options {
			pdf.SetX(18)
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("%s) %s", letter(j), opt)), "", "L", false)
		}
		pdf.Ln(3)
	}

	if opts.WithAnswers {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 10, "Answer Key", "", 1, "C", false, 0, "")

		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(15, 7, "No.", "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 7, "Answer", "1", 0, "C", false, 0, "")
		pdf.CellFormat(0, 7, "Explanation", "1", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		for i, q := range p.Questions {
			pdf.CellFormat(15, 6, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
			pdf.CellFormat(20, 6, letter(q.CorrectAnswer), "1", 0, "C", false, 0, "")
			pdf.MultiCell(0, 6, tr(firstNonEmpty(q.Explanation, "-")), "1", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func summary(p exam.Paper) string {
	parts := []string{fmt.Sprintf("Questions: %d", len(p.Questions))}
	if p.TimeLimitSec > 0 {
		parts = append(parts, fmt.Sprintf("Time allowed: %d min", p.TimeLimitSec/60))
	}
	if p.PassThreshold > 0 {
		parts = append(parts, fmt.Sprintf("Pass mark: %d/%d (%d%%)", p.PassMark(), len(p.Questions), p.PassThreshold))
	}
	return strings.Join(parts, " | ")
}

func letter(i int) string {
	if i < 0 || i >= 26 {
		return "?"
	}
	return string(rune('A' + i))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
