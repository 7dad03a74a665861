package export

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfUsableWidth = 277.0 // A4 landscape minus 10mm margins
	pdfRowHeight   = 7.0
	pdfMinColumn   = 18.0
)

// PDFExporter prints a dataset as a landscape table. The column header is repeated on every page
// and each page carries its number in the footer.
type PDFExporter struct{}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

func (e *PDFExporter) ContentType() string { return "application/pdf" }

func (e *PDFExporter) Extension() string { return string(FormatPDF) }

func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if err := data.validate(FormatPDF); err != nil {
		return nil, err
	}
	widths := columnWidths(data)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("{nb}")

	pdf.SetHeaderFunc(func() {
		if title != "" && pdf.PageNo() == 1 {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
			pdf.Ln(2)
		}
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(225, 232, 240)
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], 8, header, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "", 8)
	pdf.SetFillColor(245, 245, 245)
	for i := range data.Rows {
		shade := i%2 == 1
		for j, value := range data.row(i) {
			pdf.CellFormat(widths[j], pdfRowHeight, value, "1", 0, "", shade, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths shares the page width in proportion to the longest value in each column.
func columnWidths(data Dataset) []float64 {
	weights := make([]float64, len(data.Headers))
	var total float64
	for i, header := range data.Headers {
		longest := utf8.RuneCountInString(header)
		for _, row := range data.Rows {
			if i < len(row) {
				if n := utf8.RuneCountInString(row[i]); n > longest {
					longest = n
				}
			}
		}
		weights[i] = float64(longest) + 2
		total += weights[i]
	}

	widths := make([]float64, len(weights))
	for i, w := range weights {
		widths[i] = pdfUsableWidth * w / total
		if widths[i] < pdfMinColumn {
			widths[i] = pdfMinColumn
		}
	}
	return widths
}
