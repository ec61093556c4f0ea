package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF returns one section per page: the page text followed by any tables
// detected from the page's positioned text rows.
func extractPDF(content []byte) ([]section, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	sections := make([]section, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		tables := pageTables(page)
		var b strings.Builder
		b.WriteString(text)
		for n, t := range tables {
			b.WriteString("\n\n")
			b.WriteString(FormatTable(t, n+1))
		}
		sections = append(sections, section{index: i, text: b.String(), tabular: len(tables) > 0})
	}
	return sections, nil
}

// pageTables returns the tables on a page. Pages whose rows cannot be read have none.
func pageTables(page pdf.Page) [][][]string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil
	}
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		runs := make([]textRun, 0, len(row.Content))
		for _, t := range row.Content {
			runs = append(runs, textRun{x: t.X, w: t.W, size: t.FontSize, s: t.S})
		}
		cells = append(cells, splitCells(runs))
	}
	return detectTables(cells)
}
