package extract

import (
	"fmt"
	"sort"
	"strings"
)

const tableRuleWidth = 50

// FormatTable renders rows as a numbered table block. The first row is the header.
func FormatTable(rows [][]string, n int) string {
	if len(rows) == 0 {
		return ""
	}
	lines := []string{fmt.Sprintf("[TABLE %d]", n)}
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = strings.TrimSpace(c)
		}
		if i == 0 {
			lines = append(lines, "Headers: "+strings.Join(cells, " | "))
			lines = append(lines, strings.Repeat("-", tableRuleWidth))
			continue
		}
		lines = append(lines, strings.Join(cells, " | "))
	}
	lines = append(lines, "[END TABLE]")
	return strings.Join(lines, "\n")
}

// textRun is one positioned piece of text on a page row.
type textRun struct {
	x, w, size float64
	s          string
}

const (
	cellGapEm  = 1.5 // gap, in font sizes, that separates two cells
	minCellGap = 6.0
	wordGapEm  = 0.15
)

// splitCells groups a row's runs into cells separated by wide horizontal gaps.
func splitCells(runs []textRun) []string {
	if len(runs) == 0 {
		return nil
	}
	sorted := make([]textRun, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].x < sorted[j].x })

	var cells []string
	var cur strings.Builder
	prevEnd := sorted[0].x
	for i, r := range sorted {
		size := r.size
		if size <= 0 {
			size = 10
		}
		gap := r.x - prevEnd
		if i > 0 && gap > max(size*cellGapEm, minCellGap) {
			if c := strings.TrimSpace(cur.String()); c != "" {
				cells = append(cells, c)
			}
			cur.Reset()
		} else if i > 0 && gap > size*wordGapEm {
			cur.WriteByte(' ')
		}
		cur.WriteString(r.s)
		prevEnd = r.x + r.w
	}
	if c := strings.TrimSpace(cur.String()); c != "" {
		cells = append(cells, c)
	}
	return cells
}

// detectTables finds runs of at least two consecutive rows that split into the same
// number (at least two) of cells.
func detectTables(rows [][]string) [][][]string {
	var tables [][][]string
	var cur [][]string
	flush := func() {
		if len(cur) >= 2 {
			tables = append(tables, cur)
		}
		cur = nil
	}
	for _, row := range rows {
		if len(row) < 2 {
			flush()
			continue
		}
		if len(cur) > 0 && len(cur[0]) != len(row) {
			flush()
		}
		cur = append(cur, row)
	}
	flush()
	return tables
}
