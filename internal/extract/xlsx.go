package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractXLSX returns one tabular section per non-empty sheet.
func extractXLSX(content []byte) ([]section, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var sections []section
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		var kept [][]string
		for _, row := range rows {
			if strings.TrimSpace(strings.Join(row, "")) != "" {
				kept = append(kept, row)
			}
		}
		if len(kept) == 0 {
			continue
		}
		sections = append(sections, section{
			index:   i + 1,
			text:    "SHEET: " + sheet + "\n" + FormatTable(kept, 1),
			tabular: true,
		})
	}
	return sections, nil
}
