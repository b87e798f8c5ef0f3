package core

import (
	"fmt"
	"strings"
)

// BuildWorkItems turns data rows into work items using the cell at column.
//
// A row shorter than the header gets the placeholder name "Row {n} product".
// A row whose cell is present but blank is dropped. IDs are the row's
// position in rows, so dropped rows leave gaps.
func BuildWorkItems(rows [][]string, header []string, column int) ([]WorkItem, error) {
	if column < 0 || column >= len(header) {
		return nil, fmt.Errorf("%w: column %d out of range (0-%d)", ErrUnsupportedInput, column, len(header)-1)
	}

	items := make([]WorkItem, 0, len(rows))
	for i, row := range rows {
		var name string
		if column < len(row) {
			name = strings.TrimSpace(row[column])
		} else {
			name = fmt.Sprintf("Row %d product", i+1)
		}
		if name == "" {
			continue
		}
		items = append(items, WorkItem{ID: i, Name: name})
	}
	return items, nil
}
