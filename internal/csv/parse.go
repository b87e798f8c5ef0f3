// Package csv turns uploaded product lists into rows of string cells.
//
// The parser is deliberately permissive: it never rejects input. Unbalanced
// quotes and ragged rows degrade into whatever cells the scan produced, so a
// slightly malformed export from a spreadsheet still yields usable rows.
package csv

import "strings"

// Parse splits comma-delimited text into rows of cells.
//
// Quoting follows RFC 4180 loosely: a double quote opens a quoted field, a
// doubled quote inside it is a literal quote, and commas or line breaks inside
// quotes are kept as cell content. Consecutive line terminators (CRLF, blank
// lines) produce a single row break. Rows with no cells, and rows made of a
// single empty cell, are dropped.
func Parse(text string) [][]string {
	var (
		rows     [][]string
		row      []string
		field    strings.Builder
		inQuotes bool
	)

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inQuotes {
			switch {
			case c == '"' && i+1 < len(text) && text[i+1] == '"':
				field.WriteByte('"')
				i++
			case c == '"':
				inQuotes = false
			default:
				field.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			inQuotes = true
		case ',':
			row = append(row, field.String())
			field.Reset()
		case '\n', '\r':
			if i > 0 && !isLineBreak(text[i-1]) {
				row = append(row, field.String())
				rows = append(rows, row)
				row = nil
				field.Reset()
			}
			if c == '\r' && i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
		default:
			field.WriteByte(c)
		}
	}

	// No trailing newline: flush whatever the last line produced.
	if field.Len() > 0 || len(row) > 0 {
		row = append(row, field.String())
		rows = append(rows, row)
	}

	out := rows[:0]
	for _, r := range rows {
		if len(r) == 0 || (len(r) == 1 && r[0] == "") {
			continue
		}
		out = append(out, r)
	}
	return out
}

func isLineBreak(c byte) bool {
	return c == '\n' || c == '\r'
}

// SplitHeader separates the header row from the data rows.
// ok is false when there is no data row after the header.
func SplitHeader(rows [][]string) (header []string, data [][]string, ok bool) {
	if len(rows) < 2 {
		return nil, nil, false
	}
	return rows[0], rows[1:], true
}
