// Package formatter renders records as width-aligned text tables for the console.
package formatter

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"newsquarter/internal/models"
)

// minColumnWidth keeps the separator row at least "---".
const minColumnWidth = 3

// RenderRecords renders records as a markdown-style table with the given
// columns. Cells wider than maxCellWidth display columns are truncated with
// an ellipsis; maxCellWidth <= 0 disables truncation.
func RenderRecords(records []models.Record, columns []string, maxCellWidth int) string {
	table := make([][]string, 0, len(records)+1)
	table = append(table, columns)

	for _, r := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = cellText(r.Field(c), maxCellWidth)
		}

		table = append(table, row)
	}

	return strings.Join(renderTable(table), "\n")
}

// cellText flattens whitespace so one record stays on one line.
func cellText(s string, maxWidth int) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "|", "/")

	if maxWidth > 0 && runewidth.StringWidth(s) > maxWidth {
		s = runewidth.Truncate(s, maxWidth, "…")
	}

	return s
}

// renderTable pads every cell to its column's display width. The first row
// is the header and is followed by a separator row.
func renderTable(table [][]string) []string {
	if len(table) == 0 {
		return nil
	}

	colCount := 0
	for _, row := range table {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	// Display width, not byte or rune count: Hangul takes two columns
	colWidths := make([]int, colCount)

	for _, row := range table {
		for i := 0; i < len(row); i++ {
			if w := runewidth.StringWidth(row[i]); w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}

	for i := range colWidths {
		if colWidths[i] < minColumnWidth {
			colWidths[i] = minColumnWidth
		}
	}

	separator := make([]string, colCount)
	for i, w := range colWidths {
		separator[i] = strings.Repeat("-", w)
	}

	result := make([]string, 0, len(table)+1)
	result = append(result, renderRow(table[0], colWidths))
	result = append(result, renderRow(separator, colWidths))

	for _, row := range table[1:] {
		result = append(result, renderRow(row, colWidths))
	}

	return result
}

func renderRow(row []string, colWidths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, width := range colWidths {
		sb.WriteString(" ")

		content := ""
		if j < len(row) {
			content = row[j]
		}

		sb.WriteString(content)

		if padding := width - runewidth.StringWidth(content); padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}
