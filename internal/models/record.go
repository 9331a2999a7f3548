// Package models defines data structures shared by the crawler and the merger.
package models

// Column names of a record table, in output order.
const (
	ColumnDate     = "date"
	ColumnTitle    = "title"
	ColumnSource   = "source"
	ColumnContents = "contents"
	ColumnLink     = "link"
)

// Columns is the fixed column order of every record table.
var Columns = []string{ColumnDate, ColumnTitle, ColumnSource, ColumnContents, ColumnLink}

// Record is one extracted news item. Link is the natural key.
type Record struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Source   string `json:"source"`
	Date     string `json:"date"`
	Contents string `json:"contents"`
}

// Field returns the value of the named column, or "" for unknown names.
func (r Record) Field(column string) string {
	switch column {
	case ColumnDate:
		return r.Date
	case ColumnTitle:
		return r.Title
	case ColumnSource:
		return r.Source
	case ColumnContents:
		return r.Contents
	case ColumnLink:
		return r.Link
	}

	return ""
}

// SetField assigns the named column. Unknown names are ignored.
func (r *Record) SetField(column, value string) {
	switch column {
	case ColumnDate:
		r.Date = value
	case ColumnTitle:
		r.Title = value
	case ColumnSource:
		r.Source = value
	case ColumnContents:
		r.Contents = value
	case ColumnLink:
		r.Link = value
	}
}

// Row renders the record in Columns order.
func (r Record) Row() []string {
	row := make([]string, len(Columns))
	for i, c := range Columns {
		row[i] = r.Field(c)
	}

	return row
}
