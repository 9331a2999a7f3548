// Package storage reads and writes record tables.
package storage

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"newsquarter/internal/models"
)

// Table errors.
var (
	ErrEmptyTable = errors.New("table has no header row")
)

// utf8BOM lets spreadsheet applications detect UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes records with a header row in models.Columns order,
// prefixed with a UTF-8 byte order mark. An existing file is replaced.
func WriteCSV(path string, records []models.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := EncodeCSV(f, records); err != nil {
		_ = f.Close()

		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	return nil
}

// EncodeCSV writes the BOM, header and rows to w.
func EncodeCSV(w io.Writer, records []models.Record) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(models.Columns); err != nil {
		return err
	}

	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// ReadCSV loads a record table written by WriteCSV or by another tool.
func ReadCSV(path string) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := DecodeCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return records, nil
}

// DecodeCSV parses a table, mapping columns by header name. Unknown columns
// are ignored and missing ones, link included, stay empty.
func DecodeCSV(r io.Reader) ([]models.Record, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyTable
	}

	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var records []models.Record

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		var rec models.Record

		for _, col := range models.Columns {
			if i, ok := index[col]; ok && i < len(row) {
				rec.SetField(col, row[i])
			}
		}

		records = append(records, rec)
	}

	return records, nil
}
