package storage

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"newsquarter/internal/models"
)

// SheetName is the worksheet that holds the records.
const SheetName = "records"

// maxCellChars is the per-cell character limit of the xlsx format.
const maxCellChars = 32767

// WriteXLSX writes records to a workbook with a header row in models.Columns order.
func WriteXLSX(path string, records []models.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := writeXLSXRow(f, 1, models.Columns); err != nil {
		return err
	}

	for i, r := range records {
		if err := writeXLSXRow(f, i+2, r.Row()); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}

	return nil
}

func writeXLSXRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}

	cells := make([]any, len(values))
	for i, v := range values {
		if utf8.RuneCountInString(v) > maxCellChars {
			v = string([]rune(v)[:maxCellChars])
		}

		cells[i] = v
	}

	if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}

	return nil
}
