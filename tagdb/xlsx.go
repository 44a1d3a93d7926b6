package tagdb

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const tagSheetName = "Tags"

// ExportXLSX writes a database's tags to an xlsx workbook using the same
// flattened layout as the CSV exchange. The sheet is named "Tags" with a
// bold header row.
func ExportXLSX(db *Database, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, tagSheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	for c, header := range exchangeHeader {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(tagSheetName, cell, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if err := f.SetCellStyle(tagSheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}

	for r, row := range tagRows(db) {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(tagSheetName, cell, value); err != nil {
				return fmt.Errorf("write row %d: %w", r+2, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %q: %w", path, err)
	}
	return nil
}

// ImportXLSX reads tags from the first sheet of an xlsx workbook in the
// flattened exchange layout.
func ImportXLSX(path string) ([]*Tag, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows from sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowsToTags(rows[1:])
}
