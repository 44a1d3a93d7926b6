package tagdb

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// ExportCSV writes a database's tags to w in the flattened exchange format.
func ExportCSV(db *Database, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exchangeHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range tagRows(db) {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportCSV reads tags from a flattened exchange CSV.
func ImportCSV(r io.Reader) ([]*Tag, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowsToTags(rows[1:])
}

// ExportCSVFile writes a database's tags to a CSV file.
func ExportCSVFile(db *Database, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()
	if err := ExportCSV(db, f); err != nil {
		return err
	}
	return f.Close()
}

// ImportCSVFile reads tags from a CSV file.
func ImportCSVFile(path string) ([]*Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()
	return ImportCSV(f)
}
