// Package leads reads client lead lists from CSV and XLSX files into ordered
// field maps keyed by the header row.
package leads

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadFile parses a lead list. The first row supplies the field names; each
// subsequent row becomes one field map in file order. The format is chosen by
// extension (.csv, .xls, .xlsx).
func ReadFile(path string) ([]map[string]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "leads: open csv")
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xls", ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, eris.Errorf("leads: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadCSV parses CSV content with the first row as header.
func ReadCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow ragged rows

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "leads: read csv header")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "leads: read csv row")
		}

		row := make(map[string]string, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			}
		}
		if !allEmpty(row) {
			rows = append(rows, row)
		}
	}
}

func allEmpty(row map[string]string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadXLSX parses the first sheet of an XLSX workbook with the first row as
// header.
func ReadXLSX(path string) ([]map[string]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "leads: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("leads: workbook has no sheets")
	}
	sheet := f.Sheets[0]

	var header []string
	var rows []map[string]string
	for i, r := range sheet.Rows {
		cells := make([]string, len(r.Cells))
		for j, cell := range r.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}

		if i == 0 {
			header = cells
			continue
		}

		row := make(map[string]string, len(header))
		for j, h := range header {
			if h == "" {
				continue
			}
			if j < len(cells) {
				row[h] = cells[j]
			}
		}
		if !allEmpty(row) {
			rows = append(rows, row)
		}
	}

	return rows, nil
}
