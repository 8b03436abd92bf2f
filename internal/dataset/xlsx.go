package dataset

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var zipMagic = []byte("PK\x03\x04")

// ReadXLSX reads the first sheet of a workbook as raw records.
func ReadXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row from sheet %s: %w", sheet, err)
		}
		records = append(records, record)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows in sheet %s: %w", sheet, err)
	}
	return records, nil
}

// ReadRecords picks the CSV or XLSX reader from the file name, falling back
// to sniffing the content when the extension is unknown.
func ReadRecords(name string, content []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(bytes.NewReader(content))
	case ".csv", ".txt":
		return ReadCSV(bytes.NewReader(content))
	}
	if bytes.HasPrefix(content, zipMagic) {
		return ReadXLSX(bytes.NewReader(content))
	}
	return ReadCSV(bytes.NewReader(content))
}
