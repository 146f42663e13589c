package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVRenderer writes sheets as RFC 4180 CSV.
type CSVRenderer struct{}

// NewCSVRenderer builds a CSV renderer.
func NewCSVRenderer() *CSVRenderer { return &CSVRenderer{} }

func (r *CSVRenderer) Extension() string   { return FormatCSV }
func (r *CSVRenderer) ContentType() string { return "text/csv" }

// Render encodes the header row followed by each data row.
func (r *CSVRenderer) Render(sheet Sheet) ([]byte, error) {
	if err := sheet.Validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(sheet.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(sheet.Columns))
	for _, row := range sheet.Rows {
		for i := range sheet.Columns {
			record[i] = sheet.cell(row, i)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
