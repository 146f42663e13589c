package export

import (
	"fmt"
	"strings"
)

// Sheet is a titled table handed to a Renderer. Every row is expected to carry
// one cell per column; short rows are padded with blanks.
type Sheet struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// Validate reports whether the sheet can be rendered.
func (s Sheet) Validate() error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("sheet %q has no columns", s.Title)
	}
	for i, row := range s.Rows {
		if len(row) > len(s.Columns) {
			return fmt.Errorf("row %d has %d cells for %d columns", i, len(row), len(s.Columns))
		}
	}
	return nil
}

func (s Sheet) cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}

// Renderer turns a Sheet into a downloadable document.
type Renderer interface {
	Render(Sheet) ([]byte, error)
	Extension() string
	ContentType() string
}

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// ForFormat returns the renderer registered for the given format name.
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCSV:
		return NewCSVRenderer(), nil
	case FormatPDF:
		return NewPDFRenderer(), nil
	case FormatXLSX:
		return NewXLSXRenderer(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
