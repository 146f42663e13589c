package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const defaultSheetName = "Schedule"

// XLSXRenderer writes sheets to an Excel workbook with a frozen, bold header row.
type XLSXRenderer struct{}

// NewXLSXRenderer builds an XLSX renderer.
func NewXLSXRenderer() *XLSXRenderer { return &XLSXRenderer{} }

func (r *XLSXRenderer) Extension() string { return FormatXLSX }
func (r *XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Render produces the workbook bytes.
func (r *XLSXRenderer) Render(sheet Sheet) ([]byte, error) {
	if err := sheet.Validate(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	name := defaultSheetName
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	startRow := 1
	if sheet.Title != "" {
		if err := f.SetCellValue(name, "A1", sheet.Title); err != nil {
			return nil, fmt.Errorf("write title: %w", err)
		}
		startRow = 3
	}

	for i, col := range sheet.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, startRow)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(name, cell, col); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, startRow)
	last, _ := excelize.CoordinatesToCellName(len(sheet.Columns), startRow)
	if err := f.SetCellStyle(name, first, last, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for r, row := range sheet.Rows {
		values := make([]interface{}, len(sheet.Columns))
		for i := range sheet.Columns {
			values[i] = sheet.cell(row, i)
		}
		cell, err := excelize.CoordinatesToCellName(1, startRow+r+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r, err)
		}
	}

	if err := f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      startRow,
		TopLeftCell: fmt.Sprintf("A%d", startRow+1),
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
