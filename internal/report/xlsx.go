package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX renders each table to its own worksheet.
func WriteXLSX(tables ...Table) ([]byte, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables to export")
	}
	f := excelize.NewFile()
	defer f.Close()

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for i, t := range tables {
		sheet := sheetName(t.Name, i)
		index, err := f.NewSheet(sheet)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}
		for r, row := range t.Values() {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return nil, err
				}
			}
		}
		if len(t.Header) > 0 {
			last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
			_ = f.SetCellStyle(sheet, "A1", last, style)
			lastCol, _ := excelize.ColumnNumberToName(len(t.Header))
			_ = f.SetColWidth(sheet, "A", lastCol, 16)
		}
	}
	if _, err := f.GetSheetIndex("Sheet1"); err == nil && sheetName(tables[0].Name, 0) != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sheetName trims names to the 31 characters worksheets allow.
func sheetName(name string, i int) string {
	if name == "" {
		name = fmt.Sprintf("Sheet%d", i+1)
	}
	r := []rune(name)
	if len(r) > 31 {
		r = r[:31]
	}
	return string(r)
}
