package assessment

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Submissions"

// ExportHeader lists the workbook columns in order.
var ExportHeader = []string{
	"ID",
	"Date",
	"Time",
	"App URL",
	"Host URL",
	"Age",
	"Sex",
	"Smoke",
	"DM",
	"SBP",
	"Blood Mode",
	"TC (mg/dL)",
	"Waist (inch)",
	"Waist (cm)",
	"Height (cm)",
	"Risk (%)",
	"Risk Band",
	"Lat",
	"Lon",
}

var exportColumnWidths = []float64{38, 14, 10, 40, 40, 6, 6, 7, 5, 6, 12, 11, 12, 11, 11, 10, 11, 12, 12}

// WriteWorkbook renders submissions as an xlsx workbook with a frozen header.
func WriteWorkbook(items []*Submission) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	header := make([]interface{}, len(ExportHeader))
	for i, h := range ExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(ExportHeader), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportSheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, w := range exportColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(exportSheet, col, col, w); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, s := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := workbookRow(s)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func workbookRow(s *Submission) []interface{} {
	return []interface{}{
		s.ID.String(),
		s.DateLocal,
		s.TimeLocal,
		s.AppURL,
		s.HostURL,
		s.Age,
		s.Sex,
		s.Smoke,
		s.DM,
		s.SBP,
		string(s.BloodMode),
		cellValue(s.TCMgDL),
		cellValue(s.WaistInch),
		cellValue(s.WaistCm),
		cellValue(s.HeightCm),
		s.RiskPercent,
		string(s.RiskBand),
		cellValue(s.Lat),
		cellValue(s.Lon),
	}
}

// cellValue leaves nil pointers as empty cells.
func cellValue[T int | float64](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
