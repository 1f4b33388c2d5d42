package export

import (
	"fmt"

	"github.com/piwi3910/Palletizer/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	boxesSheet    = "Boxes"
	unplacedSheet = "Unplaced"
)

// ExportXLSX writes a workbook with a per-pallet summary, every placed box
// and the unplaced boxes.
func ExportXLSX(path string, res model.PackResult) error {
	if len(res.Pallets) == 0 && len(res.Unplaced) == 0 {
		return fmt.Errorf("nothing to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	summary := [][]interface{}{
		{"Pallet", "ID", "Layers", "Boxes", "Weight", "Max Weight", "Stack Height", "Density %"},
	}
	for i, p := range res.Pallets {
		summary = append(summary, []interface{}{
			i + 1, p.ID, len(p.Layers), len(p.Boxes), p.TotalWeight, p.MaxWeight, p.StackHeight(), round1(p.Density()),
		})
	}
	summary = append(summary, []interface{}{}, []interface{}{"Run", res.RunID}, []interface{}{"Overall density %", round1(res.TotalDensity())})
	if err := writeRows(f, summarySheet, summary, header); err != nil {
		return err
	}

	if _, err := f.NewSheet(boxesSheet); err != nil {
		return err
	}
	boxes := [][]interface{}{
		{"Pallet", "Box", "X", "Y", "Z", "Width", "Depth", "Height", "Weight"},
	}
	for i, p := range res.Pallets {
		for _, b := range p.Boxes {
			if b.Position == nil {
				continue
			}
			boxes = append(boxes, []interface{}{
				i + 1, b.ID, b.Position.X, b.Position.Y, b.Position.Z, b.Dims.Width, b.Dims.Depth, b.Dims.Height, b.Weight,
			})
		}
	}
	if err := writeRows(f, boxesSheet, boxes, header); err != nil {
		return err
	}

	if _, err := f.NewSheet(unplacedSheet); err != nil {
		return err
	}
	unplaced := [][]interface{}{{"Box", "Width", "Depth", "Height", "Weight"}}
	for _, b := range res.Unplaced {
		unplaced = append(unplaced, []interface{}{b.ID, b.Dims.Width, b.Dims.Depth, b.Dims.Height, b.Weight})
	}
	if err := writeRows(f, unplacedSheet, unplaced, header); err != nil {
		return err
	}

	return f.SaveAs(path)
}

// writeRows fills a sheet from row 1 and styles the first row as a header.
func writeRows(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	end, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", end, headerStyle)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
