package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/Palletizer/internal/model"
)

// boxColor represents an RGB color for a placed box.
type boxColor struct {
	R, G, B int
}

var boxColors = []boxColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	drawAreaTop  = marginTop + headerHeight + 5.0
	viewCols     = 3
	viewRows     = 2
	viewGap      = 6.0
	viewCaption  = 5.0
)

// ExportPDF generates a PDF report. Each pallet gets a page with a top view
// of every layer, bottom layer first, followed by a summary page.
func ExportPDF(path string, res model.PackResult, settings model.PackSettings) error {
	if len(res.Pallets) == 0 {
		return fmt.Errorf("no pallets to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for i, p := range res.Pallets {
		renderPalletPages(pdf, p, i+1)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, res, settings)

	return pdf.OutputFileAndClose(path)
}

// palletViews returns the layers to draw for a pallet. Pallets packed box
// by box have no layers; their boxes are shown grouped by resting height.
func palletViews(p model.PalletResult) []model.Layer {
	if len(p.Layers) > 0 {
		return p.Layers
	}
	byZ := make(map[int]int)
	var views []model.Layer
	for _, b := range p.Boxes {
		if b.Position == nil {
			continue
		}
		idx, ok := byZ[b.Position.Z]
		if !ok {
			idx = len(views)
			byZ[b.Position.Z] = idx
			views = append(views, model.NewLayer(0, p.Dims.Width, p.Dims.Depth))
		}
		views[idx].Placements = append(views[idx].Placements, model.Placement{Box: b, Position: *b.Position})
		views[idx].Height = max(views[idx].Height, b.Dims.Height)
	}
	return views
}

// renderPalletPages draws one pallet, continuing on further pages when it
// has more layers than fit on one.
func renderPalletPages(pdf *fpdf.Fpdf, p model.PalletResult, palletNum int) {
	views := palletViews(p)
	perPage := viewCols * viewRows
	for start := 0; start == 0 || start < len(views); start += perPage {
		pdf.AddPage()

		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetXY(marginLeft, marginTop)
		title := fmt.Sprintf("Pallet %d (%d x %d x %d mm)", palletNum, p.Dims.Width, p.Dims.Depth, p.Dims.Height)
		if start > 0 {
			title += " (continued)"
		}
		pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		pdf.SetXY(marginLeft, marginTop+headerHeight)
		stats := fmt.Sprintf("Boxes: %d | Layers: %d | Weight: %d / %d | Stack height: %d mm | Density: %.1f%%",
			len(p.Boxes), len(p.Layers), p.TotalWeight, p.MaxWeight, p.StackHeight(), p.Density())
		pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

		end := min(start+perPage, len(views))
		for i := start; i < end; i++ {
			slot := i - start
			drawLayerView(pdf, views[i], i+1, slot%viewCols, slot/viewCols)
		}
		if len(views) == 0 {
			break
		}
	}
}

// drawLayerView draws a scaled top view of a layer into a grid cell.
func drawLayerView(pdf *fpdf.Fpdf, l model.Layer, layerNum, col, row int) {
	cellW := (pageWidth - marginLeft - marginRight - float64(viewCols-1)*viewGap) / viewCols
	cellH := (pageHeight - drawAreaTop - marginBottom - float64(viewRows-1)*viewGap) / viewRows
	x0 := marginLeft + float64(col)*(cellW+viewGap)
	y0 := drawAreaTop + float64(row)*(cellH+viewGap)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(x0, y0)
	z := 0
	if len(l.Placements) > 0 {
		z = l.Placements[0].Position.Z
	}
	caption := fmt.Sprintf("Layer %d: h=%d z=%d, %d boxes, %.1f%% area", layerNum, l.Height, z, l.NumberOfBoxes(), areaPercent(l))
	pdf.CellFormat(cellW, viewCaption, caption, "", 0, "L", false, 0, "")

	if l.Width <= 0 || l.Depth <= 0 {
		return
	}
	scale := math.Min(cellW/float64(l.Width), (cellH-viewCaption-1)/float64(l.Depth))
	canvasW := float64(l.Width) * scale
	canvasH := float64(l.Depth) * scale
	offsetX := x0 + (cellW-canvasW)/2
	offsetY := y0 + viewCaption + 1

	// Pallet deck
	pdf.SetFillColor(210, 180, 140)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.4)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	for i, p := range l.Placements {
		c := boxColors[i%len(boxColors)]
		pw := float64(p.Box.Dims.Width) * scale
		ph := float64(p.Box.Dims.Depth) * scale
		px := offsetX + float64(p.Position.X)*scale
		py := offsetY + float64(p.Position.Y)*scale

		pdf.SetFillColor(c.R, c.G, c.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.2)
		pdf.Rect(px, py, pw, ph, "FD")

		if pw > 10 && ph > 5 {
			pdf.SetFont("Helvetica", "", labelFontSize(pw, ph))
			label := p.Box.ID
			if lw := pdf.GetStringWidth(label); lw < pw-1 {
				pdf.SetXY(px+(pw-lw)/2, py+ph/2-2)
				pdf.CellFormat(lw, 4, label, "", 0, "C", false, 0, "")
			}
		}
	}
}

func areaPercent(l model.Layer) float64 {
	total := l.Width * l.Depth
	if total == 0 {
		return 0
	}
	return float64(l.UsedArea()) / float64(total) * 100
}

// renderSummaryPage draws the final summary page with overall statistics.
func renderSummaryPage(pdf *fpdf.Fpdf, res model.PackResult, settings model.PackSettings) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Palletizing Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	summaryItems := []struct {
		label string
		value string
	}{
		{"Run", res.RunID},
		{"Pallets Used", fmt.Sprintf("%d", len(res.Pallets))},
		{"Overall Density", fmt.Sprintf("%.1f%%", res.TotalDensity())},
		{"Boxes Placed", fmt.Sprintf("%d", res.PlacedBoxes())},
		{"Unplaced Boxes", fmt.Sprintf("%d", len(res.Unplaced))},
	}
	y = drawKeyValues(pdf, summaryItems, y, 10)
	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Pallet Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{20, 75, 25, 25, 40, 40, 35}
	headers := []string{"Pallet", "ID", "Layers", "Boxes", "Weight", "Stack Height", "Density"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, p := range res.Pallets {
		if y > pageHeight-marginBottom-10 {
			pdf.AddPage()
			y = marginTop
		}
		xPos = marginLeft
		rowData := []string{
			fmt.Sprintf("%d", i+1),
			p.ID,
			fmt.Sprintf("%d", len(p.Layers)),
			fmt.Sprintf("%d", len(p.Boxes)),
			fmt.Sprintf("%d / %d", p.TotalWeight, p.MaxWeight),
			fmt.Sprintf("%d mm", p.StackHeight()),
			fmt.Sprintf("%.1f%%", p.Density()),
		}
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	if len(res.Unplaced) > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Unplaced Boxes", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, b := range res.Unplaced {
			if y > pageHeight-marginBottom-5 {
				pdf.AddPage()
				y = marginTop
			}
			pdf.SetXY(marginLeft+5, y)
			text := fmt.Sprintf("- %s: %s mm, weight %d", b.ID, b.Dims, b.Weight)
			pdf.CellFormat(200, 5, text, "", 0, "L", false, 0, "")
			y += 5
		}
	}

	if y > pageHeight-marginBottom-45 {
		pdf.AddPage()
		y = marginTop
	}
	y += 8
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Pack Settings", "", 0, "L", false, 0, "")
	y += 9

	settingsItems := []struct {
		label string
		value string
	}{
		{"Pallet", fmt.Sprintf("%d x %d x %d mm", settings.PalletWidth, settings.PalletDepth, settings.PalletHeight)},
		{"Capacity", fmt.Sprintf("%d", settings.PalletCapacity)},
		{"Stack Height", fmt.Sprintf("%d mm", settings.EffectiveStackHeight())},
		{"Mode", string(settings.Mode)},
		{"Iterations", fmt.Sprintf("%d", settings.Iterations)},
		{"Seed", fmt.Sprintf("%d", settings.Seed)},
	}
	drawKeyValues(pdf, settingsItems, y, 9)

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by Palletizer", "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func drawKeyValues(pdf *fpdf.Fpdf, items []struct{ label, value string }, y, size float64) float64 {
	for _, item := range items {
		pdf.SetFont("Helvetica", "", size)
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", size)
		pdf.CellFormat(80, 6, item.value, "", 0, "L", false, 0, "")
		y += 7
	}
	return y
}

// labelFontSize returns an appropriate font size based on the rectangle dimensions.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
