package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/Palletizer/internal/model"
	qrcode "github.com/skip2/go-qrcode"
)

// LabelInfo holds the manifest encoded into each pallet label's QR code.
type LabelInfo struct {
	RunID       string   `json:"run,omitempty"`
	PalletID    string   `json:"pallet"`
	Index       int      `json:"index"`
	Of          int      `json:"of"`
	BoxCount    int      `json:"box_count"`
	Weight      int      `json:"weight"`
	StackHeight int      `json:"stack_height_mm"`
	BoxIDs      []string `json:"boxes,omitempty"`
}

// qrMaxPayload keeps the manifest within what a medium-recovery QR code
// holds; larger manifests drop the box id list.
const qrMaxPayload = 2000

// Label layout: two columns by three rows of 99 x 90 mm labels on A4.
const (
	labelMarginTop  = 13.5
	labelMarginLeft = 6.0
	labelWidth      = 99.0
	labelHeight     = 90.0
	labelCols       = 2
	labelRows       = 3
	labelsPerPage   = labelCols * labelRows
	qrSize          = 55.0
	labelPadding    = 4.0
)

// CollectLabelInfos builds one label manifest per pallet.
func CollectLabelInfos(res model.PackResult) []LabelInfo {
	labels := make([]LabelInfo, 0, len(res.Pallets))
	for i, p := range res.Pallets {
		ids := make([]string, 0, len(p.Boxes))
		for _, b := range p.Boxes {
			ids = append(ids, b.ID)
		}
		labels = append(labels, LabelInfo{
			RunID:       res.RunID,
			PalletID:    p.ID,
			Index:       i + 1,
			Of:          len(res.Pallets),
			BoxCount:    len(p.Boxes),
			Weight:      p.TotalWeight,
			StackHeight: p.StackHeight(),
			BoxIDs:      ids,
		})
	}
	return labels
}

// payload returns the QR content for a label.
func (info LabelInfo) payload() ([]byte, error) {
	data, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal label info: %w", err)
	}
	if len(data) > qrMaxPayload {
		info.BoxIDs = nil
		return json.Marshal(info)
	}
	return data, nil
}

// ExportLabels generates a PDF of QR-coded pallet labels. Each label shows
// the pallet number, weight and height, and carries the pallet manifest as
// JSON in a QR code.
func ExportLabels(path string, res model.PackResult) error {
	labels := CollectLabelInfos(res)
	if len(labels) == 0 {
		return fmt.Errorf("no pallets to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, label); err != nil {
			return fmt.Errorf("failed to render label for pallet %s: %w", label.PalletID, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, info LabelInfo) error {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	data, err := info.payload()
	if err != nil {
		return err
	}
	qrPNG, err := qrcode.Encode(string(data), qrcode.Medium, 512)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := "qr_" + info.PalletID
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	qrX := x + (labelWidth-qrSize)/2
	qrY := y + labelHeight - qrSize - labelPadding
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - 2*labelPadding

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)
	pdf.CellFormat(textW, 7, fmt.Sprintf("Pallet %d / %d", info.Index, info.Of), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(textX, y+labelPadding+8)
	pdf.CellFormat(textW, 4.5, fmt.Sprintf("%d boxes | weight %d | height %d mm", info.BoxCount, info.Weight, info.StackHeight), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+13)
	pdf.CellFormat(textW, 3, info.PalletID, "", 1, "L", false, 0, "")
	if info.RunID != "" {
		pdf.SetXY(textX, y+labelPadding+16)
		pdf.CellFormat(textW, 3, "run "+info.RunID, "", 1, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)
	return nil
}
