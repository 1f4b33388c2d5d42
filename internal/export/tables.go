// Package export writes packing results to files: CSV tables, an XLSX
// workbook, a PDF report, QR-coded pallet labels, a DXF wireframe and the
// packed-box log.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/piwi3910/Palletizer/internal/model"
)

var (
	layerHeader  = []string{"id", "x", "y", "width", "depth", "height"}
	palletHeader = []string{"id", "x", "y", "z", "width", "depth", "height"}
)

// WriteLayerCSV writes a layer as a 2D table: one row per box with its
// position in the layer and the orientation it is placed in.
func WriteLayerCSV(w io.Writer, l model.Layer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(layerHeader); err != nil {
		return err
	}
	for _, p := range l.Placements {
		o := p.Orientation()
		if err := cw.Write([]string{p.Box.ID, itoa(p.Position.X), itoa(p.Position.Y), itoa(o.Width), itoa(o.Depth), itoa(o.Height)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePalletCSV writes the boxes of a pallet as a 3D table.
func WritePalletCSV(w io.Writer, p model.PalletResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(palletHeader); err != nil {
		return err
	}
	for _, b := range p.Boxes {
		if b.Position == nil {
			continue
		}
		pos := *b.Position
		if err := cw.Write([]string{b.ID, itoa(pos.X), itoa(pos.Y), itoa(pos.Z), itoa(b.Dims.Width), itoa(b.Dims.Depth), itoa(b.Dims.Height)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes layer_NN.csv for every selected layer and pallet_NN.csv
// for every pallet into dir, and returns the written paths.
func ExportCSV(dir string, res model.PackResult) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	var paths []string
	for i, l := range res.Layers {
		path := filepath.Join(dir, fmt.Sprintf("layer_%02d.csv", i+1))
		if err := writeFile(path, func(w io.Writer) error { return WriteLayerCSV(w, l) }); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	for i, p := range res.Pallets {
		path := filepath.Join(dir, fmt.Sprintf("pallet_%02d.csv", i+1))
		if err := writeFile(path, func(w io.Writer) error { return WritePalletCSV(w, p) }); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func itoa(v int) string { return strconv.Itoa(v) }
