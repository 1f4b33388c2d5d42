package export

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"

	"github.com/piwi3910/Palletizer/internal/model"
)

var dxfLayerColors = []color.ColorNumber{color.Red, color.Yellow, color.Green, color.Cyan, color.Blue, color.Magenta}

// ExportDXF writes a 3D wireframe of one pallet. The pallet outline goes on
// DXF layer PALLET; the boxes of each stacked layer go on LAYER_NN, or on
// BOXES for a pallet packed box by box.
func ExportDXF(path string, p model.PalletResult) error {
	if len(p.Boxes) == 0 {
		return fmt.Errorf("pallet %s has no boxes", p.ID)
	}

	d := dxf.NewDrawing()
	d.AddLayer("PALLET", dxf.DefaultColor, dxf.DefaultLineType, true)
	wireframe(d, model.Block{Dims: p.Dims})

	if len(p.Layers) == 0 {
		d.AddLayer("BOXES", color.Green, dxf.DefaultLineType, true)
		for _, b := range p.Boxes {
			if b.Position != nil {
				wireframe(d, model.Block{Dims: b.Dims, Position: *b.Position})
			}
		}
	} else {
		for i, l := range p.Layers {
			name := fmt.Sprintf("LAYER_%02d", i+1)
			d.AddLayer(name, dxfLayerColors[i%len(dxfLayerColors)], dxf.DefaultLineType, true)
			for _, b := range l.Boxes() {
				wireframe(d, model.Block{Dims: b.Dims, Position: *b.Position})
			}
		}
	}

	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("save dxf %s: %w", path, err)
	}
	return nil
}

// wireframe draws the twelve edges of a block on the current DXF layer.
func wireframe(d *drawing.Drawing, b model.Block) {
	x0, y0, z0 := float64(b.Position.X), float64(b.Position.Y), float64(b.Position.Z)
	x1, y1, z1 := x0+float64(b.Dims.Width), y0+float64(b.Dims.Depth), z0+float64(b.Dims.Height)

	for _, z := range []float64{z0, z1} {
		d.Line(x0, y0, z, x1, y0, z)
		d.Line(x1, y0, z, x1, y1, z)
		d.Line(x1, y1, z, x0, y1, z)
		d.Line(x0, y1, z, x0, y0, z)
	}
	d.Line(x0, y0, z0, x0, y0, z1)
	d.Line(x1, y0, z0, x1, y0, z1)
	d.Line(x1, y1, z0, x1, y1, z1)
	d.Line(x0, y1, z0, x0, y1, z1)
}
