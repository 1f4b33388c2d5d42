package model

import "fmt"

// Placement fixes a box's orientation and position inside a layer. Box.Dims
// is the orientation used for the placement.
type Placement struct {
	Box      Box      `json:"box"`
	Position Position `json:"position"`
}

// Orientation returns the dimensions the box is placed with.
func (p Placement) Orientation() Cuboid { return p.Box.Dims }

// Footprint returns the rectangle the placement covers in its layer.
func (p Placement) Footprint() Rect {
	return Rect{Width: p.Box.Dims.Width, Depth: p.Box.Dims.Depth, Position: p.Position}
}

// Layer is a single-height 2D packing. All placements share the nominal
// Height the boxes were clustered at; individual boxes may be lower when
// they were migrated in from another layer. Width and Depth are the
// footprint the layer was built in.
//
// Layers are values: every mutating method returns a new Layer and leaves
// the receiver untouched.
type Layer struct {
	Height     int         `json:"height"`
	Width      int         `json:"width"`
	Depth      int         `json:"depth"`
	Placements []Placement `json:"placements"`
}

// NewLayer creates an empty layer over a width x depth footprint.
func NewLayer(height, width, depth int) Layer {
	return Layer{Height: height, Width: width, Depth: depth}
}

// UsedArea returns the total footprint area of the placed boxes.
func (l Layer) UsedArea() int {
	total := 0
	for _, p := range l.Placements {
		total += p.Box.Dims.FootprintArea()
	}
	return total
}

// FreeArea returns the footprint area not covered by any box.
func (l Layer) FreeArea() int {
	return l.Width*l.Depth - l.UsedArea()
}

// NumberOfBoxes returns the number of placements.
func (l Layer) NumberOfBoxes() int { return len(l.Placements) }

// DistinctHeights returns how many different box heights the layer uses.
func (l Layer) DistinctHeights() int {
	seen := make(map[int]bool)
	for _, p := range l.Placements {
		seen[p.Box.Dims.Height] = true
	}
	return len(seen)
}

// TotalWeight returns the summed weight of all boxes in the layer.
func (l Layer) TotalWeight() int {
	total := 0
	for _, p := range l.Placements {
		total += p.Box.Weight
	}
	return total
}

// BoxIDs returns the ids of the placed boxes in placement order.
func (l Layer) BoxIDs() []string {
	ids := make([]string, len(l.Placements))
	for i, p := range l.Placements {
		ids[i] = p.Box.ID
	}
	return ids
}

// Contains reports whether the layer holds the given box id.
func (l Layer) Contains(id string) bool {
	_, ok := l.Placement(id)
	return ok
}

// Placement looks up the placement of a box id.
func (l Layer) Placement(id string) (Placement, bool) {
	for _, p := range l.Placements {
		if p.Box.ID == id {
			return p, true
		}
	}
	return Placement{}, false
}

// With returns a copy of the layer with p added. Adding an id that is
// already present is a programming error.
func (l Layer) With(p Placement) Layer {
	if l.Contains(p.Box.ID) {
		panic(fmt.Sprintf("model: box %s already placed in layer", p.Box.ID))
	}
	out := l.Clone()
	out.Placements = append(out.Placements, p)
	return out
}

// Without returns a copy of the layer with the given box ids removed.
func (l Layer) Without(ids ...string) Layer {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	out := Layer{Height: l.Height, Width: l.Width, Depth: l.Depth}
	for _, p := range l.Placements {
		if !drop[p.Box.ID] {
			out.Placements = append(out.Placements, p)
		}
	}
	return out
}

// Clone returns a deep copy of the layer.
func (l Layer) Clone() Layer {
	out := l
	out.Placements = make([]Placement, len(l.Placements), len(l.Placements)+1)
	copy(out.Placements, l.Placements)
	return out
}

// AtZ returns a copy of the layer with every placement lifted to z.
func (l Layer) AtZ(z int) Layer {
	out := l.Clone()
	for i := range out.Placements {
		out.Placements[i].Position.Z = z
	}
	return out
}

// Boxes returns the layer's boxes positioned at their placements.
func (l Layer) Boxes() []Box {
	out := make([]Box, len(l.Placements))
	for i, p := range l.Placements {
		out[i] = p.Box.PlacedAt(p.Position)
	}
	return out
}
