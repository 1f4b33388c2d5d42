package engine

import (
	"github.com/piwi3910/Palletizer/internal/model"
)

// Cluster is a group of boxes oriented to share one vertical extent.
type Cluster struct {
	Height int
	Area   int // summed footprint area of the boxes at Height
	Boxes  []model.Box
}

// verticalCandidates returns the distinct orientations of c obtained by
// choosing each axis as the vertical one. The current height comes first so
// a box already standing at a height keeps its orientation.
func verticalCandidates(c model.Cuboid) []model.Cuboid {
	all := []model.Cuboid{
		c,
		{Width: c.Depth, Depth: c.Height, Height: c.Width},
		{Width: c.Width, Depth: c.Height, Height: c.Depth},
	}
	out := make([]model.Cuboid, 0, len(all))
	seen := make(map[int]bool, len(all))
	for _, o := range all {
		if !seen[o.Height] {
			seen[o.Height] = true
			out = append(out, o)
		}
	}
	return out
}

// footprintFits reports whether an orientation fits the bounds, allowing the
// footprint to turn by 90 degrees. A zero bound disables the check.
func footprintFits(o, bounds model.Cuboid) bool {
	if bounds == (model.Cuboid{}) {
		return true
	}
	if o.Height > bounds.Height {
		return false
	}
	return (o.Width <= bounds.Width && o.Depth <= bounds.Depth) ||
		(o.Depth <= bounds.Width && o.Width <= bounds.Depth)
}

// Packable reports whether b can stand in some orientation within bounds.
func Packable(b model.Box, bounds model.Cuboid) bool {
	for _, o := range verticalCandidates(b.Dims) {
		if footprintFits(o, bounds) {
			return true
		}
	}
	return false
}

// ClusterByHeight groups boxes by the vertical extent that covers the most
// footprint area. Each box offers one candidate per distinct dimension
// chosen as vertical; the footprint areas of all candidates are summed per
// height. With target > 0 that height is selected instead. Ties go to the
// height encountered first, so callers should pass boxes in a stable order.
//
// Candidates that do not fit bounds are ignored. The returned boxes are
// copies re-oriented to the selected height; the input is left untouched.
// ok is false when no box offers the selected height.
func ClusterByHeight(boxes []model.Box, target int, bounds model.Cuboid) (Cluster, bool) {
	areas := make(map[int]int)
	var order []int
	for _, b := range boxes {
		for _, o := range verticalCandidates(b.Dims) {
			if !footprintFits(o, bounds) {
				continue
			}
			if _, ok := areas[o.Height]; !ok {
				order = append(order, o.Height)
			}
			areas[o.Height] += o.FootprintArea()
		}
	}

	height := target
	if height <= 0 {
		best := -1
		for _, h := range order {
			if areas[h] > best {
				height, best = h, areas[h]
			}
		}
	}
	if areas[height] == 0 {
		return Cluster{}, false
	}

	c := Cluster{Height: height, Area: areas[height]}
	for _, b := range boxes {
		for _, o := range verticalCandidates(b.Dims) {
			if o.Height == height && footprintFits(o, bounds) {
				c.Boxes = append(c.Boxes, b.Oriented(o))
				break
			}
		}
	}
	return c, true
}
