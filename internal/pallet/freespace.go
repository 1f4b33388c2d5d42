// Package pallet tracks the packable volume of a single pallet as boxes are
// placed on it.
//
// Free volume is a set of disjoint axis-aligned cuboids. Each free space
// carries the surfaces at its base that can support a box. Placing a box
// segments every space it overlaps into guillotine remainders and attaches
// the box's upper face as a new surface to spaces starting at its top.
package pallet

import (
	"sort"

	"github.com/piwi3910/Palletizer/internal/model"
)

// FreeSpace is empty volume anchored at Position. Surfaces all lie in the
// plane z = Position.Z.
type FreeSpace struct {
	Dims     model.Cuboid    `json:"dims"`
	Position model.Position  `json:"position"`
	Surfaces []model.Surface `json:"surfaces"`
}

// NewFreeSpace creates a free space supported by the given surfaces.
func NewFreeSpace(dims model.Cuboid, pos model.Position, surfaces ...model.Surface) FreeSpace {
	return FreeSpace{Dims: dims, Position: pos, Surfaces: surfaces}
}

func (fs FreeSpace) ZBottom() int { return fs.Position.Z }
func (fs FreeSpace) ZTop() int    { return fs.Position.Z + fs.Dims.Height }

// Footprint returns the base rectangle of the space.
func (fs FreeSpace) Footprint() model.Rect {
	return model.Rect{Width: fs.Dims.Width, Depth: fs.Dims.Depth, Position: fs.Position}
}

// Block returns the space as an anchored cuboid.
func (fs FreeSpace) Block() model.Block {
	return model.Block{Dims: fs.Dims, Position: fs.Position}
}

// Overlaps reports whether a placed box shares volume with the space.
func (fs FreeSpace) Overlaps(b model.Box) bool {
	return fs.Block().Overlaps(model.Block{Dims: b.Dims, Position: *b.Position})
}

// Fit looks for a resting position for a box with the given orientation.
// Each surface is tried with the box anchored at the surface's
// minimum corner; the box must lie on that surface and inside the space.
func (fs FreeSpace) Fit(dims model.Cuboid) (model.Position, bool) {
	if dims.Height > fs.Dims.Height {
		return model.Position{}, false
	}
	bounds := fs.Footprint()
	for _, s := range fs.Surfaces {
		foot := model.NewRect(s.MinX(), s.MinY(), fs.ZBottom(), dims.Width, dims.Depth)
		if s.Contains(foot) && bounds.Contains(foot) {
			return foot.Position, true
		}
	}
	return model.Position{}, false
}

// Orientations returns every rotation of b that can rest in the space.
func (fs FreeSpace) Orientations(b model.Box) []model.Cuboid {
	var out []model.Cuboid
	for _, r := range b.Dims.Rotations() {
		if _, ok := fs.Fit(r); ok {
			out = append(out, r)
		}
	}
	return out
}

// Accommodates reports whether some rotation of b fits inside the space and
// is fully supported by one of its surfaces.
func (fs FreeSpace) Accommodates(b model.Box) bool {
	return len(fs.Orientations(b)) > 0
}

// AddSurface attaches the part of s that lies over the space's footprint.
// Surfaces in another plane, and zero-area overlaps, are ignored.
func (fs *FreeSpace) AddSurface(s model.Surface) bool {
	if s.Z() != fs.ZBottom() {
		return false
	}
	in, ok := s.Intersect(fs.Footprint())
	if !ok {
		return false
	}
	fs.Surfaces = append(fs.Surfaces, model.NewSurface(in))
	return true
}

// Segment subtracts a placed box from the space. The result is up to six
// disjoint cuboids: the part below the box, four bands around the box's
// footprint over the box's height range, and the part above the box. A box
// resting on the space's base at its corner leaves at most three pieces
// (right, behind, above). The result is empty when the box consumes the
// whole space, and the space itself when they do not overlap.
func (fs FreeSpace) Segment(b model.Box) []FreeSpace {
	if !fs.Overlaps(b) {
		return []FreeSpace{fs}
	}
	z0 := max(b.ZBottom(), fs.ZBottom())
	z1 := min(b.ZTop(), fs.ZTop())
	foot := fs.Footprint()
	var out []FreeSpace

	if z0 > fs.ZBottom() {
		out = append(out, NewFreeSpace(
			model.Cuboid{Width: fs.Dims.Width, Depth: fs.Dims.Depth, Height: z0 - fs.ZBottom()},
			fs.Position, fs.Surfaces...))
	}

	boxFoot := b.Footprint()
	for _, band := range foot.Reduce(boxFoot) {
		piece := NewFreeSpace(
			model.Cuboid{Width: band.Width, Depth: band.Depth, Height: z1 - z0},
			model.Position{X: band.MinX(), Y: band.MinY(), Z: z0})
		if z0 == fs.ZBottom() {
			piece.Surfaces = clipSurfaces(fs.Surfaces, band)
		}
		out = append(out, piece)
	}

	if z1 < fs.ZTop() {
		above := NewFreeSpace(
			model.Cuboid{Width: fs.Dims.Width, Depth: fs.Dims.Depth, Height: fs.ZTop() - z1},
			model.Position{X: fs.Position.X, Y: fs.Position.Y, Z: z1})
		above.AddSurface(model.NewSurface(b.Top()))
		out = append(out, above)
	}
	return out
}

// clipSurfaces returns the parts of surfaces that lie over r.
func clipSurfaces(surfaces []model.Surface, r model.Rect) []model.Surface {
	var out []model.Surface
	for _, s := range surfaces {
		if in, ok := s.Intersect(r); ok {
			out = append(out, model.NewSurface(in))
		}
	}
	return out
}

// SortBottomBackLeft orders spaces by z, then y, then x, so the lowest,
// rearmost, leftmost space comes first.
func SortBottomBackLeft(spaces []FreeSpace) {
	sort.SliceStable(spaces, func(i, j int) bool {
		a, b := spaces[i].Position, spaces[j].Position
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}
