package model

import (
	"fmt"
	"sort"
)

// Cuboid is an axis-aligned extent. Width runs along x, Depth along y and
// Height along z (vertical).
type Cuboid struct {
	Width  int `json:"width"`
	Depth  int `json:"depth"`
	Height int `json:"height"`
}

// Volume returns Width*Depth*Height.
func (c Cuboid) Volume() int {
	return c.Width * c.Depth * c.Height
}

// FootprintArea returns the horizontal area Width*Depth.
func (c Cuboid) FootprintArea() int {
	return c.Width * c.Depth
}

// LargestFacetArea returns the area of the biggest of the three facets.
func (c Cuboid) LargestFacetArea() int {
	dims := c.sorted()
	return dims[1] * dims[2]
}

// FitsIn reports whether c fits inside other without rotation.
func (c Cuboid) FitsIn(other Cuboid) bool {
	return c.Width <= other.Width && c.Depth <= other.Depth && c.Height <= other.Height
}

// IsPermutationOf reports whether c holds the same three values as other.
func (c Cuboid) IsPermutationOf(other Cuboid) bool {
	return c.sorted() == other.sorted()
}

// Rotations returns the distinct axis-aligned orientations of c, in a fixed
// order starting with c itself.
func (c Cuboid) Rotations() []Cuboid {
	all := []Cuboid{
		{c.Width, c.Depth, c.Height},
		{c.Depth, c.Width, c.Height},
		{c.Width, c.Height, c.Depth},
		{c.Height, c.Width, c.Depth},
		{c.Depth, c.Height, c.Width},
		{c.Height, c.Depth, c.Width},
	}
	seen := make(map[Cuboid]bool, len(all))
	out := make([]Cuboid, 0, len(all))
	for _, r := range all {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

func (c Cuboid) sorted() [3]int {
	dims := []int{c.Width, c.Depth, c.Height}
	sort.Ints(dims)
	return [3]int{dims[0], dims[1], dims[2]}
}

func (c Cuboid) String() string {
	return fmt.Sprintf("%dx%dx%d", c.Width, c.Depth, c.Height)
}

// Position is the minimum corner of a box or space. The pallet origin is
// (0,0,0); x and y are horizontal, z is vertical.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

// Box is a rectangular item to be packed. Dims holds the current
// orientation; it is always a permutation of the dimensions the box was
// created with. Boxes are passed by value between pipeline stages so no
// stage observes another stage's orientation changes.
type Box struct {
	ID       string    `json:"id"`
	Dims     Cuboid    `json:"dims"`
	Weight   int       `json:"weight"`
	Position *Position `json:"position,omitempty"`
}

// NewBox creates an unplaced box.
func NewBox(id string, width, depth, height, weight int) Box {
	return Box{
		ID:     id,
		Dims:   Cuboid{Width: width, Depth: depth, Height: height},
		Weight: weight,
	}
}

// Oriented returns a copy of b using the given orientation. It panics if o
// is not a permutation of the box's dimensions, since that would change the
// physical box.
func (b Box) Oriented(o Cuboid) Box {
	if !o.IsPermutationOf(b.Dims) {
		panic(fmt.Sprintf("model: orientation %s is not a rotation of box %s (%s)", o, b.ID, b.Dims))
	}
	b.Dims = o
	return b
}

// PlacedAt returns a copy of b positioned at p.
func (b Box) PlacedAt(p Position) Box {
	pos := p
	b.Position = &pos
	return b
}

// Footprint returns the horizontal rectangle the box occupies. The box must
// be placed.
func (b Box) Footprint() Rect {
	return Rect{Width: b.Dims.Width, Depth: b.Dims.Depth, Position: b.pos()}
}

// Top returns the box's upper face as a rectangle at z = bottom + height.
func (b Box) Top() Rect {
	p := b.pos()
	p.Z += b.Dims.Height
	return Rect{Width: b.Dims.Width, Depth: b.Dims.Depth, Position: p}
}

// ZBottom returns the z coordinate of the box's base.
func (b Box) ZBottom() int { return b.pos().Z }

// ZTop returns the z coordinate of the box's upper face.
func (b Box) ZTop() int { return b.pos().Z + b.Dims.Height }

// Overlaps reports whether two placed boxes share interior volume.
func (b Box) Overlaps(other Box) bool {
	return Block{Dims: b.Dims, Position: b.pos()}.Overlaps(Block{Dims: other.Dims, Position: other.pos()})
}

func (b Box) pos() Position {
	if b.Position == nil {
		return Position{}
	}
	return *b.Position
}

func (b Box) String() string {
	if b.Position == nil {
		return fmt.Sprintf("%s %s w=%d", b.ID, b.Dims, b.Weight)
	}
	return fmt.Sprintf("%s %s w=%d at %s", b.ID, b.Dims, b.Weight, *b.Position)
}

// Block is a cuboid anchored at a position.
type Block struct {
	Dims     Cuboid
	Position Position
}

// Overlaps reports whether the interiors of two blocks intersect.
func (a Block) Overlaps(b Block) bool {
	return overlap1D(a.Position.X, a.Dims.Width, b.Position.X, b.Dims.Width) &&
		overlap1D(a.Position.Y, a.Dims.Depth, b.Position.Y, b.Dims.Depth) &&
		overlap1D(a.Position.Z, a.Dims.Height, b.Position.Z, b.Dims.Height)
}

func overlap1D(a0, alen, b0, blen int) bool {
	return a0 < b0+blen && b0 < a0+alen
}
