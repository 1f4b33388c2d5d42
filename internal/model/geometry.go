package model

// Rect is a horizontal rectangle anchored at a 3D position. Only X and Y
// take part in intersection math; Z records the plane it lies in.
type Rect struct {
	Width    int      `json:"width"`
	Depth    int      `json:"depth"`
	Position Position `json:"position"`
}

// NewRect creates a rectangle at (x, y, z).
func NewRect(x, y, z, width, depth int) Rect {
	return Rect{Width: width, Depth: depth, Position: Position{X: x, Y: y, Z: z}}
}

func (r Rect) MinX() int { return r.Position.X }
func (r Rect) MinY() int { return r.Position.Y }
func (r Rect) MaxX() int { return r.Position.X + r.Width }
func (r Rect) MaxY() int { return r.Position.Y + r.Depth }

// Area returns Width*Depth.
func (r Rect) Area() int { return r.Width * r.Depth }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Depth <= 0 }

// Intersect returns the horizontal intersection of r and o, placed in r's
// z plane. ok is false when the overlap has zero area.
func (r Rect) Intersect(o Rect) (Rect, bool) {
	x0 := max(r.MinX(), o.MinX())
	y0 := max(r.MinY(), o.MinY())
	x1 := min(r.MaxX(), o.MaxX())
	y1 := min(r.MaxY(), o.MaxY())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}, false
	}
	return NewRect(x0, y0, r.Position.Z, x1-x0, y1-y0), true
}

// Contains reports whether o lies horizontally inside r.
func (r Rect) Contains(o Rect) bool {
	return o.MinX() >= r.MinX() && o.MinY() >= r.MinY() &&
		o.MaxX() <= r.MaxX() && o.MaxY() <= r.MaxY()
}

// Reduce subtracts o from r and returns the remaining pieces: a left band
// and a right band spanning r's full depth, then a front and a back band
// spanning the overlap's width. The pieces are disjoint and tile r minus o.
// If o does not overlap r, r is returned unchanged.
func (r Rect) Reduce(o Rect) []Rect {
	in, ok := r.Intersect(o)
	if !ok {
		return []Rect{r}
	}
	z := r.Position.Z
	var out []Rect
	if in.MinX() > r.MinX() {
		out = append(out, NewRect(r.MinX(), r.MinY(), z, in.MinX()-r.MinX(), r.Depth))
	}
	if in.MaxX() < r.MaxX() {
		out = append(out, NewRect(in.MaxX(), r.MinY(), z, r.MaxX()-in.MaxX(), r.Depth))
	}
	if in.MinY() > r.MinY() {
		out = append(out, NewRect(in.MinX(), r.MinY(), z, in.Width, in.MinY()-r.MinY()))
	}
	if in.MaxY() < r.MaxY() {
		out = append(out, NewRect(in.MinX(), in.MaxY(), z, in.Width, r.MaxY()-in.MaxY()))
	}
	return out
}

// Surface is a floor a box may rest on. Surfaces only ever hold uncovered
// floor: when a box lands on one, the part under the box is cut away.
type Surface struct {
	Rect
}

// NewSurface creates a surface from a rectangle.
func NewSurface(r Rect) Surface {
	return Surface{Rect: r}
}

// Z returns the height of the surface plane.
func (s Surface) Z() int { return s.Position.Z }
