package engine

import (
	"sort"

	"github.com/piwi3910/Palletizer/internal/model"
)

// rect is a free area of a layer footprint.
type rect struct {
	x, y, w, d int
}

func (r rect) area() int { return r.w * r.d }

// rectPacker implements maximal-rectangles packing on a layer footprint. It
// keeps every maximal empty rectangle, so any position where a footprint
// fits lies inside one of them.
type rectPacker struct {
	freeRects []rect
}

func newRectPacker(width, depth int) *rectPacker {
	return &rectPacker{freeRects: []rect{{0, 0, width, depth}}}
}

// packerForLayer rebuilds the free rectangles left by a layer's placements.
func packerForLayer(l model.Layer) *rectPacker {
	rp := newRectPacker(l.Width, l.Depth)
	for _, p := range l.Placements {
		rp.place(rect{p.Position.X, p.Position.Y, p.Box.Dims.Width, p.Box.Dims.Depth})
	}
	return rp
}

// slot is a position where a w x d footprint fits, with the area it wastes
// in its free rectangle.
type slot struct {
	x, y  int
	w, d  int
	waste int
}

// fits returns every free rectangle that can take a w x d footprint, as slots
// anchored at the rectangle's minimum corner.
func (rp *rectPacker) fits(w, d int) []slot {
	var out []slot
	for _, r := range rp.freeRects {
		if w <= r.w && d <= r.d {
			out = append(out, slot{x: r.x, y: r.y, w: w, d: d, waste: r.area() - w*d})
		}
	}
	return out
}

// bestFit returns the slot with the least wasted area (best area fit), or
// false if the footprint fits nowhere.
func (rp *rectPacker) bestFit(w, d int) (slot, bool) {
	var best slot
	found := false
	for _, s := range rp.fits(w, d) {
		if !found || s.waste < best.waste {
			best, found = s, true
		}
	}
	return best, found
}

// firstFit returns the rearmost, leftmost slot for the footprint.
func (rp *rectPacker) firstFit(w, d int) (slot, bool) {
	slots := rp.fits(w, d)
	if len(slots) == 0 {
		return slot{}, false
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].y != slots[j].y {
			return slots[i].y < slots[j].y
		}
		return slots[i].x < slots[j].x
	})
	return slots[0], true
}

// place removes the placed footprint from every free rectangle it overlaps.
func (rp *rectPacker) place(placed rect) {
	var next []rect
	for _, r := range rp.freeRects {
		if !rectsOverlap(r, placed) {
			next = append(next, r)
			continue
		}
		// Up to four maximal strips around the placement.
		if placed.x > r.x {
			next = append(next, rect{r.x, r.y, placed.x - r.x, r.d})
		}
		if placed.x+placed.w < r.x+r.w {
			next = append(next, rect{placed.x + placed.w, r.y, r.x + r.w - (placed.x + placed.w), r.d})
		}
		if placed.y > r.y {
			next = append(next, rect{r.x, r.y, r.w, placed.y - r.y})
		}
		if placed.y+placed.d < r.y+r.d {
			next = append(next, rect{r.x, placed.y + placed.d, r.w, r.y + r.d - (placed.y + placed.d)})
		}
	}
	rp.freeRects = pruneContained(next)
}

func rectsOverlap(a, b rect) bool {
	return a.x < b.x+b.w && a.x+a.w > b.x &&
		a.y < b.y+b.d && a.y+a.d > b.y
}

// pruneContained removes any rect that is fully contained within another.
// Of two equal rects the first is kept.
func pruneContained(rects []rect) []rect {
	if len(rects) <= 1 {
		return rects
	}
	kept := make([]rect, 0, len(rects))
	for i, a := range rects {
		contained := false
		for j, b := range rects {
			if i == j || !containsRect(b, a) {
				continue
			}
			if a != b || j < i {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, a)
		}
	}
	return kept
}

func containsRect(outer, inner rect) bool {
	return outer.x <= inner.x && outer.y <= inner.y &&
		outer.x+outer.w >= inner.x+inner.w &&
		outer.y+outer.d >= inner.y+inner.d
}
