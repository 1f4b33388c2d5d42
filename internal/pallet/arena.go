package pallet

// SpaceID is a stable handle to a free space. Handles are never reused.
type SpaceID int

type spaceRecord struct {
	space   FreeSpace
	retired bool
}

// Arena stores free spaces behind stable handles. Segmentation retires a
// handle and inserts the fragments under new handles, so a walk over the
// live handles taken before an update stays valid during it.
type Arena struct {
	records []spaceRecord
	live    int
}

// Insert stores fs and returns its handle.
func (a *Arena) Insert(fs FreeSpace) SpaceID {
	a.records = append(a.records, spaceRecord{space: fs})
	a.live++
	return SpaceID(len(a.records) - 1)
}

// Retire removes the space behind id. Retiring twice is a no-op.
func (a *Arena) Retire(id SpaceID) {
	r := &a.records[id]
	if !r.retired {
		r.retired = true
		a.live--
	}
}

// Get returns the space behind id, or false if it was retired.
func (a *Arena) Get(id SpaceID) (FreeSpace, bool) {
	if int(id) < 0 || int(id) >= len(a.records) {
		return FreeSpace{}, false
	}
	r := a.records[id]
	return r.space, !r.retired
}

// update replaces a live space in place.
func (a *Arena) update(id SpaceID, fs FreeSpace) {
	a.records[id].space = fs
}

// IDs returns the live handles in insertion order.
func (a *Arena) IDs() []SpaceID {
	ids := make([]SpaceID, 0, a.live)
	for i, r := range a.records {
		if !r.retired {
			ids = append(ids, SpaceID(i))
		}
	}
	return ids
}

// Spaces returns copies of the live spaces in insertion order.
func (a *Arena) Spaces() []FreeSpace {
	out := make([]FreeSpace, 0, a.live)
	for _, r := range a.records {
		if !r.retired {
			out = append(out, r.space)
		}
	}
	return out
}

// Len returns the number of live spaces.
func (a *Arena) Len() int { return a.live }
