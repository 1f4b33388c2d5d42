package model

// PalletResult is one pallet with its stacked layers and placed boxes.
type PalletResult struct {
	ID          string  `json:"id"`
	Dims        Cuboid  `json:"dims"`
	MaxWeight   int     `json:"max_weight"`
	Layers      []Layer `json:"layers,omitempty"`
	Boxes       []Box   `json:"boxes"`
	TotalWeight int     `json:"total_weight"`
	Error       string  `json:"error,omitempty"` // set when placement halted on an invariant violation
}

// UsedVolume returns the summed volume of all placed boxes.
func (pr PalletResult) UsedVolume() int {
	total := 0
	for _, b := range pr.Boxes {
		total += b.Dims.Volume()
	}
	return total
}

// StackHeight returns the z of the highest box top.
func (pr PalletResult) StackHeight() int {
	top := 0
	for _, b := range pr.Boxes {
		if t := b.ZTop(); t > top {
			top = t
		}
	}
	return top
}

// Density returns used volume as a percentage of the pallet volume.
func (pr PalletResult) Density() float64 {
	v := pr.Dims.Volume()
	if v == 0 {
		return 0
	}
	return float64(pr.UsedVolume()) / float64(v) * 100.0
}

// PackResult holds the full solution.
type PackResult struct {
	RunID    string         `json:"run_id"`
	Layers   []Layer        `json:"layers,omitempty"`
	Pallets  []PalletResult `json:"pallets"`
	Unplaced []Box          `json:"unplaced"`
}

// PlacedBoxes returns the number of boxes across all pallets.
func (r PackResult) PlacedBoxes() int {
	n := 0
	for _, p := range r.Pallets {
		n += len(p.Boxes)
	}
	return n
}

// TotalDensity returns overall volume usage across pallets as a percentage.
func (r PackResult) TotalDensity() float64 {
	var used, total int
	for _, p := range r.Pallets {
		used += p.UsedVolume()
		total += p.Dims.Volume()
	}
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total) * 100.0
}
