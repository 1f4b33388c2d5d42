package engine

import (
	"context"
	"errors"
	"sort"

	"github.com/piwi3910/Palletizer/internal/model"
	"github.com/piwi3910/Palletizer/internal/pallet"
)

// buildDirect places boxes one at a time into the lowest, rearmost,
// leftmost free space that accommodates them, in a random feasible
// orientation. A new pallet is opened when no remaining box fits the
// current one.
func (pb *PalletBuilder) buildDirect(ctx context.Context, boxes []model.Box, res *model.PackResult) error {
	done := pb.metrics.Stage("direct")
	defer done()

	pending := append([]model.Box(nil), boxes...)
	sort.SliceStable(pending, func(i, j int) bool {
		vi, vj := pending[i].Dims.Volume(), pending[j].Dims.Volume()
		if vi != vj {
			return vi > vj
		}
		return pending[i].ID < pending[j].ID
	})

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			res.Unplaced = append(res.Unplaced, pending...)
			return err
		}
		opts := []pallet.Option{pallet.WithLogger(pb.logger)}
		if pb.snapshot != nil {
			opts = append(opts, pallet.WithSnapshotter(pb.snapshot))
		}
		p := pallet.New(pb.settings.Pallet(), pb.settings.PalletCapacity, opts...)

		placed := 0
		for {
			i, ok := pb.placeNext(p, pending)
			if !ok {
				break
			}
			pending = append(pending[:i], pending[i+1:]...)
			placed++
			if p.Halted() != nil {
				break
			}
		}
		if placed == 0 {
			break
		}
		res.Pallets = append(res.Pallets, p.Result())
		pb.logger.Debug("pallet filled", "pallet", p.ID, "boxes", placed, "remaining", len(pending))
	}
	res.Unplaced = append(res.Unplaced, pending...)
	return nil
}

// placeNext places the first pending box that fits anywhere on p and
// returns its index.
func (pb *PalletBuilder) placeNext(p *pallet.Pallet, pending []model.Box) (int, bool) {
	for i, b := range pending {
		if !p.HasCapacity(b.Weight) {
			continue
		}
		spaces := p.FeasibleSpaces(b)
		if len(spaces) == 0 {
			continue
		}
		fs := spaces[0]
		orientations := fs.Orientations(b)
		o := orientations[pb.rng.Intn(len(orientations))]
		pos, _ := fs.Fit(o)
		err := p.PlaceBox(b.Oriented(o).PlacedAt(pos))
		switch {
		case err == nil:
			return i, true
		case errors.Is(err, pallet.ErrOverlap):
			pb.logger.Error("direct placement halted", "box", b.ID, "error", err)
			return 0, false
		default:
			pb.logger.Warn("direct placement rejected", "box", b.ID, "error", err)
		}
	}
	return 0, false
}
