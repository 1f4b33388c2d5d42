package engine

import (
	"context"
	"errors"
	"math/rand"
	"sort"

	"github.com/piwi3910/Palletizer/internal/ilp"
	"github.com/piwi3910/Palletizer/internal/model"
	"github.com/piwi3910/Palletizer/internal/pallet"
)

// GreedyLayers repeatedly clusters the remaining boxes by height and builds
// the best layer for the cluster, until every box is in a layer. A cluster
// that yields no layer is dropped and its boxes stay unplaced. alternates
// are the runner-up layers kept for the set-cover stage.
func (pb *PalletBuilder) GreedyLayers(ctx context.Context, boxes []model.Box) (primary, alternates []model.Layer, err error) {
	remaining := append([]model.Box(nil), boxes...)
	bounds := pb.stackBounds()
	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return primary, alternates, err
		}
		c, ok := ClusterByHeight(remaining, 0, bounds)
		if !ok {
			break
		}
		built, err := pb.layers.Build(ctx, c)
		if err != nil {
			return primary, alternates, err
		}
		if len(built) == 0 {
			// No box of the cluster fits the footprint in its clustered
			// orientation; drop them so the loop terminates.
			pb.logger.Warn("cluster produced no layer", "height", c.Height, "boxes", len(c.Boxes))
			remaining = removeIDs(remaining, clusterIDs(c))
			continue
		}
		primary = append(primary, built[0])
		alternates = append(alternates, built[1:]...)
		remaining = removeIDs(remaining, built[0].BoxIDs())
		pb.logger.Debug("greedy layer",
			"height", c.Height,
			"boxes", built[0].NumberOfBoxes(),
			"used_area", built[0].UsedArea(),
			"remaining", len(remaining))
	}
	return primary, alternates, nil
}

func clusterIDs(c Cluster) []string {
	ids := make([]string, len(c.Boxes))
	for i, b := range c.Boxes {
		ids[i] = b.ID
	}
	return ids
}

func removeIDs(boxes []model.Box, ids []string) []model.Box {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	out := boxes[:0:0]
	for _, b := range boxes {
		if !drop[b.ID] {
			out = append(out, b)
		}
	}
	return out
}

// SortLayers orders layers by used area, densest first. The sort is stable.
func SortLayers(layers []model.Layer) {
	sort.SliceStable(layers, func(i, j int) bool {
		return layers[i].UsedArea() > layers[j].UsedArea()
	})
}

// SeparatingIndex splits layers sorted by SortLayers into dense layers
// [0, idx] and sparse layers (idx, n). Scanning from the end, idx becomes
// i-1 for every i > 1 where the largest-facet area of the boxes in layers
// [i, n) is smaller than the free area of layers [0, i-1); the last such i
// wins. When no i qualifies idx is n and nothing is sparse.
func SeparatingIndex(layers []model.Layer) int {
	n := len(layers)
	free := make([]int, n+1)
	for i, l := range layers {
		free[i+1] = free[i] + l.FreeArea()
	}
	bottom := make([]int, n+1)
	for i := n - 1; i >= 0; i-- {
		facets := 0
		for _, p := range layers[i].Placements {
			facets += p.Box.Dims.LargestFacetArea()
		}
		bottom[i] = bottom[i+1] + facets
	}
	idx := n
	for i := n - 1; i > 1; i-- {
		if bottom[i] < free[i-1] {
			idx = i - 1
		}
	}
	return idx
}

// Migrate moves boxes out of the sparse layers after sep into the dense
// layers [0, sep], without moving any box already placed there. A box is
// tried in each dense layer in order and in each orientation that fits the
// layer height. Sparse layers left empty are removed. The whole pass runs
// in simple mode first, then again in shuffle mode. layers is not modified.
func Migrate(layers []model.Layer, sep int, rng *rand.Rand) []model.Layer {
	out := append([]model.Layer(nil), layers...)
	if sep >= len(out)-1 {
		return out
	}
	for _, mode := range []EnhanceMode{EnhanceSimple, EnhanceShuffle} {
		for i := len(out) - 1; i > sep; i-- {
			var moved []string
			for _, p := range out[i].Placements {
				if migrateBox(out[:sep+1], p.Box, mode, rng) {
					moved = append(moved, p.Box.ID)
				}
			}
			if len(moved) > 0 {
				out[i] = out[i].Without(moved...)
			}
		}
		kept := out[:sep+1]
		for _, l := range out[sep+1:] {
			if l.NumberOfBoxes() > 0 {
				kept = append(kept, l)
			}
		}
		out = kept
	}
	return out
}

// migrateBox adds b to the first dense layer that can take it, updating
// dense in place.
func migrateBox(dense []model.Layer, b model.Box, mode EnhanceMode, rng *rand.Rand) bool {
	for j := range dense {
		for _, o := range verticalCandidates(b.Dims) {
			if o.Height > dense[j].Height {
				continue
			}
			if l, ok := EnhanceLayer(dense[j], b.Oriented(o), mode, rng); ok {
				dense[j] = l
				return true
			}
		}
	}
	return false
}

// selectLayers chooses the fewest candidate layers that cover every box.
// An exact cover is tried first; if none exists the cover relaxes to at
// least once and boxes covered twice are kept only in the densest layer.
func (pb *PalletBuilder) selectLayers(ctx context.Context, primary, alternates []model.Layer) []model.Layer {
	candidates := append(append([]model.Layer(nil), primary...), alternates...)
	sets := make([][]string, len(candidates))
	for i, l := range candidates {
		sets[i] = l.BoxIDs()
	}
	hint := make([]int, len(primary))
	for i := range hint {
		hint[i] = i
	}
	problem := ilp.SetCoverProblem{Sets: sets, Exact: true, Hint: hint}

	sol, err := pb.solver.SolveSetCover(ctx, problem)
	exact := true
	if errors.Is(err, ilp.ErrInfeasible) {
		pb.metrics.SolverRun("set_cover", "infeasible")
		pb.logger.Info("no exact layer cover, relaxing to at-least-once")
		problem.Exact = false
		sol, err = pb.solver.SolveSetCover(ctx, problem)
		exact = false
	}
	if err != nil {
		pb.metrics.SolverRun("set_cover", "error")
		pb.logger.Error("layer selection failed", "error", err)
		return nil
	}
	pb.metrics.SolverRun("set_cover", sol.Status.String())

	selected := make([]model.Layer, len(sol.Selected))
	for i, idx := range sol.Selected {
		selected[i] = candidates[idx]
	}
	pb.logCoverage(problem.Universe(), selected)
	if !exact {
		selected = dedupeLayers(selected)
	}
	pb.logger.Info("layers selected",
		"candidates", len(candidates),
		"selected", len(selected),
		"exact", exact,
		"status", sol.Status.String())
	return selected
}

func (pb *PalletBuilder) logCoverage(universe []string, selected []model.Layer) {
	count := make(map[string]int, len(universe))
	for _, l := range selected {
		for _, id := range l.BoxIDs() {
			count[id]++
		}
	}
	var over, missing []string
	for _, id := range universe {
		switch {
		case count[id] == 0:
			missing = append(missing, id)
		case count[id] > 1:
			over = append(over, id)
		}
	}
	if len(over) > 0 {
		pb.logger.Warn("boxes covered by several layers", "boxes", over)
	}
	if len(missing) > 0 {
		pb.logger.Warn("boxes not covered by any layer", "boxes", missing)
	}
}

// dedupeLayers keeps each box only in the densest layer holding it and
// drops layers left empty.
func dedupeLayers(layers []model.Layer) []model.Layer {
	ordered := append([]model.Layer(nil), layers...)
	SortLayers(ordered)
	seen := make(map[string]bool)
	var out []model.Layer
	for _, l := range ordered {
		var dups []string
		for _, id := range l.BoxIDs() {
			if seen[id] {
				dups = append(dups, id)
			}
			seen[id] = true
		}
		if len(dups) > 0 {
			l = l.Without(dups...)
		}
		if l.NumberOfBoxes() > 0 {
			out = append(out, l)
		}
	}
	return out
}

// assignBins groups layers into pallets so each group's summed height stays
// within the stack height.
func (pb *PalletBuilder) assignBins(ctx context.Context, layers []model.Layer) ([][]model.Layer, error) {
	sizes := make([]int, len(layers))
	for i, l := range layers {
		sizes[i] = l.Height
	}
	sol, err := pb.solver.SolveBinPacking(ctx, ilp.BinPackingProblem{
		Sizes:    sizes,
		Capacity: pb.settings.EffectiveStackHeight(),
	})
	if err != nil {
		pb.metrics.SolverRun("bin_packing", "error")
		return nil, err
	}
	pb.metrics.SolverRun("bin_packing", sol.Status.String())
	bins := make([][]model.Layer, len(sol.Bins))
	for b, items := range sol.Bins {
		for _, i := range items {
			bins[b] = append(bins[b], layers[i])
		}
	}
	pb.logger.Info("layers assigned to pallets", "layers", len(layers), "pallets", len(bins), "status", sol.Status.String())
	return bins, nil
}

// StackOrder sorts a pallet's layers bottom to top: densest first, then
// fewer distinct box heights first.
func StackOrder(layers []model.Layer) []model.Layer {
	out := append([]model.Layer(nil), layers...)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := out[i].UsedArea(), out[j].UsedArea()
		if ai != aj {
			return ai > aj
		}
		return out[i].DistinctHeights() < out[j].DistinctHeights()
	})
	return out
}

// stackAll assigns layers to pallets and stacks them. Layers a pallet
// rejects for weight go through another assignment round; rounds stop when
// one stacks nothing. It returns the pallets and the layers never stacked.
func (pb *PalletBuilder) stackAll(ctx context.Context, layers []model.Layer) ([]model.PalletResult, []model.Layer) {
	var results []model.PalletResult
	var leftover, pending []model.Layer
	for _, l := range layers {
		if l.TotalWeight() > pb.settings.PalletCapacity {
			pb.logger.Warn("layer heavier than pallet capacity", "height", l.Height, "weight", l.TotalWeight())
			leftover = append(leftover, l)
			continue
		}
		pending = append(pending, l)
	}
	for len(pending) > 0 && ctx.Err() == nil {
		bins, err := pb.assignBins(ctx, pending)
		if err != nil {
			pb.logger.Error("pallet assignment failed", "error", err)
			break
		}
		var overflow []model.Layer
		stacked := 0
		for _, bin := range bins {
			p, placed, rejected := pb.stack(bin)
			if placed > 0 {
				results = append(results, p.Result())
			}
			stacked += placed
			overflow = append(overflow, rejected...)
		}
		pending = overflow
		if stacked == 0 {
			break
		}
	}
	return results, append(leftover, pending...)
}

// stack places one bin of layers on a new pallet in StackOrder and returns
// the number of layers placed. Layers that would overload the pallet are
// returned for another round. An overlap halts the pallet and the layers
// after it are returned as well.
func (pb *PalletBuilder) stack(bin []model.Layer) (*pallet.Pallet, int, []model.Layer) {
	opts := []pallet.Option{pallet.WithLogger(pb.logger)}
	if pb.snapshot != nil {
		opts = append(opts, pallet.WithSnapshotter(pb.snapshot))
	}
	p := pallet.New(pb.settings.Pallet(), pb.settings.PalletCapacity, opts...)
	var rejected []model.Layer
	placed, z := 0, 0
	order := StackOrder(bin)
	for i, l := range order {
		err := p.PlaceLayer(l, z)
		switch {
		case err == nil:
			placed++
			z += l.Height
		case errors.Is(err, pallet.ErrOverweight):
			rejected = append(rejected, l)
		default:
			pb.logger.Error("layer stacking halted", "error", err, "z", z)
			return p, placed, append(rejected, order[i+1:]...)
		}
	}
	return p, placed, rejected
}
