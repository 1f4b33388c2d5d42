package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/piwi3910/Palletizer/internal/ilp"
	"github.com/piwi3910/Palletizer/internal/logging"
	"github.com/piwi3910/Palletizer/internal/metrics"
	"github.com/piwi3910/Palletizer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallSettings() model.PackSettings {
	s := model.DefaultSettings()
	s.PalletWidth, s.PalletDepth, s.PalletHeight = 100, 100, 100
	s.StackHeight = 100
	s.PalletCapacity = 1000
	s.Iterations = 50
	s.SolverTimeLimit = 5 * time.Second
	return s
}

func newTestBuilder(s model.PackSettings) *PalletBuilder {
	return NewPalletBuilder(s, WithLogger(logging.Discard()), WithMetrics(metrics.New()), WithRunID("test"))
}

func cubes(n, size, weight int) map[string]model.Box {
	out := make(map[string]model.Box, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("c%02d", i)
		out[id] = model.NewBox(id, size, size, size, weight)
	}
	return out
}

// rowLayer places boxes side by side along x at y = 0.
func rowLayer(height int, boxes ...model.Box) model.Layer {
	l := model.NewLayer(height, 100, 100)
	x := 0
	for _, b := range boxes {
		l = l.With(model.Placement{Box: b, Position: model.Position{X: x}})
		x += b.Dims.Width
	}
	return l
}

// assertPacked checks that every input box appears exactly once across
// pallets and unplaced, and that no two boxes on a pallet overlap.
func assertPacked(t *testing.T, s model.PackSettings, in map[string]model.Box, res model.PackResult) {
	t.Helper()
	seen := make(map[string]int)
	for _, p := range res.Pallets {
		assert.Empty(t, p.Error)
		assert.LessOrEqual(t, p.TotalWeight, s.PalletCapacity)
		for i, a := range p.Boxes {
			seen[a.ID]++
			require.NotNil(t, a.Position)
			assert.True(t, a.Dims.IsPermutationOf(in[a.ID].Dims), "box %s changed shape", a.ID)
			assert.GreaterOrEqual(t, a.Position.X, 0)
			assert.GreaterOrEqual(t, a.Position.Y, 0)
			assert.GreaterOrEqual(t, a.Position.Z, 0)
			assert.LessOrEqual(t, a.Position.X+a.Dims.Width, s.PalletWidth)
			assert.LessOrEqual(t, a.Position.Y+a.Dims.Depth, s.PalletDepth)
			assert.LessOrEqual(t, a.ZTop(), s.PalletHeight)
			for _, b := range p.Boxes[i+1:] {
				assert.False(t, a.Overlaps(b), "boxes %s and %s overlap", a.ID, b.ID)
			}
		}
	}
	for _, b := range res.Unplaced {
		seen[b.ID]++
	}
	for id := range in {
		assert.Equal(t, 1, seen[id], "box %s accounted %d times", id, seen[id])
	}
	assert.Len(t, seen, len(in))
}

func TestBuild_LayeredFillsOnePallet(t *testing.T) {
	s := smallSettings()
	in := cubes(8, 50, 1)

	res, err := newTestBuilder(s).Build(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "test", res.RunID)
	require.Len(t, res.Pallets, 1)
	assert.Len(t, res.Pallets[0].Boxes, 8)
	assert.Len(t, res.Pallets[0].Layers, 2)
	assert.Empty(t, res.Unplaced)
	assert.InDelta(t, 100.0, res.TotalDensity(), 1e-9)
	assertPacked(t, s, in, res)
}

func TestBuild_UnpackableAndOverweightBoxes(t *testing.T) {
	s := smallSettings()
	in := cubes(4, 50, 1)
	in["huge"] = model.NewBox("huge", 200, 200, 200, 1)
	in["heavy"] = model.NewBox("heavy", 10, 10, 10, 5000)

	res, err := newTestBuilder(s).Build(context.Background(), in)
	require.NoError(t, err)

	var ids []string
	for _, b := range res.Unplaced {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"heavy", "huge"}, ids)
	assertPacked(t, s, in, res)
}

func TestBuild_EmptyPool(t *testing.T) {
	res, err := newTestBuilder(smallSettings()).Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Pallets)
	assert.Empty(t, res.Unplaced)
}

// brokenSolver fails set cover or bin packing and delegates the other
// problem to the built-in solver.
type brokenSolver struct {
	failCover bool
	real      *ilp.BranchAndBound
}

var errSolverDown = errors.New("solver unavailable")

func (s brokenSolver) SolveSetCover(ctx context.Context, p ilp.SetCoverProblem) (ilp.SetCoverSolution, error) {
	if s.failCover {
		return ilp.SetCoverSolution{}, errSolverDown
	}
	return s.real.SolveSetCover(ctx, p)
}

func (s brokenSolver) SolveBinPacking(ctx context.Context, p ilp.BinPackingProblem) (ilp.BinPackingSolution, error) {
	if !s.failCover {
		return ilp.BinPackingSolution{}, errSolverDown
	}
	return s.real.SolveBinPacking(ctx, p)
}

func TestBuild_SolverFailureLeavesBoxesUnplaced(t *testing.T) {
	for _, tc := range []struct {
		name       string
		failCover  bool
		wantLayers bool
	}{
		{name: "set cover", failCover: true, wantLayers: false},
		{name: "bin packing", failCover: false, wantLayers: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := smallSettings()
			in := cubes(6, 50, 1)
			solver := brokenSolver{failCover: tc.failCover, real: ilp.NewBranchAndBound(s.SolverTimeLimit, logging.Discard())}
			pb := NewPalletBuilder(s, WithLogger(logging.Discard()), WithSolver(solver))

			res, err := pb.Build(context.Background(), in)
			require.NoError(t, err)

			for _, p := range res.Pallets {
				assert.Empty(t, p.Boxes)
			}
			assert.Len(t, res.Unplaced, len(in))
			assert.Equal(t, tc.wantLayers, len(res.Layers) > 0)
			assertPacked(t, s, in, res)
		})
	}
}

func TestBuild_MixedBoxesConserved(t *testing.T) {
	for _, alternates := range []int{0, 2} {
		t.Run(fmt.Sprintf("alternates=%d", alternates), func(t *testing.T) {
			s := smallSettings()
			s.Alternates = alternates
			s.PalletCapacity = 200
			rng := rand.New(rand.NewSource(7))
			in := make(map[string]model.Box)
			for i := 0; i < 30; i++ {
				id := fmt.Sprintf("m%02d", i)
				in[id] = model.NewBox(id, 10+rng.Intn(40), 10+rng.Intn(40), 10+rng.Intn(40), 1+rng.Intn(20))
			}

			res, err := newTestBuilder(s).Build(context.Background(), in)
			require.NoError(t, err)
			assert.NotEmpty(t, res.Pallets)
			assertPacked(t, s, in, res)
			for _, p := range res.Pallets {
				assert.LessOrEqual(t, p.StackHeight(), s.EffectiveStackHeight())
			}
		})
	}
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := cubes(8, 50, 1)

	res, err := newTestBuilder(smallSettings()).Build(ctx, in)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, res.Unplaced, 8)
}

func TestBuild_DirectMode(t *testing.T) {
	s := smallSettings()
	s.Mode = model.ModeDirect
	in := cubes(9, 50, 1)

	res, err := newTestBuilder(s).Build(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, res.Pallets, 2)
	assert.Len(t, res.Pallets[0].Boxes, 8)
	assert.Len(t, res.Pallets[1].Boxes, 1)
	assert.Empty(t, res.Unplaced)
	assertPacked(t, s, in, res)
}

func TestBuild_DirectModeRespectsCapacity(t *testing.T) {
	s := smallSettings()
	s.Mode = model.ModeDirect
	s.PalletCapacity = 3
	in := cubes(9, 50, 1)

	res, err := newTestBuilder(s).Build(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, res.Pallets, 3)
	for _, p := range res.Pallets {
		assert.Len(t, p.Boxes, 3)
	}
	assertPacked(t, s, in, res)
}

func TestSeparatingIndex(t *testing.T) {
	layers := []model.Layer{
		rowLayer(10, model.NewBox("a", 50, 100, 10, 1)),
		rowLayer(10, model.NewBox("b", 50, 100, 10, 1)),
		rowLayer(10, model.NewBox("c", 10, 10, 10, 1)),
		rowLayer(10, model.NewBox("d", 10, 10, 10, 1)),
	}
	assert.Equal(t, 1, SeparatingIndex(layers))

	assert.Equal(t, 2, SeparatingIndex(layers[:2]), "two layers are never split")

	full := []model.Layer{
		rowLayer(10, model.NewBox("a", 100, 100, 10, 1)),
		rowLayer(10, model.NewBox("b", 100, 100, 10, 1)),
		rowLayer(10, model.NewBox("c", 10, 10, 10, 1)),
	}
	assert.Equal(t, 3, SeparatingIndex(full), "dense layers without free area")
}

func TestMigrate_EmptiesSparseLayers(t *testing.T) {
	layers := []model.Layer{
		rowLayer(10, model.NewBox("a", 50, 100, 10, 1)),
		rowLayer(10, model.NewBox("b", 50, 100, 10, 1)),
		rowLayer(10, model.NewBox("c", 10, 10, 10, 1)),
		rowLayer(10, model.NewBox("d", 10, 10, 10, 1)),
	}
	out := Migrate(layers, 1, rand.New(rand.NewSource(1)))

	require.Len(t, out, 2)
	var ids []string
	for _, l := range out {
		ids = append(ids, l.BoxIDs()...)
		assertLayerValid(t, l)
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
	assert.Equal(t, 1, layers[3].NumberOfBoxes(), "input layers must be unchanged")
}

func TestMigrate_TurnsBoxToFitLayerHeight(t *testing.T) {
	layers := []model.Layer{
		rowLayer(10, model.NewBox("a", 50, 100, 10, 1)),
		rowLayer(10, model.NewBox("b", 50, 100, 10, 1)),
		rowLayer(30, model.NewBox("tall", 10, 10, 30, 1)),
	}
	out := Migrate(layers, 0, rand.New(rand.NewSource(1)))

	require.Len(t, out, 2)
	p, ok := out[0].Placement("tall")
	require.True(t, ok)
	assert.LessOrEqual(t, p.Box.Dims.Height, 10)
}

func TestDedupeLayers_KeepsBoxInDensestLayer(t *testing.T) {
	a := rowLayer(10, model.NewBox("1", 40, 40, 10, 1), model.NewBox("2", 40, 40, 10, 1))
	b := rowLayer(10, model.NewBox("2", 10, 10, 10, 1), model.NewBox("3", 10, 10, 10, 1))

	out := dedupeLayers([]model.Layer{b, a})
	require.Len(t, out, 2)
	assert.Equal(t, []string{"1", "2"}, out[0].BoxIDs())
	assert.Equal(t, []string{"3"}, out[1].BoxIDs())
}

func TestSelectLayers_FallsBackToAtLeastOnce(t *testing.T) {
	pb := newTestBuilder(smallSettings())
	a := rowLayer(10, model.NewBox("1", 40, 40, 10, 1), model.NewBox("2", 40, 40, 10, 1))
	b := rowLayer(10, model.NewBox("2", 10, 10, 10, 1), model.NewBox("3", 10, 10, 10, 1))

	out := pb.selectLayers(context.Background(), []model.Layer{a, b}, nil)
	require.Len(t, out, 2)

	count := make(map[string]int)
	for _, l := range out {
		for _, id := range l.BoxIDs() {
			count[id]++
		}
	}
	assert.Equal(t, map[string]int{"1": 1, "2": 1, "3": 1}, count)
}

func TestSelectLayers_PrefersAlternateCover(t *testing.T) {
	pb := newTestBuilder(smallSettings())
	primary := []model.Layer{
		rowLayer(10, model.NewBox("1", 10, 10, 10, 1)),
		rowLayer(10, model.NewBox("2", 10, 10, 10, 1)),
	}
	alt := rowLayer(10, model.NewBox("1", 10, 10, 10, 1), model.NewBox("2", 10, 10, 10, 1))

	out := pb.selectLayers(context.Background(), primary, []model.Layer{alt})
	require.Len(t, out, 1)
	assert.ElementsMatch(t, []string{"1", "2"}, out[0].BoxIDs())
}

func TestAssignBins_HeightBudget(t *testing.T) {
	s := smallSettings()
	s.PalletHeight, s.StackHeight = 2200, 2055
	pb := newTestBuilder(s)
	layers := []model.Layer{
		model.NewLayer(1000, 100, 100),
		model.NewLayer(1000, 100, 100),
		model.NewLayer(100, 100, 100),
	}

	bins, err := pb.assignBins(context.Background(), layers)
	require.NoError(t, err)
	require.Len(t, bins, 2)
	for _, bin := range bins {
		total := 0
		for _, l := range bin {
			total += l.Height
		}
		assert.LessOrEqual(t, total, 2055)
	}
}

func TestStack_LayersAtCumulativeHeights(t *testing.T) {
	pb := newTestBuilder(smallSettings())
	sparse := rowLayer(30, model.NewBox("s", 10, 10, 30, 1))
	dense := rowLayer(20, model.NewBox("d1", 50, 100, 20, 1), model.NewBox("d2", 50, 100, 20, 1))

	p, placed, rejected := pb.stack([]model.Layer{sparse, dense})
	require.Equal(t, 2, placed)
	assert.Empty(t, rejected)

	res := p.Result()
	require.Len(t, res.Layers, 2)
	assert.Equal(t, 0, res.Layers[0].Placements[0].Position.Z, "densest layer at the bottom")
	assert.Equal(t, 20, res.Layers[1].Placements[0].Position.Z)
	for _, b := range res.Boxes {
		assert.GreaterOrEqual(t, b.ZBottom(), 0)
		assert.LessOrEqual(t, b.ZTop(), 50)
	}
}

func TestStackAll_OverweightLayerMovesToNextPallet(t *testing.T) {
	s := smallSettings()
	s.PalletCapacity = 10
	pb := newTestBuilder(s)
	layers := []model.Layer{
		rowLayer(10, model.NewBox("a", 50, 50, 10, 6)),
		rowLayer(10, model.NewBox("b", 50, 50, 10, 6)),
		rowLayer(10, model.NewBox("c", 50, 50, 10, 11)),
	}

	pallets, leftover := pb.stackAll(context.Background(), layers)
	require.Len(t, pallets, 2)
	for _, p := range pallets {
		assert.Len(t, p.Boxes, 1)
	}
	require.Len(t, leftover, 1)
	assert.Equal(t, []string{"c"}, leftover[0].BoxIDs())
}

func TestStackOrder(t *testing.T) {
	mixed := rowLayer(20, model.NewBox("m1", 50, 100, 20, 1), model.NewBox("m2", 50, 100, 10, 1))
	uniform := rowLayer(20, model.NewBox("u1", 50, 100, 20, 1), model.NewBox("u2", 50, 100, 20, 1))
	small := rowLayer(20, model.NewBox("s", 10, 10, 20, 1))

	out := StackOrder([]model.Layer{small, mixed, uniform})
	assert.Equal(t, []string{"u1", "u2"}, out[0].BoxIDs())
	assert.Equal(t, []string{"m1", "m2"}, out[1].BoxIDs())
	assert.Equal(t, []string{"s"}, out[2].BoxIDs())
}

func TestBuildDefaultScenarios(t *testing.T) {
	scenarios := BuildDefaultScenarios(model.DefaultSettings())

	var names []string
	for _, sc := range scenarios {
		names = append(names, sc.Name)
	}
	assert.Equal(t, []string{
		"Current Settings",
		"Direct 3D",
		"No Migration",
		"2 Alternate Layers",
		"Stack 2200mm (full height)",
	}, names)
	assert.Equal(t, model.ModeDirect, scenarios[1].Settings.Mode)
	assert.False(t, scenarios[2].Settings.Migrate)
}

func TestCompareScenarios(t *testing.T) {
	base := smallSettings()
	direct := base
	direct.Mode = model.ModeDirect
	scenarios := []ComparisonScenario{
		{Name: "layered", Settings: base},
		{Name: "direct", Settings: direct},
	}

	results := CompareScenarios(context.Background(), scenarios, cubes(8, 50, 1), WithLogger(logging.Discard()))
	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, 1, r.PalletsUsed, r.Scenario.Name)
		assert.Equal(t, 0, r.UnplacedCount, r.Scenario.Name)
		assert.InDelta(t, 100.0, r.Density, 1e-9)
	}
	assert.Equal(t, 2, results[0].LayersUsed)
	assert.Equal(t, 0, results[1].LayersUsed)
}
