// Package engine builds pallets from a pool of boxes.
//
// The layered pipeline clusters boxes by height, builds dense single-height
// layers, migrates boxes out of sparse layers, selects a covering set of
// layers, assigns layers to pallets under the stack-height budget and stacks
// them. The direct pipeline places boxes one by one into free spaces.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/piwi3910/Palletizer/internal/ilp"
	"github.com/piwi3910/Palletizer/internal/metrics"
	"github.com/piwi3910/Palletizer/internal/model"
	"github.com/piwi3910/Palletizer/internal/pallet"
)

// ErrNoLayers is returned when boxes remain but no layer could be built.
var ErrNoLayers = errors.New("engine: no layers could be built")

// PalletBuilder runs the packing pipeline.
type PalletBuilder struct {
	settings model.PackSettings
	layers   *LayerBuilder
	solver   ilp.Solver
	logger   *slog.Logger
	metrics  *metrics.Recorder
	snapshot pallet.Snapshotter
	runID    string
	rng      *rand.Rand
}

// Option configures a PalletBuilder.
type Option func(*PalletBuilder)

// WithSolver replaces the built-in branch-and-bound solver.
func WithSolver(s ilp.Solver) Option {
	return func(pb *PalletBuilder) { pb.solver = s }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(pb *PalletBuilder) { pb.logger = l }
}

// WithMetrics records stage timings and totals.
func WithMetrics(m *metrics.Recorder) Option {
	return func(pb *PalletBuilder) { pb.metrics = m }
}

// WithSnapshotter attaches a packed-box log to every pallet.
func WithSnapshotter(s pallet.Snapshotter) Option {
	return func(pb *PalletBuilder) { pb.snapshot = s }
}

// WithRunID tags the result and log records with a run identifier.
func WithRunID(id string) Option {
	return func(pb *PalletBuilder) { pb.runID = id }
}

// NewPalletBuilder creates a builder for the given settings.
func NewPalletBuilder(settings model.PackSettings, opts ...Option) *PalletBuilder {
	pb := &PalletBuilder{
		settings: settings,
		rng:      rand.New(rand.NewSource(settings.Seed)),
	}
	for _, o := range opts {
		o(pb)
	}
	if pb.logger == nil {
		pb.logger = slog.Default()
	}
	if pb.runID != "" {
		pb.logger = pb.logger.With("run", pb.runID)
	}
	if pb.solver == nil {
		pb.solver = ilp.NewBranchAndBound(settings.SolverTimeLimit, pb.logger)
	}
	pb.layers = NewLayerBuilder(settings, pb.logger)
	return pb
}

// stackBounds is the volume a single layer may occupy.
func (pb *PalletBuilder) stackBounds() model.Cuboid {
	return model.Cuboid{
		Width:  pb.settings.PalletWidth,
		Depth:  pb.settings.PalletDepth,
		Height: pb.settings.EffectiveStackHeight(),
	}
}

// Build packs the box pool. The pool is not modified. Boxes that cannot be
// packed in any orientation, or weigh more than a pallet carries, are
// reported as unplaced. Stage failures are logged and leave their boxes
// unplaced; only context cancellation and ErrNoLayers are returned as errors,
// together with whatever was built.
func (pb *PalletBuilder) Build(ctx context.Context, pool map[string]model.Box) (model.PackResult, error) {
	res := model.PackResult{RunID: pb.runID}

	ids := make([]string, 0, len(pool))
	for id := range pool {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	bounds := pb.stackBounds()
	if pb.settings.Mode == model.ModeDirect {
		bounds = pb.settings.Pallet()
	}
	var boxes []model.Box
	for _, id := range ids {
		b := pool[id]
		b.ID = id
		b.Position = nil
		if !Packable(b, bounds) || b.Weight > pb.settings.PalletCapacity {
			pb.logger.Warn("box cannot be packed", "box", id, "dims", b.Dims.String(), "weight", b.Weight)
			res.Unplaced = append(res.Unplaced, b)
			continue
		}
		boxes = append(boxes, b)
	}
	pb.logger.Info("packing started", "boxes", len(boxes), "unpackable", len(res.Unplaced), "mode", string(pb.settings.Mode))

	var err error
	if pb.settings.Mode == model.ModeDirect {
		err = pb.buildDirect(ctx, boxes, &res)
	} else {
		err = pb.buildLayered(ctx, boxes, &res)
	}

	sort.Slice(res.Unplaced, func(i, j int) bool { return res.Unplaced[i].ID < res.Unplaced[j].ID })
	pb.metrics.Result(res)
	pb.logger.Info("packing finished",
		"pallets", len(res.Pallets),
		"placed", res.PlacedBoxes(),
		"unplaced", len(res.Unplaced),
		"density", res.TotalDensity())
	return res, err
}

func (pb *PalletBuilder) buildLayered(ctx context.Context, boxes []model.Box, res *model.PackResult) error {
	if len(boxes) == 0 {
		return nil
	}

	done := pb.metrics.Stage("greedy")
	primary, alternates, err := pb.GreedyLayers(ctx, boxes)
	done()
	if err != nil {
		res.Unplaced = append(res.Unplaced, boxes...)
		return err
	}
	pb.metrics.Layers("greedy", len(primary))
	if len(primary) == 0 {
		res.Unplaced = append(res.Unplaced, boxes...)
		return ErrNoLayers
	}

	SortLayers(primary)
	if pb.settings.Migrate {
		done = pb.metrics.Stage("migration")
		sep := SeparatingIndex(primary)
		before := len(primary)
		primary = Migrate(primary, sep, pb.rng)
		done()
		pb.logger.Info("migration finished", "separating_index", sep, "layers_before", before, "layers_after", len(primary))
	}
	pb.metrics.Layers("migration", len(primary))

	done = pb.metrics.Stage("set_cover")
	selected := pb.selectLayers(ctx, primary, alternates)
	done()
	pb.metrics.Layers("set_cover", len(selected))
	res.Layers = selected

	done = pb.metrics.Stage("stacking")
	pallets, leftover := pb.stackAll(ctx, selected)
	done()
	res.Pallets = pallets

	placed := make(map[string]bool)
	for _, p := range pallets {
		for _, b := range p.Boxes {
			placed[b.ID] = true
		}
	}
	for _, b := range boxes {
		if !placed[b.ID] {
			res.Unplaced = append(res.Unplaced, b)
		}
	}
	if len(leftover) > 0 {
		pb.logger.Warn("layers left unstacked", "layers", len(leftover))
	}
	return ctx.Err()
}
