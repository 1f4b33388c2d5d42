package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/piwi3910/Palletizer/internal/model"
)

// rotationStrategy controls how footprints are turned during construction.
type rotationStrategy int

const (
	rotBestFit    rotationStrategy = iota // Compare both footprint orientations, pick tighter fit
	rotAllNormal                          // Keep the clustered footprint (fallback to turned)
	rotAllRotated                         // Prefer the turned footprint (fallback to normal)
	rotRandom                             // Pick uniformly among all feasible slots
	numStrategies
)

// EnhanceMode selects how EnhanceLayer searches for room.
type EnhanceMode int

const (
	// EnhanceSimple tries the box's footprint as given at the first slot.
	EnhanceSimple EnhanceMode = iota
	// EnhanceShuffle samples slots in both footprint orientations and keeps
	// the tightest one found.
	EnhanceShuffle
)

func (m EnhanceMode) String() string {
	if m == EnhanceShuffle {
		return "shuffle"
	}
	return "simple"
}

const shuffleTries = 16

// LayerBuilder builds single-height layers by randomized greedy construction.
type LayerBuilder struct {
	Width, Depth int
	// Iterations caps construction attempts per cluster. Build may stop
	// earlier, see Patience and the area ceiling in Build.
	Iterations int
	// Workers runs attempts in parallel. Each worker owns its random source
	// and its candidate layers, so results depend only on Seed and Workers.
	Workers int
	// Alternates keeps this many runner-up layers with distinct box sets.
	Alternates int
	// Patience stops a worker after this many attempts without improvement;
	// 0 disables it.
	Patience int
	Seed     int64
	Logger   *slog.Logger
}

// NewLayerBuilder creates a layer builder over the pallet footprint.
func NewLayerBuilder(s model.PackSettings, logger *slog.Logger) *LayerBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LayerBuilder{
		Width:      s.PalletWidth,
		Depth:      s.PalletDepth,
		Iterations: s.Iterations,
		Workers:    s.Workers,
		Alternates: s.Alternates,
		Patience:   max(200, s.Iterations/20),
		Seed:       s.Seed,
		Logger:     logger,
	}
}

// candidate is one constructed layer with the attempt that produced it.
type candidate struct {
	layer model.Layer
	area  int
	index int
	key   string
}

func better(a, b candidate) bool {
	if a.area != b.area {
		return a.area > b.area
	}
	return a.index < b.index
}

// ranking keeps the best n candidates with distinct box sets.
type ranking struct {
	n    int
	best []candidate
}

func (r *ranking) offer(c candidate) bool {
	for i, b := range r.best {
		if b.key == c.key {
			if !better(c, b) {
				return false
			}
			r.best = append(r.best[:i], r.best[i+1:]...)
			break
		}
	}
	if len(r.best) == r.n && !better(c, r.best[len(r.best)-1]) {
		return false
	}
	r.best = append(r.best, c)
	sort.SliceStable(r.best, func(i, j int) bool { return better(r.best[i], r.best[j]) })
	if len(r.best) > r.n {
		r.best = r.best[:r.n]
	}
	return true
}

// Build runs the attempt budget for a cluster and returns the layer with the
// largest used area, followed by up to Alternates runner-ups. The result is
// empty only when no box of the cluster fits the footprint.
func (lb *LayerBuilder) Build(ctx context.Context, c Cluster) ([]model.Layer, error) {
	if len(c.Boxes) == 0 {
		return nil, nil
	}
	iterations := max(1, lb.Iterations)
	workers := min(max(1, lb.Workers), iterations)
	boxArea := 0
	for _, b := range c.Boxes {
		boxArea += b.Dims.FootprintArea()
	}
	ceiling := min(boxArea, lb.Width*lb.Depth)

	results := make([]*ranking, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		results[w] = &ranking{n: 1 + max(0, lb.Alternates)}
		g.Go(func() error {
			rng := rand.New(rand.NewSource(lb.Seed + int64(c.Height)*1_000_003 + int64(w)*7919))
			boxes := append([]model.Box(nil), c.Boxes...)
			stale := 0
			for i := w; i < iterations; i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				cand := lb.attempt(c.Height, boxes, i, rng)
				if results[w].offer(cand) && results[w].best[0].index == i {
					stale = 0
				} else {
					stale++
				}
				if results[w].best[0].area == ceiling && lb.Alternates == 0 {
					return nil
				}
				if lb.Patience > 0 && stale >= lb.Patience {
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &ranking{n: 1 + max(0, lb.Alternates)}
	for _, r := range results {
		for _, cand := range r.best {
			merged.offer(cand)
		}
	}
	var out []model.Layer
	for _, cand := range merged.best {
		if cand.layer.NumberOfBoxes() > 0 {
			out = append(out, cand.layer)
		}
	}
	if len(out) > 0 {
		lb.Logger.Debug("layer built",
			"height", c.Height,
			"cluster", len(c.Boxes),
			"boxes", out[0].NumberOfBoxes(),
			"used_area", out[0].UsedArea(),
			"alternates", len(out)-1)
	}
	return out, nil
}

// attempt performs one greedy construction. Attempt 0 visits boxes largest
// footprint first; later attempts visit them in random order. boxes is the
// worker's private copy and may be reordered.
func (lb *LayerBuilder) attempt(height int, boxes []model.Box, index int, rng *rand.Rand) candidate {
	if index == 0 {
		sort.SliceStable(boxes, func(i, j int) bool {
			return boxes[i].Dims.FootprintArea() > boxes[j].Dims.FootprintArea()
		})
	} else {
		rng.Shuffle(len(boxes), func(i, j int) { boxes[i], boxes[j] = boxes[j], boxes[i] })
	}
	strategy := rotationStrategy(index % int(numStrategies))

	packer := newRectPacker(lb.Width, lb.Depth)
	layer := model.NewLayer(height, lb.Width, lb.Depth)
	area := 0
	for _, b := range boxes {
		s, ok := chooseSlot(packer, b.Dims, strategy, rng)
		if !ok {
			continue
		}
		packer.place(rect{s.x, s.y, s.w, s.d})
		o := model.Cuboid{Width: s.w, Depth: s.d, Height: b.Dims.Height}
		layer.Placements = append(layer.Placements, model.Placement{
			Box:      b.Oriented(o),
			Position: model.Position{X: s.x, Y: s.y},
		})
		area += s.w * s.d
	}
	return candidate{layer: layer, area: area, index: index, key: boxSetKey(layer)}
}

// chooseSlot picks a slot for a footprint according to the strategy.
func chooseSlot(rp *rectPacker, dims model.Cuboid, strategy rotationStrategy, rng *rand.Rand) (slot, bool) {
	w, d := dims.Width, dims.Depth
	square := w == d
	switch strategy {
	case rotRandom:
		slots := rp.fits(w, d)
		if !square {
			slots = append(slots, rp.fits(d, w)...)
		}
		if len(slots) == 0 {
			return slot{}, false
		}
		return slots[rng.Intn(len(slots))], true
	case rotAllRotated:
		if !square {
			if s, ok := rp.bestFit(d, w); ok {
				return s, true
			}
		}
		return rp.bestFit(w, d)
	case rotBestFit:
		normal, okN := rp.bestFit(w, d)
		if square {
			return normal, okN
		}
		turned, okT := rp.bestFit(d, w)
		if okT && (!okN || turned.waste < normal.waste) {
			return turned, true
		}
		return normal, okN
	default:
		if s, ok := rp.bestFit(w, d); ok {
			return s, true
		}
		if square {
			return slot{}, false
		}
		return rp.bestFit(d, w)
	}
}

func boxSetKey(l model.Layer) string {
	ids := l.BoxIDs()
	sort.Strings(ids)
	return strings.Join(ids, "\x00")
}

// EnhanceLayer tries to add b to l without moving any existing placement.
// b must already stand at a height no greater than the layer height. It
// returns false when the layer's free area is smaller than b's footprint or
// no slot fits. rng is only used in shuffle mode.
func EnhanceLayer(l model.Layer, b model.Box, mode EnhanceMode, rng *rand.Rand) (model.Layer, bool) {
	if b.Dims.Height > l.Height || l.Contains(b.ID) {
		return l, false
	}
	if l.FreeArea() < b.Dims.FootprintArea() {
		return l, false
	}
	rp := packerForLayer(l)

	var s slot
	var ok bool
	switch mode {
	case EnhanceShuffle:
		slots := rp.fits(b.Dims.Width, b.Dims.Depth)
		if b.Dims.Width != b.Dims.Depth {
			slots = append(slots, rp.fits(b.Dims.Depth, b.Dims.Width)...)
		}
		for t := 0; t < shuffleTries && len(slots) > 0; t++ {
			c := slots[rng.Intn(len(slots))]
			if !ok || c.waste < s.waste {
				s, ok = c, true
			}
		}
	default:
		s, ok = rp.firstFit(b.Dims.Width, b.Dims.Depth)
	}
	if !ok {
		return l, false
	}
	o := model.Cuboid{Width: s.w, Depth: s.d, Height: b.Dims.Height}
	return l.With(model.Placement{
		Box:      b.Oriented(o),
		Position: model.Position{X: s.x, Y: s.y},
	}), true
}
