package pallet

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/piwi3910/Palletizer/internal/model"
)

var (
	// ErrOverweight is returned when a placement would exceed the pallet's
	// weight capacity.
	ErrOverweight = errors.New("pallet: weight capacity exceeded")
	// ErrOverlap is returned when a placed box intersects another placed box.
	// The pallet refuses further placements once this happens.
	ErrOverlap = errors.New("pallet: placed boxes overlap")
	// ErrUnplaced is returned when a box without a position is placed.
	ErrUnplaced = errors.New("pallet: box has no position")
)

// Snapshotter receives the full list of placed boxes after each placement.
type Snapshotter interface {
	Snapshot(palletID string, boxes []model.Box) error
}

// Conflict is a pair of placed boxes that share volume.
type Conflict struct {
	A, B model.Box
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s overlaps %s", c.A, c.B)
}

// State is the mutable part of a pallet: its placed boxes, their total weight
// and the free volume left.
type State struct {
	boxes       []model.Box
	totalWeight int
	spaces      Arena
}

// NewState creates the state of an empty pallet: one free space over the
// whole volume, supported by the pallet floor.
func NewState(dims model.Cuboid) *State {
	s := &State{}
	floor := model.NewSurface(model.NewRect(0, 0, 0, dims.Width, dims.Depth))
	s.spaces.Insert(NewFreeSpace(dims, model.Position{}, floor))
	return s
}

// Place records b and updates the free volume. b must be positioned.
//
// Every space overlapping b is replaced by its fragments. Afterwards each
// surviving space whose base lies at b's top receives the part of b's top
// face above its footprint. Fragments are inserted last so the second pass
// only visits spaces that existed before b.
func (s *State) Place(b model.Box) {
	s.boxes = append(s.boxes, b)
	s.totalWeight += b.Weight

	var fragments []FreeSpace
	for _, id := range s.spaces.IDs() {
		fs, _ := s.spaces.Get(id)
		if !fs.Overlaps(b) {
			continue
		}
		fragments = append(fragments, fs.Segment(b)...)
		s.spaces.Retire(id)
	}

	top := model.NewSurface(b.Top())
	for _, id := range s.spaces.IDs() {
		fs, _ := s.spaces.Get(id)
		if fs.ZBottom() != b.ZTop() {
			continue
		}
		if fs.AddSurface(top) {
			s.spaces.update(id, fs)
		}
	}

	for _, fs := range fragments {
		s.spaces.Insert(fs)
	}
}

// Boxes returns copies of the placed boxes in placement order.
func (s *State) Boxes() []model.Box {
	out := make([]model.Box, len(s.boxes))
	copy(out, s.boxes)
	return out
}

// TotalWeight returns the summed weight of the placed boxes.
func (s *State) TotalWeight() int { return s.totalWeight }

// FreeSpaces returns the live free spaces.
func (s *State) FreeSpaces() []FreeSpace { return s.spaces.Spaces() }

// Pallet is a fixed-size carrier with a weight limit and one State.
type Pallet struct {
	ID        string
	Dims      model.Cuboid
	MaxWeight int

	state    *State
	layers   []model.Layer
	halted   error
	snapshot Snapshotter
	logger   *slog.Logger
}

// Option configures a Pallet.
type Option func(*Pallet)

// WithID overrides the generated pallet id.
func WithID(id string) Option {
	return func(p *Pallet) { p.ID = id }
}

// WithSnapshotter attaches a packed-box log.
func WithSnapshotter(s Snapshotter) Option {
	return func(p *Pallet) { p.snapshot = s }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pallet) { p.logger = l }
}

// New creates an empty pallet.
func New(dims model.Cuboid, maxWeight int, opts ...Option) *Pallet {
	p := &Pallet{
		ID:        uuid.New().String(),
		Dims:      dims,
		MaxWeight: maxWeight,
		state:     NewState(dims),
	}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("pallet", p.ID)
	return p
}

// HasCapacity reports whether additional weight still fits.
func (p *Pallet) HasCapacity(additional int) bool {
	return p.state.TotalWeight()+additional <= p.MaxWeight
}

// Halted returns the invariant violation that stopped placement, if any.
func (p *Pallet) Halted() error { return p.halted }

// PlaceBox places a positioned box. It fails with ErrOverweight when the box
// would exceed capacity, and with ErrOverlap when it intersects a box
// already on the pallet; in the latter case the pallet is halted and every
// later placement fails with the same error.
func (p *Pallet) PlaceBox(b model.Box) error {
	if err := p.checkPlaceable(b.Weight); err != nil {
		return err
	}
	if err := p.place(b); err != nil {
		return err
	}
	p.writeSnapshot()
	return nil
}

// PlaceLayer commits all placements of a layer at height z. The whole layer
// is weight-checked before any box is placed.
func (p *Pallet) PlaceLayer(l model.Layer, z int) error {
	if err := p.checkPlaceable(l.TotalWeight()); err != nil {
		return err
	}
	lifted := l.AtZ(z)
	for _, b := range lifted.Boxes() {
		if err := p.place(b); err != nil {
			return err
		}
	}
	p.layers = append(p.layers, lifted)
	p.writeSnapshot()
	p.logger.Debug("layer placed", "z", z, "height", l.Height, "boxes", l.NumberOfBoxes(), "free_spaces", p.state.spaces.Len())
	return nil
}

func (p *Pallet) checkPlaceable(weight int) error {
	if p.halted != nil {
		return p.halted
	}
	if !p.HasCapacity(weight) {
		return fmt.Errorf("%w: %d + %d > %d", ErrOverweight, p.state.TotalWeight(), weight, p.MaxWeight)
	}
	return nil
}

func (p *Pallet) place(b model.Box) error {
	if b.Position == nil {
		return fmt.Errorf("%w: %s", ErrUnplaced, b.ID)
	}
	for _, other := range p.state.boxes {
		if other.Overlaps(b) {
			p.halted = fmt.Errorf("%w: %s", ErrOverlap, Conflict{A: other, B: b})
			p.logger.Error("overlapping placement, pallet halted", "box", b.ID, "other", other.ID)
			return p.halted
		}
	}
	p.state.Place(b)
	return nil
}

func (p *Pallet) writeSnapshot() {
	if p.snapshot == nil {
		return
	}
	if err := p.snapshot.Snapshot(p.ID, p.state.Boxes()); err != nil {
		p.logger.Warn("packed-box log write failed", "error", err)
	}
}

// FeasibleSpaces returns every free space that can hold b in some
// orientation, ordered bottom, back, left first.
func (p *Pallet) FeasibleSpaces(b model.Box) []FreeSpace {
	var out []FreeSpace
	for _, fs := range p.state.FreeSpaces() {
		if fs.Accommodates(b) {
			out = append(out, fs)
		}
	}
	SortBottomBackLeft(out)
	return out
}

// OverlapDiagnostics returns all pairs of placed boxes that share volume.
func (p *Pallet) OverlapDiagnostics() []Conflict {
	boxes := p.state.boxes
	var out []Conflict
	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			if boxes[i].Overlaps(boxes[j]) {
				out = append(out, Conflict{A: boxes[i], B: boxes[j]})
			}
		}
	}
	return out
}

// State exposes the pallet's state for inspection.
func (p *Pallet) State() *State { return p.state }

// Result returns a snapshot of the pallet for reporting.
func (p *Pallet) Result() model.PalletResult {
	pr := model.PalletResult{
		ID:          p.ID,
		Dims:        p.Dims,
		MaxWeight:   p.MaxWeight,
		Layers:      append([]model.Layer(nil), p.layers...),
		Boxes:       p.state.Boxes(),
		TotalWeight: p.state.TotalWeight(),
	}
	if p.halted != nil {
		pr.Error = p.halted.Error()
	}
	return pr
}
