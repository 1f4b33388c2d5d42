package ilp

import (
	"context"
	"fmt"
	"sort"
)

// BinPackingProblem asks for the fewest bins of the given capacity holding
// all items.
type BinPackingProblem struct {
	Sizes    []int
	Capacity int
}

// BinPackingSolution lists the item indices assigned to each used bin.
type BinPackingSolution struct {
	Bins   [][]int
	Status Status
}

// LowerBound returns ceil(sum(sizes) / capacity).
func (p BinPackingProblem) LowerBound() int {
	total := 0
	for _, s := range p.Sizes {
		total += s
	}
	return (total + p.Capacity - 1) / p.Capacity
}

// firstFitDecreasing packs items largest first into the first bin with room.
// order lists the item indices by decreasing size.
func firstFitDecreasing(sizes []int, order []int, capacity int) [][]int {
	var bins [][]int
	var load []int
	for _, i := range order {
		placed := false
		for b := range bins {
			if load[b]+sizes[i] <= capacity {
				bins[b] = append(bins[b], i)
				load[b] += sizes[i]
				placed = true
				break
			}
		}
		if !placed {
			bins = append(bins, []int{i})
			load = append(load, sizes[i])
		}
	}
	return bins
}

// binProgram builds the assignment program over k candidate bins for items
// already sorted by decreasing size. Variable b is "bin b used"; variable
// k+i*k+b is "item i in bin b". Bins are used in order and item i may only
// open bins up to i, which removes symmetric solutions.
func binProgram(sizes []int, capacity, k int) *Program {
	n := len(sizes)
	prog := NewProgram(k + n*k)
	for b := 0; b < k; b++ {
		prog.Objective[b] = 1
	}
	assign := func(i, b int) int { return k + i*k + b }

	for i := 0; i < n; i++ {
		terms := make([]Term, 0, k)
		for b := 0; b < k && b <= i; b++ {
			terms = append(terms, Term{Var: assign(i, b), Coef: 1})
		}
		prog.Add(Exactly, 1, terms...)
		for b := i + 1; b < k; b++ {
			prog.Add(Exactly, 0, Term{Var: assign(i, b), Coef: 1})
		}
	}
	for b := 0; b < k; b++ {
		terms := []Term{{Var: b, Coef: -float64(capacity)}}
		for i := b; i < n; i++ {
			terms = append(terms, Term{Var: assign(i, b), Coef: float64(sizes[i])})
		}
		prog.Add(AtMost, 0, terms...)
		if b+1 < k {
			prog.Add(AtMost, 0, Term{Var: b + 1, Coef: 1}, Term{Var: b, Coef: -1})
		}
	}
	return prog
}

// SolveBinPacking assigns items to bins. First-fit decreasing gives the
// starting solution; when it already meets the volume bound it is returned
// without search.
func (s *BranchAndBound) SolveBinPacking(ctx context.Context, p BinPackingProblem) (BinPackingSolution, error) {
	if len(p.Sizes) == 0 {
		return BinPackingSolution{Status: Optimal}, nil
	}
	if p.Capacity <= 0 {
		return BinPackingSolution{}, fmt.Errorf("bin packing: capacity %d: %w", p.Capacity, ErrInfeasible)
	}
	for i, sz := range p.Sizes {
		if sz > p.Capacity {
			return BinPackingSolution{}, fmt.Errorf("bin packing: item %d of size %d exceeds capacity %d: %w", i, sz, p.Capacity, ErrInfeasible)
		}
	}

	order := make([]int, len(p.Sizes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return p.Sizes[order[a]] > p.Sizes[order[b]] })

	ffd := firstFitDecreasing(p.Sizes, order, p.Capacity)
	lower := p.LowerBound()
	if len(ffd) <= lower {
		return BinPackingSolution{Bins: ffd, Status: Optimal}, nil
	}

	sorted := make([]int, len(order))
	rank := make([]int, len(p.Sizes))
	for r, i := range order {
		sorted[r] = p.Sizes[i]
		rank[i] = r
	}
	k := len(ffd)
	prog := binProgram(sorted, p.Capacity, k)
	initial := make([]int8, prog.NumVars)
	for b, items := range ffd {
		initial[b] = 1
		for _, i := range items {
			initial[k+rank[i]*k+b] = 1
		}
	}

	sol, err := s.solve(ctx, prog, initial, float64(lower))
	if err != nil {
		return BinPackingSolution{}, fmt.Errorf("bin packing (%d items): %w", len(p.Sizes), err)
	}
	var bins [][]int
	for b := 0; b < k; b++ {
		if sol.X[b] != 1 {
			continue
		}
		var items []int
		for r := range sorted {
			if sol.X[k+r*k+b] == 1 {
				items = append(items, order[r])
			}
		}
		if len(items) > 0 {
			bins = append(bins, items)
		}
	}
	return BinPackingSolution{Bins: bins, Status: sol.Status}, nil
}
