package ilp

import (
	"context"
	"fmt"
	"sort"
)

// SetCoverProblem asks for the fewest sets covering every element that
// appears in any set. With Exact each element must be covered exactly once;
// otherwise at least once.
type SetCoverProblem struct {
	Sets  [][]string
	Exact bool
	// Hint is an optional selection of set indices to start from.
	Hint []int
}

// SetCoverSolution lists the selected set indices in ascending order.
type SetCoverSolution struct {
	Selected []int
	Status   Status
}

// Universe returns the sorted distinct elements of all sets.
func (p SetCoverProblem) Universe() []string {
	seen := make(map[string]bool)
	var out []string
	for _, set := range p.Sets {
		for _, e := range set {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Program builds the integer program: one binary variable per set and one
// covering constraint per element.
func (p SetCoverProblem) Program() *Program {
	prog := NewProgram(len(p.Sets))
	for j := range prog.Objective {
		prog.Objective[j] = 1
	}
	members := make(map[string][]int)
	for j, set := range p.Sets {
		seen := make(map[string]bool, len(set))
		for _, e := range set {
			if !seen[e] {
				seen[e] = true
				members[e] = append(members[e], j)
			}
		}
	}
	sense := AtLeast
	if p.Exact {
		sense = Exactly
	}
	for _, e := range p.Universe() {
		terms := make([]Term, len(members[e]))
		for k, j := range members[e] {
			terms[k] = Term{Var: j, Coef: 1}
		}
		prog.Add(sense, 1, terms...)
	}
	return prog
}

// SolveSetCover solves the covering program. A hint that is not a valid cover
// is ignored; in at-least-once mode a greedy cover is used instead.
func (s *BranchAndBound) SolveSetCover(ctx context.Context, p SetCoverProblem) (SetCoverSolution, error) {
	if len(p.Sets) == 0 {
		return SetCoverSolution{Status: Optimal}, nil
	}
	prog := p.Program()
	initial := selectionVector(len(p.Sets), p.Hint)
	if !prog.Feasible(initial) {
		initial = nil
		if !p.Exact {
			initial = selectionVector(len(p.Sets), greedyCover(p.Sets))
		}
	}
	sol, err := s.solve(ctx, prog, initial, 0)
	if err != nil {
		return SetCoverSolution{}, fmt.Errorf("set cover (%d sets, exact=%t): %w", len(p.Sets), p.Exact, err)
	}
	return SetCoverSolution{Selected: sol.Ones(), Status: sol.Status}, nil
}

func selectionVector(n int, selected []int) []int8 {
	x := make([]int8, n)
	for _, j := range selected {
		if j >= 0 && j < n {
			x[j] = 1
		}
	}
	return x
}

// greedyCover repeatedly takes the set covering the most uncovered elements.
func greedyCover(sets [][]string) []int {
	covered := make(map[string]bool)
	total := 0
	for _, set := range sets {
		for _, e := range set {
			if !covered[e] {
				covered[e] = true
				total++
			}
		}
	}
	clear(covered)
	var out []int
	for len(covered) < total {
		best, gain := -1, 0
		for j, set := range sets {
			g := 0
			for _, e := range set {
				if !covered[e] {
					g++
				}
			}
			if g > gain {
				best, gain = j, g
			}
		}
		if best < 0 {
			break
		}
		out = append(out, best)
		for _, e := range sets[best] {
			covered[e] = true
		}
	}
	sort.Ints(out)
	return out
}
