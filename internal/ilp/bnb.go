package ilp

import (
	"context"
	"errors"
	"log/slog"
	"math"
)

const integralTol = 1e-6

// Options bounds a branch-and-bound search.
type Options struct {
	// MaxNodes stops the search after this many nodes; 0 means no limit.
	MaxNodes int
	// MaxLPVars disables LP bounds at nodes with more free variables than
	// this; 0 means always use them. Without an LP bound a node is only
	// pruned by constraint propagation.
	MaxLPVars int
	// Initial is an optional feasible assignment used as the first incumbent.
	// It is ignored if it is not feasible.
	Initial []int8
	// LowerBound is a known positive lower bound on the optimum. The search
	// stops as soon as the incumbent reaches it. Zero disables the check.
	LowerBound float64
	Logger     *slog.Logger
}

type node struct {
	fix []int8
}

// Solve minimises p by depth-first branch and bound. The search stops when
// ctx is done or the node limit is reached; the best solution found so far is
// then returned with status Feasible. Without any solution it returns
// ErrNoSolution, and ErrInfeasible when the search completed without one.
func Solve(ctx context.Context, p *Program, opts Options) (Solution, error) {
	if err := p.Validate(); err != nil {
		return Solution{}, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	integral := p.integralObjective()

	var best []int8
	bestVal := math.Inf(1)
	if len(opts.Initial) == p.NumVars && p.Feasible(opts.Initial) {
		best = append([]int8(nil), opts.Initial...)
		bestVal = p.Value(best)
	}

	root := make([]int8, p.NumVars)
	for j := range root {
		root[j] = -1
	}
	stack := []node{{fix: root}}
	nodes := 0
	interrupted := false
	lpFailures := 0

	done := func() bool {
		return best != nil && opts.LowerBound > 0 && bestVal <= opts.LowerBound+integralTol
	}

	for len(stack) > 0 && !done() {
		if ctx.Err() != nil || (opts.MaxNodes > 0 && nodes >= opts.MaxNodes) {
			interrupted = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		if !propagate(p, nd.fix) {
			continue
		}

		bound := fixedValue(p, nd.fix)
		var x []float64
		var free []int
		useLP := opts.MaxLPVars == 0 || countFree(nd.fix) <= opts.MaxLPVars
		if useLP {
			r, err := relax(p, nd.fix)
			switch {
			case errors.Is(err, errNodeInfeasible):
				continue
			case err != nil:
				lpFailures++
			default:
				bound, x, free = r.bound, r.x, r.free
			}
		}
		if integral {
			bound = math.Ceil(bound - integralTol)
		}
		if bound >= bestVal-integralTol {
			continue
		}

		branch := -1
		if x != nil {
			branch = mostFractional(x, free)
			if branch < 0 {
				cand := append([]int8(nil), nd.fix...)
				for k, j := range free {
					cand[j] = int8(math.Round(x[k]))
				}
				if p.Feasible(cand) {
					if v := p.Value(cand); v < bestVal {
						best, bestVal = cand, v
					}
					continue
				}
			}
		}
		if branch < 0 {
			branch = firstFree(nd.fix)
		}
		if branch < 0 {
			if p.Feasible(nd.fix) {
				if v := p.Value(nd.fix); v < bestVal {
					best, bestVal = append([]int8(nil), nd.fix...), v
				}
			}
			continue
		}

		zero := append([]int8(nil), nd.fix...)
		zero[branch] = 0
		one := append([]int8(nil), nd.fix...)
		one[branch] = 1
		// Explore the 1-branch first; it reaches complete assignments sooner.
		stack = append(stack, node{fix: zero}, node{fix: one})
	}

	if lpFailures > 0 {
		logger.Debug("lp relaxation failures", "count", lpFailures)
	}
	if best == nil {
		if interrupted {
			return Solution{Nodes: nodes}, ErrNoSolution
		}
		return Solution{Nodes: nodes}, ErrInfeasible
	}
	status := Optimal
	if interrupted && !done() {
		status = Feasible
	}
	return Solution{X: best, Objective: bestVal, Status: status, Nodes: nodes}, nil
}

// propagate reports whether every constraint can still be satisfied by some
// completion of the fixings.
func propagate(p *Program, fix []int8) bool {
	for _, c := range p.Constraints {
		lo, hi := 0.0, 0.0
		for _, t := range c.Terms {
			switch fix[t.Var] {
			case 1:
				lo += t.Coef
				hi += t.Coef
			case -1:
				lo += math.Min(0, t.Coef)
				hi += math.Max(0, t.Coef)
			}
		}
		switch c.Sense {
		case AtMost:
			if lo > c.RHS+1e-9 {
				return false
			}
		case AtLeast:
			if hi < c.RHS-1e-9 {
				return false
			}
		default:
			if lo > c.RHS+1e-9 || hi < c.RHS-1e-9 {
				return false
			}
		}
	}
	return true
}

// fixedValue is a lower bound from the fixings alone.
func fixedValue(p *Program, fix []int8) float64 {
	v := 0.0
	for j, f := range fix {
		if f == 1 || (f == -1 && p.Objective[j] < 0) {
			v += p.Objective[j]
		}
	}
	return v
}

func countFree(fix []int8) int {
	n := 0
	for _, f := range fix {
		if f == -1 {
			n++
		}
	}
	return n
}

func firstFree(fix []int8) int {
	for j, f := range fix {
		if f == -1 {
			return j
		}
	}
	return -1
}

// mostFractional returns the program variable whose LP value is closest to
// one half, or -1 when all values are integral.
func mostFractional(x []float64, free []int) int {
	best, bestDist := -1, 0.5
	for k, v := range x {
		frac := v - math.Floor(v)
		if frac <= integralTol || frac >= 1-integralTol {
			continue
		}
		if d := math.Abs(frac - 0.5); best < 0 || d < bestDist {
			best, bestDist = free[k], d
		}
	}
	return best
}
