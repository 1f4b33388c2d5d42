package ilp

import (
	"context"
	"log/slog"
	"time"
)

// Solver is the narrow interface the packing engine uses for its two
// combinatorial stages. Implementations may wrap any integer-programming
// backend.
type Solver interface {
	SolveSetCover(ctx context.Context, p SetCoverProblem) (SetCoverSolution, error)
	SolveBinPacking(ctx context.Context, p BinPackingProblem) (BinPackingSolution, error)
}

// BranchAndBound is the built-in Solver.
type BranchAndBound struct {
	// TimeLimit bounds each solve; 0 leaves only the caller's context.
	TimeLimit time.Duration
	// MaxNodes bounds each search; 0 means unlimited.
	MaxNodes int
	// MaxLPVars disables LP bounds on nodes with more free variables.
	MaxLPVars int
	Logger    *slog.Logger
}

var _ Solver = (*BranchAndBound)(nil)

// NewBranchAndBound creates a solver with the given per-solve time limit.
func NewBranchAndBound(timeLimit time.Duration, logger *slog.Logger) *BranchAndBound {
	if logger == nil {
		logger = slog.Default()
	}
	return &BranchAndBound{
		TimeLimit: timeLimit,
		MaxLPVars: 400,
		Logger:    logger,
	}
}

func (s *BranchAndBound) solve(ctx context.Context, p *Program, initial []int8, lower float64) (Solution, error) {
	if s.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.TimeLimit)
		defer cancel()
	}
	start := time.Now()
	sol, err := Solve(ctx, p, Options{
		MaxNodes:   s.MaxNodes,
		MaxLPVars:  s.MaxLPVars,
		Initial:    initial,
		LowerBound: lower,
		Logger:     s.logger(),
	})
	s.logger().Debug("branch and bound finished",
		"vars", p.NumVars,
		"constraints", len(p.Constraints),
		"nodes", sol.Nodes,
		"objective", sol.Objective,
		"status", sol.Status.String(),
		"duration", time.Since(start),
		"error", err)
	return sol, err
}

func (s *BranchAndBound) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
