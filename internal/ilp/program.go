// Package ilp solves the small 0-1 integer programs used to select layers
// and assign them to pallets.
//
// Programs are minimisation problems over binary variables with linear
// constraints. They are solved by depth-first branch and bound; each node's
// bound comes from the LP relaxation, computed with gonum's simplex.
package ilp

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInfeasible is returned when a program provably has no solution.
	ErrInfeasible = errors.New("ilp: program is infeasible")
	// ErrNoSolution is returned when the search stopped before finding any
	// feasible solution.
	ErrNoSolution = errors.New("ilp: no feasible solution found within limits")
)

// Sense is the relation of a constraint's left-hand side to its right-hand
// side.
type Sense int

const (
	AtMost Sense = iota
	AtLeast
	Exactly
)

func (s Sense) String() string {
	switch s {
	case AtMost:
		return "<="
	case AtLeast:
		return ">="
	default:
		return "="
	}
}

// Term is a coefficient on one variable.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is sum(terms) <sense> RHS.
type Constraint struct {
	Terms []Term
	Sense Sense
	RHS   float64
}

func (c Constraint) activity(x []int8) float64 {
	total := 0.0
	for _, t := range c.Terms {
		if x[t.Var] == 1 {
			total += t.Coef
		}
	}
	return total
}

func (c Constraint) satisfied(lhs float64) bool {
	const eps = 1e-9
	switch c.Sense {
	case AtMost:
		return lhs <= c.RHS+eps
	case AtLeast:
		return lhs >= c.RHS-eps
	default:
		return math.Abs(lhs-c.RHS) <= eps
	}
}

// Program minimises Objective·x over x in {0,1}^NumVars.
type Program struct {
	NumVars     int
	Objective   []float64
	Constraints []Constraint
}

// NewProgram creates a program with n variables and a zero objective.
func NewProgram(n int) *Program {
	return &Program{NumVars: n, Objective: make([]float64, n)}
}

// Add appends a constraint.
func (p *Program) Add(sense Sense, rhs float64, terms ...Term) {
	p.Constraints = append(p.Constraints, Constraint{Terms: terms, Sense: sense, RHS: rhs})
}

// Validate checks variable indices and the objective length.
func (p *Program) Validate() error {
	if len(p.Objective) != p.NumVars {
		return fmt.Errorf("ilp: objective has %d coefficients for %d variables", len(p.Objective), p.NumVars)
	}
	for i, c := range p.Constraints {
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= p.NumVars {
				return fmt.Errorf("ilp: constraint %d references variable %d of %d", i, t.Var, p.NumVars)
			}
		}
	}
	return nil
}

// Feasible reports whether a full 0-1 assignment satisfies every constraint.
func (p *Program) Feasible(x []int8) bool {
	for _, c := range p.Constraints {
		if !c.satisfied(c.activity(x)) {
			return false
		}
	}
	return true
}

// Value returns the objective value of a full assignment.
func (p *Program) Value(x []int8) float64 {
	v := 0.0
	for j, xj := range x {
		if xj == 1 {
			v += p.Objective[j]
		}
	}
	return v
}

func (p *Program) integralObjective() bool {
	for _, c := range p.Objective {
		if c != math.Trunc(c) {
			return false
		}
	}
	return true
}

// Status describes how good a returned solution is.
type Status int

const (
	Optimal  Status = iota // search completed
	Feasible               // search interrupted; best solution found so far
)

func (s Status) String() string {
	if s == Optimal {
		return "optimal"
	}
	return "feasible"
}

// Solution is a 0-1 assignment with its objective value.
type Solution struct {
	X         []int8
	Objective float64
	Status    Status
	Nodes     int
}

// Ones returns the indices of variables set to 1.
func (s Solution) Ones() []int {
	var out []int
	for j, v := range s.X {
		if v == 1 {
			out = append(out, j)
		}
	}
	return out
}
