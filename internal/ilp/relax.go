package ilp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const rankTol = 1e-9

// relaxation is the LP relaxation of a program at one search node.
type relaxation struct {
	free  []int   // program variable of each LP column
	value float64 // objective contribution of variables fixed to 1
	x     []float64
	bound float64
}

// errNodeInfeasible marks a node whose fixings cannot be completed.
var errNodeInfeasible = errors.New("node infeasible")

// relax solves the LP relaxation of p with the given fixings (-1 free, 0 or
// 1 fixed). Free variables are bounded by 0 <= x <= 1. It returns
// errNodeInfeasible when the LP proves the node infeasible, and another
// error when the LP could not be solved.
func relax(p *Program, fix []int8) (*relaxation, error) {
	r := &relaxation{}
	col := make(map[int]int)
	for j, f := range fix {
		switch f {
		case -1:
			col[j] = len(r.free)
			r.free = append(r.free, j)
		case 1:
			r.value += p.Objective[j]
		}
	}
	nf := len(r.free)
	if nf == 0 {
		if !p.Feasible(fix) {
			return nil, errNodeInfeasible
		}
		r.bound = r.value
		return r, nil
	}

	type row struct {
		coef  []float64 // over free variables
		slack float64   // 0 for equality rows
		rhs   float64
	}
	var eq, ineq []row
	for _, c := range p.Constraints {
		coef := make([]float64, nf)
		rhs := c.RHS
		nonzero := false
		for _, t := range c.Terms {
			switch fix[t.Var] {
			case 1:
				rhs -= t.Coef
			case -1:
				coef[col[t.Var]] += t.Coef
				nonzero = nonzero || t.Coef != 0
			}
		}
		if !nonzero {
			if !c.satisfied(c.RHS - rhs) {
				return nil, errNodeInfeasible
			}
			continue
		}
		switch c.Sense {
		case Exactly:
			eq = append(eq, row{coef: coef, rhs: rhs})
		case AtMost:
			ineq = append(ineq, row{coef: coef, slack: 1, rhs: rhs})
		case AtLeast:
			ineq = append(ineq, row{coef: coef, slack: -1, rhs: rhs})
		}
	}

	eqA := make([][]float64, len(eq))
	eqB := make([]float64, len(eq))
	for i, e := range eq {
		eqA[i], eqB[i] = e.coef, e.rhs
	}
	keep, err := independentRows(eqA, eqB)
	if err != nil {
		return nil, err
	}

	// Columns: free variables, one slack per inequality, one per bound.
	m := len(keep) + len(ineq) + nf
	n := nf + len(ineq) + nf
	A := mat.NewDense(m, n, nil)
	b := make([]float64, m)
	c := make([]float64, n)
	for k, j := range r.free {
		c[k] = p.Objective[j]
	}
	setRow := func(i int, coef []float64, slackCol int, slack, rhs float64) {
		sign := 1.0
		if rhs < 0 {
			sign = -1
		}
		for k, v := range coef {
			if v != 0 {
				A.Set(i, k, sign*v)
			}
		}
		if slackCol >= 0 {
			A.Set(i, slackCol, sign*slack)
		}
		b[i] = sign * rhs
	}
	i := 0
	for _, k := range keep {
		setRow(i, eqA[k], -1, 0, eqB[k])
		i++
	}
	for k, in := range ineq {
		setRow(i, in.coef, nf+k, in.slack, in.rhs)
		i++
	}
	for k := 0; k < nf; k++ {
		A.Set(i, k, 1)
		A.Set(i, nf+len(ineq)+k, 1)
		b[i] = 1
		i++
	}

	opt, x, err := simplex(c, A, b)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return nil, errNodeInfeasible
		}
		return nil, err
	}
	r.x = x[:nf]
	r.bound = r.value + opt
	return r, nil
}

// simplex wraps lp.Simplex, converting its shape panics into errors.
func simplex(c []float64, A mat.Matrix, b []float64) (opt float64, x []float64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("ilp: simplex: %v", rec)
		}
	}()
	return lp.Simplex(c, A, b, 1e-10, nil)
}

// independentRows returns the indices of a maximal linearly independent
// subset of the rows of a. A dependent row whose right-hand side disagrees
// with the rows it depends on makes the system inconsistent.
func independentRows(a [][]float64, b []float64) ([]int, error) {
	var basis, basisAug [][]float64
	var keep []int
	for i, r := range a {
		res := residual(r, basis)
		aug := append(append([]float64(nil), r...), b[i])
		resAug := residual(aug, basisAug)
		scale := math.Max(1, floats.Norm(aug, 2))
		if floats.Norm(res, 2) <= rankTol*scale {
			if floats.Norm(resAug, 2) > rankTol*scale*1e3 {
				return nil, errNodeInfeasible
			}
			continue
		}
		floats.Scale(1/floats.Norm(res, 2), res)
		floats.Scale(1/floats.Norm(resAug, 2), resAug)
		basis = append(basis, res)
		basisAug = append(basisAug, resAug)
		keep = append(keep, i)
	}
	return keep, nil
}

// residual returns v minus its projection onto an orthonormal basis.
func residual(v []float64, basis [][]float64) []float64 {
	out := append([]float64(nil), v...)
	for _, q := range basis {
		floats.AddScaled(out, -floats.Dot(out, q), q)
	}
	return out
}
