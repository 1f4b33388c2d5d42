package ilp

import (
	"context"
	"sort"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func flatten(bins [][]int) []int {
	var out []int
	for _, b := range bins {
		out = append(out, b...)
	}
	sort.Ints(out)
	return out
}

var _ = Describe("Solve", func() {
	It("finds the cheapest assignment satisfying all constraints", func() {
		// min 3a + 2b + 4c  s.t. a + b + c >= 2, a + c <= 1
		p := NewProgram(3)
		p.Objective = []float64{3, 2, 4}
		p.Add(AtLeast, 2, Term{0, 1}, Term{1, 1}, Term{2, 1})
		p.Add(AtMost, 1, Term{0, 1}, Term{2, 1})

		sol, err := Solve(context.Background(), p, Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(sol.Status).To(Equal(Optimal))
		Expect(sol.Ones()).To(Equal([]int{0, 1}))
		Expect(sol.Objective).To(BeNumerically("==", 5))
	})

	It("reports infeasible programs", func() {
		p := NewProgram(2)
		p.Add(Exactly, 1, Term{0, 1}, Term{1, 1})
		p.Add(Exactly, 2, Term{0, 1}, Term{1, 1})
		_, err := Solve(context.Background(), p, Options{})
		Expect(err).To(MatchError(ErrInfeasible))
	})

	It("rejects out-of-range variables", func() {
		p := NewProgram(1)
		p.Add(Exactly, 1, Term{3, 1})
		_, err := Solve(context.Background(), p, Options{})
		Expect(err).To(HaveOccurred())
	})

	Context("when the context is already done", func() {
		var ctx context.Context

		BeforeEach(func() {
			c, cancel := context.WithCancel(context.Background())
			cancel()
			ctx = c
		})

		It("returns ErrNoSolution without an incumbent", func() {
			p := NewProgram(2)
			p.Add(AtLeast, 1, Term{0, 1}, Term{1, 1})
			_, err := Solve(ctx, p, Options{})
			Expect(err).To(MatchError(ErrNoSolution))
		})

		It("returns the initial solution as feasible", func() {
			p := NewProgram(2)
			p.Objective = []float64{1, 1}
			p.Add(AtLeast, 1, Term{0, 1}, Term{1, 1})
			sol, err := Solve(ctx, p, Options{Initial: []int8{1, 1}})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(Feasible))
			Expect(sol.Objective).To(BeNumerically("==", 2))
		})
	})
})

var _ = Describe("independentRows", func() {
	It("drops duplicated rows", func() {
		keep, err := independentRows([][]float64{{1, 1, 0}, {1, 1, 0}, {0, 1, 1}}, []float64{1, 1, 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(keep).To(Equal([]int{0, 2}))
	})

	It("detects inconsistent duplicated rows", func() {
		_, err := independentRows([][]float64{{1, 1}, {2, 2}}, []float64{1, 3})
		Expect(err).To(MatchError(errNodeInfeasible))
	})
})

var _ = Describe("BranchAndBound", func() {
	var solver *BranchAndBound

	BeforeEach(func() {
		solver = NewBranchAndBound(10*time.Second, nil)
	})

	Describe("SolveSetCover", func() {
		It("has no exact cover when two layers share a box", func() {
			p := SetCoverProblem{Sets: [][]string{{"1", "2"}, {"2", "3"}}, Exact: true}
			_, err := solver.SolveSetCover(context.Background(), p)
			Expect(err).To(MatchError(ErrInfeasible))
		})

		It("selects both layers when covering at least once", func() {
			p := SetCoverProblem{Sets: [][]string{{"1", "2"}, {"2", "3"}}}
			sol, err := solver.SolveSetCover(context.Background(), p)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Selected).To(Equal([]int{0, 1}))
			Expect(sol.Status).To(Equal(Optimal))
		})

		It("prefers one large layer over several small ones", func() {
			p := SetCoverProblem{
				Sets:  [][]string{{"1", "2"}, {"3"}, {"1"}, {"2", "3"}, {"1", "2", "3"}},
				Exact: true,
				Hint:  []int{0, 1},
			}
			sol, err := solver.SolveSetCover(context.Background(), p)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Selected).To(Equal([]int{4}))
		})

		It("handles boxes that always appear together", func() {
			p := SetCoverProblem{
				Sets:  [][]string{{"a", "b"}, {"a", "b", "c"}, {"c"}, {"d"}},
				Exact: true,
			}
			sol, err := solver.SolveSetCover(context.Background(), p)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Selected).To(Equal([]int{1, 3}))
		})

		It("returns nothing for no sets", func() {
			sol, err := solver.SolveSetCover(context.Background(), SetCoverProblem{})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Selected).To(BeEmpty())
		})
	})

	Describe("SolveBinPacking", func() {
		It("needs two bins when three layers exceed the stack budget", func() {
			p := BinPackingProblem{Sizes: []int{1000, 1000, 100}, Capacity: 2055}
			sol, err := solver.SolveBinPacking(context.Background(), p)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Bins).To(HaveLen(2))
			Expect(flatten(sol.Bins)).To(Equal([]int{0, 1, 2}))
			Expect(sol.Status).To(Equal(Optimal))
		})

		It("improves on first-fit decreasing", func() {
			p := BinPackingProblem{Sizes: []int{4, 4, 3, 3, 3, 3}, Capacity: 10}
			sol, err := solver.SolveBinPacking(context.Background(), p)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Bins).To(HaveLen(2))
			Expect(flatten(sol.Bins)).To(Equal([]int{0, 1, 2, 3, 4, 5}))
			for _, bin := range sol.Bins {
				load := 0
				for _, i := range bin {
					load += p.Sizes[i]
				}
				Expect(load).To(BeNumerically("<=", p.Capacity))
			}
		})

		It("rejects items larger than a bin", func() {
			_, err := solver.SolveBinPacking(context.Background(), BinPackingProblem{Sizes: []int{3000}, Capacity: 2055})
			Expect(err).To(MatchError(ErrInfeasible))
		})

		It("computes the volume bound", func() {
			Expect(BinPackingProblem{Sizes: []int{1000, 1000, 100}, Capacity: 2055}.LowerBound()).To(Equal(2))
		})
	})
})

var _ = Describe("Sense", func() {
	It("prints the relation", func() {
		Expect(AtMost.String()).To(Equal("<="))
		Expect(AtLeast.String()).To(Equal(">="))
		Expect(Exactly.String()).To(Equal("="))
	})
})
