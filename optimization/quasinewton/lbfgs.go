package quasinewton

import (
	"context"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/SOLVR/optimization"
)

// LBFGS is the limited-memory BFGS method. Instead of a dense inverse
// Hessian it keeps the last m (s, y) pairs in a bounded FIFO and
// reconstructs the search direction with the two-loop recursion.
type LBFGS struct {
	linesearch optimization.LineSearch
	m          int

	s [][]float64
	y [][]float64

	tolGrad float64
	tolCost float64
}

// NewLBFGS returns an L-BFGS solver with memory size m.
func NewLBFGS(ls optimization.LineSearch, m int) *LBFGS {
	return &LBFGS{
		linesearch: ls,
		m:          m,
		tolGrad:    math.Sqrt(epsilon),
		tolCost:    epsilon,
	}
}

// WithToleranceGrad stops the run once the gradient norm falls below
// tol. tol must not be negative.
func (l *LBFGS) WithToleranceGrad(tol float64) (*LBFGS, error) {
	if tol < 0 {
		return nil, optimization.InvalidParameterf("gradient tolerance must be >= 0, got %v", tol).
			WithComponent(l.Name())
	}
	l.tolGrad = tol
	return l, nil
}

// WithToleranceCost stops the run once successive costs differ by
// less than tol. tol must not be negative.
func (l *LBFGS) WithToleranceCost(tol float64) (*LBFGS, error) {
	if tol < 0 {
		return nil, optimization.InvalidParameterf("cost tolerance must be >= 0, got %v", tol).
			WithComponent(l.Name())
	}
	l.tolCost = tol
	return l, nil
}

// Name identifies the solver.
func (l *LBFGS) Name() string { return "LBFGS" }

// Memory returns the number of stored correction pairs.
func (l *LBFGS) Memory() int { return len(l.s) }

// Init evaluates cost and gradient at the initial parameter.
func (l *LBFGS) Init(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	if l.m <= 0 {
		return nil, optimization.InvalidParameterf("memory size must be > 0, got %d", l.m).
			WithComponent(l.Name()).WithOperation("Init")
	}
	cost, err := e.Cost(state.Param)
	if err != nil {
		return nil, err
	}
	grad, err := e.Gradient(state.Param)
	if err != nil {
		return nil, err
	}
	return optimization.NewIterData().Cost(cost).Grad(grad), nil
}

// Step reconstructs the direction with the two-loop recursion, runs
// the line search and appends the new correction pair, evicting the
// oldest one once the memory is full.
func (l *LBFGS) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	param := slices.Clone(state.Param)
	grad := slices.Clone(state.Grad)

	gamma := 1.0
	if k := len(l.s); k > 0 {
		sy := floats.Dot(l.s[k-1], l.y[k-1])
		yy := floats.Dot(l.y[k-1], l.y[k-1])
		gamma = sy / yy
	}

	dir := l.twoLoop(grad, gamma)

	l.linesearch.SetSearchDirection(dir)
	lsRes, err := optimization.New(e.Take(), l.linesearch).
		WithParam(slices.Clone(param)).
		WithCost(state.Cost).
		WithGrad(slices.Clone(grad)).
		Run(context.Background())
	if err != nil {
		return nil, err
	}
	e.Reclaim(lsRes.Evaluator)

	xk1 := lsRes.State.Param
	cost := lsRes.State.Cost

	newGrad, err := e.Gradient(xk1)
	if err != nil {
		return nil, err
	}

	n := len(param)
	sk := make([]float64, n)
	yk := make([]float64, n)
	floats.SubTo(sk, xk1, param)
	floats.SubTo(yk, newGrad, grad)

	if len(l.s) == l.m {
		l.s = l.s[1:]
		l.y = l.y[1:]
	}
	l.s = append(l.s, sk)
	l.y = append(l.y, yk)

	return optimization.NewIterData().
		Param(xk1).
		Cost(cost).
		Grad(newGrad).
		KV("gamma", gamma), nil
}

// Terminate stops on a small gradient norm or a vanishing change in
// cost.
func (l *LBFGS) Terminate(state *optimization.State) optimization.TerminationReason {
	if floats.Norm(state.Grad, 2) < l.tolGrad {
		return optimization.TargetPrecisionReached
	}
	if math.Abs(state.PrevCost-state.Cost) < l.tolCost {
		return optimization.NoChangeInCost
	}
	return optimization.NotTerminated
}

// twoLoop computes -Hₖ·g from the stored correction pairs.
func (l *LBFGS) twoLoop(grad []float64, gamma float64) []float64 {
	k := len(l.s)
	q := slices.Clone(grad)

	rhos := make([]float64, k)
	alphas := make([]float64, k)
	for i := k - 1; i >= 0; i-- {
		rhos[i] = 1.0 / floats.Dot(l.y[i], l.s[i])
		alphas[i] = rhos[i] * floats.Dot(l.s[i], q)
		floats.AddScaled(q, -alphas[i], l.y[i])
	}

	r := q
	floats.Scale(gamma, r)
	for i := 0; i < k; i++ {
		beta := rhos[i] * floats.Dot(l.y[i], r)
		floats.AddScaled(r, alphas[i]-beta, l.s[i])
	}

	for i := range r {
		r[i] = -r[i]
	}
	return r
}
