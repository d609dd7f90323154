package quasinewton

import (
	"context"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SOLVR/optimization"
)

// SR1 is the symmetric rank-one method. Its update has a denominator
// that can vanish, so the update is skipped whenever
// |(s - Hy)ᵀy| < r·‖s‖·‖s - Hy‖; the approximation is left untouched
// in that case.
type SR1 struct {
	invHessian *mat.Dense
	linesearch optimization.LineSearch

	r       float64
	tolGrad float64
	tolCost float64
}

// NewSR1 returns an SR1 solver starting from the given inverse
// Hessian approximation. The skip factor r defaults to 1e-8.
func NewSR1(initInvHessian *mat.Dense, ls optimization.LineSearch) *SR1 {
	return &SR1{
		invHessian: initInvHessian,
		linesearch: ls,
		r:          1e-8,
		tolGrad:    math.Sqrt(epsilon),
		tolCost:    epsilon,
	}
}

// WithFactor sets the skip factor, which must be in [0, 1].
func (s *SR1) WithFactor(r float64) (*SR1, error) {
	if r < 0 || r > 1 {
		return nil, optimization.InvalidParameterf("skip factor must be in [0, 1], got %v", r).
			WithComponent(s.Name())
	}
	s.r = r
	return s, nil
}

// WithToleranceGrad stops the run once the gradient norm falls below
// tol. tol must not be negative.
func (s *SR1) WithToleranceGrad(tol float64) (*SR1, error) {
	if tol < 0 {
		return nil, optimization.InvalidParameterf("gradient tolerance must be >= 0, got %v", tol).
			WithComponent(s.Name())
	}
	s.tolGrad = tol
	return s, nil
}

// WithToleranceCost stops the run once successive costs differ by
// less than tol. tol must not be negative.
func (s *SR1) WithToleranceCost(tol float64) (*SR1, error) {
	if tol < 0 {
		return nil, optimization.InvalidParameterf("cost tolerance must be >= 0, got %v", tol).
			WithComponent(s.Name())
	}
	s.tolCost = tol
	return s, nil
}

// InverseHessian returns the current inverse Hessian approximation.
func (s *SR1) InverseHessian() *mat.Dense { return s.invHessian }

// Name identifies the solver.
func (s *SR1) Name() string { return "SR1" }

// Init evaluates cost and gradient at the initial parameter.
func (s *SR1) Init(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	if s.invHessian == nil {
		return nil, optimization.NotInitializedError("initial inverse Hessian required").
			WithComponent(s.Name()).WithOperation("Init")
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

// Step searches along -H·g and applies the rank-one update unless the
// skip rule fires.
func (s *SR1) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	param := slices.Clone(state.Param)
	grad := slices.Clone(state.Grad)

	p := descentDirection(s.invHessian, grad)

	s.linesearch.SetSearchDirection(p)
	lsRes, err := optimization.New(e.Take(), s.linesearch).
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

	updated, denom := sr1Update(s.invHessian, sk, yk, s.r)

	return optimization.NewIterData().
		Param(xk1).
		Cost(cost).
		Grad(newGrad).
		KV("denominator", denom).
		KV("hessian_update", updated), nil
}

// Terminate stops on a small gradient norm or a vanishing change in
// cost.
func (s *SR1) Terminate(state *optimization.State) optimization.TerminationReason {
	if floats.Norm(state.Grad, 2) < s.tolGrad {
		return optimization.TargetPrecisionReached
	}
	if math.Abs(state.PrevCost-state.Cost) < s.tolCost {
		return optimization.NoChangeInCost
	}
	return optimization.NotTerminated
}

// sr1Update applies H += (s-Hy)(s-Hy)ᵀ/((s-Hy)ᵀy) in place when the
// denominator is safely away from zero. It reports whether the update
// was applied and the denominator value.
func sr1Update(h *mat.Dense, s, y []float64, r float64) (bool, float64) {
	n := len(s)
	yv := mat.NewVecDense(n, y)

	hy := mat.NewVecDense(n, nil)
	hy.MulVec(h, yv)

	u := make([]float64, n)
	for i := 0; i < n; i++ {
		u[i] = s[i] - hy.AtVec(i)
	}
	denom := floats.Dot(u, y)

	if math.Abs(denom) < r*floats.Norm(s, 2)*floats.Norm(u, 2) {
		return false, denom
	}

	uv := mat.NewVecDense(n, u)
	var uut mat.Dense
	uut.Outer(1.0/denom, uv, uv)
	h.Add(h, &uut)
	return true, denom
}
