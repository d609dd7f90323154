package quasinewton

import (
	"context"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SOLVR/optimization"
)

// BFGS maintains an inverse Hessian approximation through rank-two
// updates and searches along -H·g with a nested line search.
type BFGS struct {
	invHessian *mat.Dense
	linesearch optimization.LineSearch

	tolGrad float64
	tolCost float64
}

// NewBFGS returns a BFGS solver starting from the given inverse
// Hessian approximation, typically the identity.
func NewBFGS(initInvHessian *mat.Dense, ls optimization.LineSearch) *BFGS {
	return &BFGS{
		invHessian: initInvHessian,
		linesearch: ls,
		tolGrad:    math.Sqrt(epsilon),
		tolCost:    epsilon,
	}
}

const epsilon = 2.220446049250313e-16

// WithToleranceGrad stops the run once the gradient norm falls below
// tol. tol must not be negative.
func (b *BFGS) WithToleranceGrad(tol float64) (*BFGS, error) {
	if tol < 0 {
		return nil, optimization.InvalidParameterf("gradient tolerance must be >= 0, got %v", tol).
			WithComponent(b.Name())
	}
	b.tolGrad = tol
	return b, nil
}

// WithToleranceCost stops the run once successive costs differ by
// less than tol. tol must not be negative.
func (b *BFGS) WithToleranceCost(tol float64) (*BFGS, error) {
	if tol < 0 {
		return nil, optimization.InvalidParameterf("cost tolerance must be >= 0, got %v", tol).
			WithComponent(b.Name())
	}
	b.tolCost = tol
	return b, nil
}

// InverseHessian returns the current inverse Hessian approximation.
func (b *BFGS) InverseHessian() *mat.Dense { return b.invHessian }

// Name identifies the solver.
func (b *BFGS) Name() string { return "BFGS" }

// Init evaluates cost and gradient at the initial parameter.
func (b *BFGS) Init(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	if b.invHessian == nil {
		return nil, optimization.NotInitializedError("initial inverse Hessian required").
			WithComponent(b.Name()).WithOperation("Init")
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

// Step searches along -H·g and applies the BFGS inverse Hessian
// update.
func (b *BFGS) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	param := slices.Clone(state.Param)
	grad := slices.Clone(state.Grad)

	p := descentDirection(b.invHessian, grad)

	b.linesearch.SetSearchDirection(p)
	lsRes, err := optimization.New(e.Take(), b.linesearch).
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

	b.invHessian = bfgsUpdate(b.invHessian, sk, yk)

	return optimization.NewIterData().
		Param(xk1).
		Cost(cost).
		Grad(newGrad), nil
}

// Terminate stops on a small gradient norm or a vanishing change in
// cost.
func (b *BFGS) Terminate(state *optimization.State) optimization.TerminationReason {
	if floats.Norm(state.Grad, 2) < b.tolGrad {
		return optimization.TargetPrecisionReached
	}
	if math.Abs(state.PrevCost-state.Cost) < b.tolCost {
		return optimization.NoChangeInCost
	}
	return optimization.NotTerminated
}

// bfgsUpdate computes (I - ρsyᵀ) H (I - ρysᵀ) + ρssᵀ with
// ρ = 1/(yᵀs).
func bfgsUpdate(h *mat.Dense, s, y []float64) *mat.Dense {
	n := len(s)
	rho := 1.0 / floats.Dot(y, s)

	sv := mat.NewVecDense(n, s)
	yv := mat.NewVecDense(n, y)

	var syt, yst, sst mat.Dense
	syt.Outer(rho, sv, yv)
	yst.Outer(rho, yv, sv)
	sst.Outer(rho, sv, sv)

	id := eye(n)
	var left, right mat.Dense
	left.Sub(id, &syt)
	right.Sub(id, &yst)

	var tmp, out mat.Dense
	tmp.Mul(h, &right)
	out.Mul(&left, &tmp)
	out.Add(&out, &sst)
	return &out
}
