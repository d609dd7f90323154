package quasinewton

import (
	"context"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SOLVR/optimization"
)

// DFP is the Davidon-Fletcher-Powell method, the rank-two inverse
// Hessian update that preceded BFGS.
type DFP struct {
	invHessian *mat.Dense
	linesearch optimization.LineSearch

	tolGrad float64
}

// NewDFP returns a DFP solver starting from the given inverse Hessian
// approximation.
func NewDFP(initInvHessian *mat.Dense, ls optimization.LineSearch) *DFP {
	return &DFP{
		invHessian: initInvHessian,
		linesearch: ls,
		tolGrad:    math.Sqrt(epsilon),
	}
}

// WithToleranceGrad stops the run once the gradient norm falls below
// tol. tol must not be negative.
func (d *DFP) WithToleranceGrad(tol float64) (*DFP, error) {
	if tol < 0 {
		return nil, optimization.InvalidParameterf("gradient tolerance must be >= 0, got %v", tol).
			WithComponent(d.Name())
	}
	d.tolGrad = tol
	return d, nil
}

// InverseHessian returns the current inverse Hessian approximation.
func (d *DFP) InverseHessian() *mat.Dense { return d.invHessian }

// Name identifies the solver.
func (d *DFP) Name() string { return "DFP" }

// Init evaluates cost and gradient at the initial parameter.
func (d *DFP) Init(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	if d.invHessian == nil {
		return nil, optimization.NotInitializedError("initial inverse Hessian required").
			WithComponent(d.Name()).WithOperation("Init")
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

// Step searches along -H·g and applies the DFP update.
func (d *DFP) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	param := slices.Clone(state.Param)
	grad := slices.Clone(state.Grad)

	p := descentDirection(d.invHessian, grad)

	d.linesearch.SetSearchDirection(p)
	lsRes, err := optimization.New(e.Take(), d.linesearch).
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

	d.invHessian = dfpUpdate(d.invHessian, sk, yk)

	return optimization.NewIterData().
		Param(xk1).
		Cost(cost).
		Grad(newGrad), nil
}

// Terminate stops on a small gradient norm.
func (d *DFP) Terminate(state *optimization.State) optimization.TerminationReason {
	if floats.Norm(state.Grad, 2) < d.tolGrad {
		return optimization.TargetPrecisionReached
	}
	return optimization.NotTerminated
}

// dfpUpdate computes H - (Hy)(Hy)ᵀ/(yᵀHy) + ssᵀ/(yᵀs).
func dfpUpdate(h *mat.Dense, s, y []float64) *mat.Dense {
	n := len(s)
	sv := mat.NewVecDense(n, s)
	yv := mat.NewVecDense(n, y)

	hy := mat.NewVecDense(n, nil)
	hy.MulVec(h, yv)

	var hyhy, sst mat.Dense
	hyhy.Outer(1.0/mat.Dot(yv, hy), hy, hy)
	sst.Outer(1.0/floats.Dot(y, s), sv, sv)

	var out mat.Dense
	out.Sub(h, &hyhy)
	out.Add(&out, &sst)
	return &out
}
