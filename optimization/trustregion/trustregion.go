// Package trustregion provides the trust region method together with
// three interchangeable subproblem solvers: Steihaug's truncated CG,
// the Cauchy point and the dogleg method.
package trustregion

import (
	"context"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SOLVR/optimization"
)

// TrustRegion minimizes a quadratic model of the cost function within
// an adaptive radius. Each iteration runs the subproblem solver in a
// nested driver, compares predicted and actual reduction and adjusts
// the radius.
type TrustRegion struct {
	optimization.SolverDefaults

	subproblem optimization.TrustRegionSubProblem

	radius    float64
	maxRadius float64
	eta       float64

	fxk float64
	mk0 float64
}

// NewTrustRegion returns a trust region solver with radius 1, maximum
// radius 100 and acceptance threshold eta = 0.125.
func NewTrustRegion(sub optimization.TrustRegionSubProblem) *TrustRegion {
	return &TrustRegion{
		subproblem: sub,
		radius:     1.0,
		maxRadius:  100.0,
		eta:        0.125,
	}
}

// WithRadius sets the initial radius, which must be positive.
func (t *TrustRegion) WithRadius(r float64) (*TrustRegion, error) {
	if r <= 0 {
		return nil, optimization.InvalidParameterf("radius must be > 0, got %v", r).
			WithComponent(t.Name())
	}
	t.radius = r
	return t, nil
}

// WithMaxRadius sets the radius ceiling, which must be positive.
func (t *TrustRegion) WithMaxRadius(r float64) (*TrustRegion, error) {
	if r <= 0 {
		return nil, optimization.InvalidParameterf("maximum radius must be > 0, got %v", r).
			WithComponent(t.Name())
	}
	t.maxRadius = r
	return t, nil
}

// WithEta sets the acceptance threshold, which must be in [0, 1/4).
func (t *TrustRegion) WithEta(eta float64) (*TrustRegion, error) {
	if eta < 0 || eta >= 0.25 {
		return nil, optimization.InvalidParameterf("eta must be in [0, 1/4), got %v", eta).
			WithComponent(t.Name())
	}
	t.eta = eta
	return t, nil
}

// Radius returns the current trust region radius.
func (t *TrustRegion) Radius() float64 { return t.radius }

// Name identifies the solver.
func (t *TrustRegion) Name() string { return "TrustRegion" }

// Init evaluates cost, gradient and Hessian at the initial parameter.
func (t *TrustRegion) Init(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	param := state.Param
	grad, err := e.Gradient(param)
	if err != nil {
		return nil, err
	}
	hessian, err := e.Hessian(param)
	if err != nil {
		return nil, err
	}
	cost, err := e.Cost(param)
	if err != nil {
		return nil, err
	}
	t.fxk = cost
	t.mk0 = cost
	return optimization.NewIterData().Cost(cost).Grad(grad).Hessian(hessian), nil
}

// Step solves the subproblem, decides acceptance via the reduction
// ratio and updates the radius.
func (t *TrustRegion) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	param := slices.Clone(state.Param)
	grad := slices.Clone(state.Grad)
	hessian := state.Hessian

	t.subproblem.SetRadius(t.radius)
	subRes, err := optimization.New(e.Take(), t.subproblem).
		WithParam(slices.Clone(param)).
		WithGrad(slices.Clone(grad)).
		WithHessian(mat.DenseCopyOf(hessian)).
		Run(context.Background())
	if err != nil {
		return nil, err
	}
	e.Reclaim(subRes.Evaluator)

	pk := subRes.State.Param

	newParam := slices.Clone(param)
	floats.Add(newParam, pk)

	fxkpk, err := e.Cost(newParam)
	if err != nil {
		return nil, err
	}
	mkpk := t.fxk + floats.Dot(pk, grad) + 0.5*weightedDot(hessian, pk, pk)

	rho := reductionRatio(t.fxk, fxkpk, t.mk0, mkpk)

	pkNorm := floats.Norm(pk, 2)
	switch {
	case rho < 0.25:
		t.radius = 0.25 * pkNorm
	case rho > 0.75 && math.Abs(pkNorm-t.radius) <= 10*epsilon:
		t.radius = math.Min(2*t.radius, t.maxRadius)
	}

	var data *optimization.IterData
	if rho > t.eta {
		newGrad, err := e.Gradient(newParam)
		if err != nil {
			return nil, err
		}
		newHessian, err := e.Hessian(newParam)
		if err != nil {
			return nil, err
		}
		t.fxk = fxkpk
		t.mk0 = fxkpk
		data = optimization.NewIterData().
			Param(newParam).
			Cost(fxkpk).
			Grad(newGrad).
			Hessian(newHessian)
	} else {
		data = optimization.NewIterData().
			Param(param).
			Cost(t.fxk)
	}
	return data.KV("radius", t.radius).KV("rho", rho), nil
}

const epsilon = 2.220446049250313e-16

// reductionRatio compares the actual cost reduction with the one the
// quadratic model predicted.
func reductionRatio(fxk, fxkpk, mk0, mkpk float64) float64 {
	return (fxk - fxkpk) / (mk0 - mkpk)
}

// weightedDot computes aᵀ H b.
func weightedDot(h *mat.Dense, a, b []float64) float64 {
	n := len(b)
	hv := mat.NewVecDense(n, nil)
	hv.MulVec(h, mat.NewVecDense(n, b))
	return floats.Dot(a, hv.RawVector().Data)
}
