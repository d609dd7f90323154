// Package gaussnewton provides the Gauss-Newton method for nonlinear
// least squares, with a fixed step length or a nested line search.
package gaussnewton

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SOLVR/optimization"
)

// GaussNewton iterates x' = x - γ (JᵀJ)⁻¹ Jᵀ r, where r is the
// residual vector and J its Jacobian. The reported cost is the
// residual norm.
type GaussNewton struct {
	optimization.SolverDefaults

	gamma float64
	tol   float64
}

const epsilon = 2.220446049250313e-16

// NewGaussNewton returns a Gauss-Newton solver with a full step
// length.
func NewGaussNewton() *GaussNewton {
	return &GaussNewton{
		gamma: 1.0,
		tol:   math.Sqrt(epsilon),
	}
}

// WithGamma sets the step length, which must be in (0, 1].
func (g *GaussNewton) WithGamma(gamma float64) (*GaussNewton, error) {
	if gamma <= 0 || gamma > 1 {
		return nil, optimization.InvalidParameterf("gamma must be in (0, 1], got %v", gamma).
			WithComponent(g.Name())
	}
	g.gamma = gamma
	return g, nil
}

// WithTolerance stops the run once successive residual norms differ
// by less than tol. tol must be positive.
func (g *GaussNewton) WithTolerance(tol float64) (*GaussNewton, error) {
	if tol <= 0 {
		return nil, optimization.InvalidParameterf("tolerance must be > 0, got %v", tol).
			WithComponent(g.Name())
	}
	g.tol = tol
	return g, nil
}

// Name identifies the solver.
func (g *GaussNewton) Name() string { return "GaussNewton" }

// Step evaluates residuals and Jacobian and takes the damped
// Gauss-Newton step.
func (g *GaussNewton) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	param := state.Param

	residuals, err := e.Apply(param)
	if err != nil {
		return nil, err
	}
	jac, err := e.Jacobian(param)
	if err != nil {
		return nil, err
	}

	p, err := normalStep(jac, residuals)
	if err != nil {
		return nil, err
	}

	newParam := slices.Clone(param)
	floats.AddScaled(newParam, -g.gamma, p)

	return optimization.NewIterData().
		Param(newParam).
		Cost(floats.Norm(residuals, 2)), nil
}

// Terminate stops once the residual norm stops changing.
func (g *GaussNewton) Terminate(state *optimization.State) optimization.TerminationReason {
	if math.Abs(state.PrevCost-state.Cost) < g.tol {
		return optimization.NoChangeInCost
	}
	return optimization.NotTerminated
}

// normalStep solves the normal equations (JᵀJ) p = Jᵀ r.
func normalStep(jac *mat.Dense, residuals []float64) ([]float64, error) {
	m, n := jac.Dims()

	var jtj mat.Dense
	jtj.Mul(jac.T(), jac)

	var inv mat.Dense
	if err := inv.Inverse(&jtj); err != nil {
		return nil, optimization.WrapError(err, "normal equations are singular").
			WithComponent("GaussNewton").WithOperation("Step")
	}

	jtr := mat.NewVecDense(n, nil)
	jtr.MulVec(jac.T(), mat.NewVecDense(m, residuals))

	pv := mat.NewVecDense(n, nil)
	pv.MulVec(&inv, jtr)

	p := make([]float64, n)
	for i := 0; i < n; i++ {
		p[i] = pv.AtVec(i)
	}
	return p, nil
}
