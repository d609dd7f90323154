package newton

import (
	"context"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SOLVR/optimization"
)

// NewtonCG (truncated Newton) solves the Newton equations H p = -g
// approximately with conjugate gradient iterations, falling back to
// steepest descent on negative curvature, and delegates the step
// length to a nested line search.
type NewtonCG struct {
	optimization.SolverDefaults

	linesearch optimization.LineSearch

	curvatureThreshold float64
	tol                float64
}

const epsilon = 2.220446049250313e-16

// NewNewtonCG returns a Newton-CG solver using the given line search.
func NewNewtonCG(ls optimization.LineSearch) *NewtonCG {
	return &NewtonCG{
		linesearch: ls,
		tol:        epsilon,
	}
}

// WithCurvatureThreshold sets the curvature below which the inner CG
// loop stops.
func (n *NewtonCG) WithCurvatureThreshold(threshold float64) *NewtonCG {
	n.curvatureThreshold = threshold
	return n
}

// WithTolerance stops the run once successive costs differ by less
// than tol. tol must be positive.
func (n *NewtonCG) WithTolerance(tol float64) (*NewtonCG, error) {
	if tol <= 0 {
		return nil, optimization.InvalidParameterf("tolerance must be > 0, got %v", tol).
			WithComponent(n.Name())
	}
	n.tol = tol
	return n, nil
}

// Name identifies the solver.
func (n *NewtonCG) Name() string { return "NewtonCG" }

// Step finds an approximate Newton direction with truncated CG and
// runs the line search along it.
func (n *NewtonCG) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	param := slices.Clone(state.Param)

	grad, err := e.Gradient(param)
	if err != nil {
		return nil, err
	}
	hessian, err := e.Hessian(param)
	if err != nil {
		return nil, err
	}

	dir := n.truncatedCG(grad, hessian)

	n.linesearch.SetSearchDirection(dir)
	lsRes, err := optimization.New(e.Take(), n.linesearch).
		WithParam(param).
		WithCost(state.Cost).
		WithGrad(slices.Clone(grad)).
		Run(context.Background())
	if err != nil {
		return nil, err
	}
	e.Reclaim(lsRes.Evaluator)

	return optimization.NewIterData().
		Param(lsRes.State.Param).
		Cost(lsRes.State.Cost), nil
}

// Terminate stops once the cost stops changing.
func (n *NewtonCG) Terminate(state *optimization.State) optimization.TerminationReason {
	if math.Abs(state.Cost-state.PrevCost) < n.tol {
		return optimization.NoChangeInCost
	}
	return optimization.NotTerminated
}

// truncatedCG approximately solves H x = -g, stopping on negative
// curvature or once the residual is small relative to the gradient.
// On negative curvature in the very first iteration the steepest
// descent direction is returned.
func (n *NewtonCG) truncatedCG(grad []float64, hessian *mat.Dense) []float64 {
	dim := len(grad)

	x := make([]float64, dim)
	r := slices.Clone(grad)
	d := make([]float64, dim)
	for i, ri := range r {
		d[i] = -ri
	}
	rtr := floats.Dot(r, r)

	gradNorm := floats.Norm(grad, 2)
	residualTol := math.Min(0.5, math.Sqrt(gradNorm)) * gradNorm

	hd := mat.NewVecDense(dim, nil)
	for iter := 0; ; iter++ {
		hd.MulVec(hessian, mat.NewVecDense(dim, d))
		curvature := floats.Dot(d, hd.RawVector().Data)

		if curvature <= n.curvatureThreshold {
			if iter == 0 {
				for i, g := range grad {
					x[i] = -g
				}
			}
			break
		}

		alpha := rtr / curvature
		floats.AddScaled(x, alpha, d)
		floats.AddScaled(r, alpha, hd.RawVector().Data)

		rtrNew := floats.Dot(r, r)
		if math.Sqrt(rtrNew) <= residualTol {
			break
		}

		beta := rtrNew / rtr
		rtr = rtrNew
		for i := range d {
			d[i] = -r[i] + beta*d[i]
		}
	}
	return x
}
