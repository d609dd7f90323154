package gaussnewton

import (
	"context"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SOLVR/optimization"
)

// GaussNewtonLS is Gauss-Newton with the step length chosen by a
// nested line search over the residual norm.
type GaussNewtonLS struct {
	optimization.SolverDefaults

	linesearch optimization.LineSearch
	tol        float64
}

// NewGaussNewtonLS returns a line search Gauss-Newton solver.
func NewGaussNewtonLS(ls optimization.LineSearch) *GaussNewtonLS {
	return &GaussNewtonLS{
		linesearch: ls,
		tol:        math.Sqrt(epsilon),
	}
}

// WithTolerance stops the run once successive residual norms differ
// by less than tol. tol must be positive.
func (g *GaussNewtonLS) WithTolerance(tol float64) (*GaussNewtonLS, error) {
	if tol <= 0 {
		return nil, optimization.InvalidParameterf("tolerance must be > 0, got %v", tol).
			WithComponent(g.Name())
	}
	g.tol = tol
	return g, nil
}

// Name identifies the solver.
func (g *GaussNewtonLS) Name() string { return "GaussNewtonLineSearch" }

// Step computes the Gauss-Newton direction and delegates the step
// length to the line search, run over a view of the problem that
// exposes the residual norm as cost.
func (g *GaussNewtonLS) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	param := slices.Clone(state.Param)

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

	m, n := jac.Dims()
	gradv := mat.NewVecDense(n, nil)
	gradv.MulVec(jac.T(), mat.NewVecDense(m, residuals))
	grad := make([]float64, n)
	for i := 0; i < n; i++ {
		grad[i] = gradv.AtVec(i)
	}

	dir := make([]float64, n)
	for i := range p {
		dir[i] = -p[i]
	}

	g.linesearch.SetSearchDirection(dir)
	lsRes, err := optimization.New(&residualNormProblem{op: e.Take()}, g.linesearch).
		WithParam(param).
		WithCost(floats.Norm(residuals, 2)).
		WithGrad(grad).
		Run(context.Background())
	if err != nil {
		return nil, err
	}

	// unwrap the view to hand the problem back, keeping the counts
	view, ok := lsRes.Evaluator.Take().(*residualNormProblem)
	if !ok {
		return nil, optimization.PotentialBugf("nested line search returned a foreign problem").
			WithComponent(g.Name()).WithOperation("Step")
	}
	e.Restore(view.op)
	e.MergeCounts(lsRes.Evaluator)

	return optimization.NewIterData().
		Param(lsRes.State.Param).
		Cost(lsRes.State.Cost), nil
}

// Terminate stops once the residual norm stops changing.
func (g *GaussNewtonLS) Terminate(state *optimization.State) optimization.TerminationReason {
	if math.Abs(state.PrevCost-state.Cost) < g.tol {
		return optimization.NoChangeInCost
	}
	return optimization.NotTerminated
}

// residualNormProblem presents a residual problem to the line search
// as a plain cost function: cost ‖r(x)‖ and gradient J(x)ᵀ r(x).
type residualNormProblem struct {
	op interface{}
}

func (r *residualNormProblem) Cost(param []float64) (float64, error) {
	op, ok := r.op.(optimization.Operator)
	if !ok {
		return 0, optimization.NotImplementedError("Operator")
	}
	res, err := op.Apply(param)
	if err != nil {
		return 0, err
	}
	return floats.Norm(res, 2), nil
}

func (r *residualNormProblem) Gradient(param []float64) ([]float64, error) {
	op, ok := r.op.(optimization.Operator)
	if !ok {
		return nil, optimization.NotImplementedError("Operator")
	}
	jf, ok := r.op.(optimization.JacobianFunc)
	if !ok {
		return nil, optimization.NotImplementedError("JacobianFunc")
	}
	res, err := op.Apply(param)
	if err != nil {
		return nil, err
	}
	jac, err := jf.Jacobian(param)
	if err != nil {
		return nil, err
	}
	m, n := jac.Dims()
	gv := mat.NewVecDense(n, nil)
	gv.MulVec(jac.T(), mat.NewVecDense(m, res))
	grad := make([]float64, n)
	for i := 0; i < n; i++ {
		grad[i] = gv.AtVec(i)
	}
	return grad, nil
}
