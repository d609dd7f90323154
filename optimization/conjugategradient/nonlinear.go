package conjugategradient

import (
	"context"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/SOLVR/optimization"
)

// NonlinearCG minimizes a smooth cost function by conjugate gradient
// directions, delegating the step length to a nested line search.
type NonlinearCG struct {
	optimization.SolverDefaults

	linesearch optimization.LineSearch
	beta       BetaRule

	p []float64

	restartIters uint64
	orthEnabled  bool
	orthValue    float64
}

// NewNonlinearCG returns a nonlinear CG solver using the given line
// search and beta rule. Restarts are disabled by default.
func NewNonlinearCG(ls optimization.LineSearch, beta BetaRule) *NonlinearCG {
	return &NonlinearCG{
		linesearch:   ls,
		beta:         beta,
		restartIters: math.MaxUint64,
	}
}

// WithRestartIters restarts with the steepest descent direction every
// n iterations.
func (n *NonlinearCG) WithRestartIters(iters uint64) *NonlinearCG {
	n.restartIters = iters
	return n
}

// WithRestartOrthogonality restarts whenever successive gradients
// lose orthogonality, i.e. |gₖ₊₁ᵀgₖ| / ‖gₖ₊₁‖² reaches v.
func (n *NonlinearCG) WithRestartOrthogonality(v float64) *NonlinearCG {
	n.orthEnabled = true
	n.orthValue = v
	return n
}

// Name identifies the solver.
func (n *NonlinearCG) Name() string { return "NonlinearConjugateGradient" }

// Init evaluates cost and gradient at the initial parameter and takes
// the steepest descent direction.
func (n *NonlinearCG) Init(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	param := state.Param
	cost, err := e.Cost(param)
	if err != nil {
		return nil, err
	}
	grad, err := e.Gradient(param)
	if err != nil {
		return nil, err
	}

	n.p = make([]float64, len(grad))
	for i, g := range grad {
		n.p[i] = -g
	}
	return optimization.NewIterData().Cost(cost).Grad(grad), nil
}

// Step runs the line search along the current direction and updates
// the direction with the beta rule, restarting when configured to.
func (n *NonlinearCG) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	xk := slices.Clone(state.Param)
	grad := slices.Clone(state.Grad)

	n.linesearch.SetSearchDirection(slices.Clone(n.p))
	lsRes, err := optimization.New(e.Take(), n.linesearch).
		WithParam(xk).
		WithCost(state.Cost).
		WithGrad(slices.Clone(grad)).
		Run(context.Background())
	if err != nil {
		return nil, err
	}
	e.Reclaim(lsRes.Evaluator)

	xk1 := lsRes.State.Param

	newGrad, err := e.Gradient(xk1)
	if err != nil {
		return nil, err
	}

	restartPeriodic := state.Iter > 0 && state.Iter%n.restartIters == 0
	restartOrth := n.orthEnabled &&
		math.Abs(floats.Dot(newGrad, grad))/floats.Dot(newGrad, newGrad) >= n.orthValue

	var beta float64
	if !restartPeriodic && !restartOrth {
		beta = n.beta.Update(grad, newGrad, n.p)
	}

	for i := range n.p {
		n.p[i] = -newGrad[i] + beta*n.p[i]
	}

	cost, err := e.Cost(xk1)
	if err != nil {
		return nil, err
	}

	return optimization.NewIterData().
		Param(xk1).
		Cost(cost).
		Grad(newGrad).
		KV("beta", beta).
		KV("restart_periodic", restartPeriodic).
		KV("restart_orthogonality", restartOrth), nil
}
