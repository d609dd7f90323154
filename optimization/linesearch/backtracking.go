package linesearch

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/SOLVR/optimization"
)

// Backtracking shrinks the step length by a constant factor until the
// acceptance condition holds. It implements optimization.LineSearch
// and is meant to be driven by a nested Executor inside an outer
// solver.
//
// Init resets the step length, so a single instance can serve many
// nested runs.
type Backtracking struct {
	initParam []float64
	initCost  float64
	initGrad  []float64
	dir       []float64

	rho       float64
	cond      Condition
	initAlpha float64
	alpha     float64
}

// NewBacktracking returns a backtracking line search with contraction
// factor 0.9, initial step length 1 and the Armijo condition with
// c = 1e-4.
func NewBacktracking() *Backtracking {
	cond, _ := NewArmijo(1e-4)
	return &Backtracking{
		rho:       0.9,
		cond:      cond,
		initAlpha: 1.0,
	}
}

// SetContraction sets the step length contraction factor, which must
// be in (0, 1).
func (b *Backtracking) SetContraction(rho float64) error {
	if rho <= 0 || rho >= 1 {
		return optimization.InvalidParameterf("contraction factor must be in (0, 1), got %v", rho).
			WithComponent(b.Name())
	}
	b.rho = rho
	return nil
}

// SetCondition replaces the acceptance condition.
func (b *Backtracking) SetCondition(c Condition) {
	b.cond = c
}

// SetSearchDirection fixes the direction for the next run.
func (b *Backtracking) SetSearchDirection(dir []float64) {
	b.dir = dir
}

// SetInitStepLength sets the step length the search starts from. It
// must be positive.
func (b *Backtracking) SetInitStepLength(alpha float64) error {
	if alpha <= 0 {
		return optimization.InvalidParameterf("initial step length must be > 0, got %v", alpha).
			WithComponent(b.Name())
	}
	b.initAlpha = alpha
	return nil
}

// Name identifies the solver.
func (b *Backtracking) Name() string { return "BacktrackingLineSearch" }

// Init captures the starting point, reuses cost and gradient from the
// state when available, and takes the first trial step.
func (b *Backtracking) Init(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	if b.dir == nil {
		return nil, optimization.NotInitializedError("search direction not set").
			WithComponent(b.Name()).WithOperation("Init")
	}

	b.initParam = slices.Clone(state.Param)

	if math.IsInf(state.Cost, 1) {
		cost, err := e.Cost(b.initParam)
		if err != nil {
			return nil, err
		}
		b.initCost = cost
	} else {
		b.initCost = state.Cost
	}

	if state.Grad != nil {
		b.initGrad = slices.Clone(state.Grad)
	} else {
		grad, err := e.Gradient(b.initParam)
		if err != nil {
			return nil, err
		}
		b.initGrad = grad
	}

	b.alpha = b.initAlpha
	return b.trial(e)
}

// Step contracts the step length and evaluates the next candidate.
func (b *Backtracking) Step(e *optimization.Evaluator, _ *optimization.State) (*optimization.IterData, error) {
	b.alpha *= b.rho
	return b.trial(e)
}

// Terminate checks the acceptance condition against the most recent
// candidate.
func (b *Backtracking) Terminate(state *optimization.State) optimization.TerminationReason {
	if b.cond.Evaluate(state.Cost, state.Grad, b.initCost, b.initGrad, b.dir, b.alpha) {
		return optimization.LineSearchConditionMet
	}
	return optimization.NotTerminated
}

func (b *Backtracking) trial(e *optimization.Evaluator) (*optimization.IterData, error) {
	param := slices.Clone(b.initParam)
	floats.AddScaled(param, b.alpha, b.dir)

	cost, err := e.Cost(param)
	if err != nil {
		return nil, err
	}

	data := optimization.NewIterData().Param(param).Cost(cost).KV("alpha", b.alpha)
	if b.cond.RequiresGradient() {
		grad, err := e.Gradient(param)
		if err != nil {
			return nil, err
		}
		data = data.Grad(grad)
	}
	return data, nil
}
