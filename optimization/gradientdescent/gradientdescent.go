// Package gradientdescent provides steepest descent with a nested
// line search.
package gradientdescent

import (
	"context"
	"slices"

	"github.com/copyleftdev/SOLVR/optimization"
)

// SteepestDescent walks along the negative gradient, with the step
// length chosen by the line search. It terminates only through
// iteration or target cost limits on the run.
type SteepestDescent struct {
	optimization.SolverDefaults

	linesearch optimization.LineSearch
}

// NewSteepestDescent returns a steepest descent solver using the
// given line search.
func NewSteepestDescent(ls optimization.LineSearch) *SteepestDescent {
	return &SteepestDescent{linesearch: ls}
}

// Name identifies the solver.
func (s *SteepestDescent) Name() string { return "SteepestDescent" }

// Init evaluates the cost at the initial parameter.
func (s *SteepestDescent) Init(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	cost, err := e.Cost(state.Param)
	if err != nil {
		return nil, err
	}
	return optimization.NewIterData().Cost(cost), nil
}

// Step evaluates the gradient and runs the line search along its
// negation.
func (s *SteepestDescent) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	param := slices.Clone(state.Param)

	grad, err := e.Gradient(param)
	if err != nil {
		return nil, err
	}

	dir := make([]float64, len(grad))
	for i, g := range grad {
		dir[i] = -g
	}

	s.linesearch.SetSearchDirection(dir)
	lsRes, err := optimization.New(e.Take(), s.linesearch).
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
		Cost(lsRes.State.Cost).
		Grad(grad), nil
}
