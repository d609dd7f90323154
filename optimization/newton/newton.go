// Package newton provides Newton's method and the truncated Newton-CG
// method.
package newton

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SOLVR/optimization"
)

// Newton iterates x' = x - γ H⁻¹ g using the exact Hessian. It has no
// termination criterion of its own; bound the run with a maximum
// iteration count or a target cost.
type Newton struct {
	optimization.SolverDefaults

	gamma float64
}

// NewNewton returns Newton's method with a full step length.
func NewNewton() *Newton {
	return &Newton{gamma: 1.0}
}

// WithGamma sets the step length, which must be in (0, 1].
func (n *Newton) WithGamma(gamma float64) (*Newton, error) {
	if gamma <= 0 || gamma > 1 {
		return nil, optimization.InvalidParameterf("gamma must be in (0, 1], got %v", gamma).
			WithComponent(n.Name())
	}
	n.gamma = gamma
	return n, nil
}

// Name identifies the solver.
func (n *Newton) Name() string { return "Newton" }

// Step evaluates gradient and Hessian and takes the damped Newton
// step.
func (n *Newton) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	param := state.Param

	grad, err := e.Gradient(param)
	if err != nil {
		return nil, err
	}
	hessian, err := e.Hessian(param)
	if err != nil {
		return nil, err
	}

	var hinv mat.Dense
	if err := hinv.Inverse(hessian); err != nil {
		return nil, optimization.WrapError(err, "Hessian is not invertible").
			WithComponent(n.Name()).WithOperation("Step")
	}

	dim := len(param)
	pv := mat.NewVecDense(dim, nil)
	pv.MulVec(&hinv, mat.NewVecDense(dim, grad))

	newParam := slices.Clone(param)
	floats.AddScaled(newParam, -n.gamma, pv.RawVector().Data)

	return optimization.NewIterData().
		Param(newParam).
		Grad(grad).
		Hessian(hessian), nil
}
