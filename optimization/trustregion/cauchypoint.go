package trustregion

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/SOLVR/optimization"
)

// CauchyPoint minimizes the quadratic model along the steepest
// descent direction, clipped to the trust region boundary. It
// computes its step in a single iteration.
type CauchyPoint struct {
	optimization.SolverDefaults

	radius float64
}

// NewCauchyPoint returns a Cauchy point subproblem solver.
func NewCauchyPoint() *CauchyPoint {
	return &CauchyPoint{radius: math.NaN()}
}

// SetRadius fixes the trust region radius for the next run.
func (c *CauchyPoint) SetRadius(radius float64) { c.radius = radius }

// Name identifies the solver.
func (c *CauchyPoint) Name() string { return "CauchyPoint" }

// Step computes the Cauchy point.
func (c *CauchyPoint) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	grad := state.Grad
	if grad == nil {
		g, err := e.Gradient(state.Param)
		if err != nil {
			return nil, err
		}
		grad = g
	}
	h := state.Hessian
	if h == nil {
		hess, err := e.Hessian(state.Param)
		if err != nil {
			return nil, err
		}
		h = hess
	}

	gradNorm := floats.Norm(grad, 2)
	wdp := weightedDot(h, grad, grad)

	tau := 1.0
	if wdp > 0 {
		tau = math.Min(1, gradNorm*gradNorm*gradNorm/(c.radius*wdp))
	}

	p := make([]float64, len(grad))
	for i, g := range grad {
		p[i] = g * (-tau * c.radius / gradNorm)
	}
	return optimization.NewIterData().Param(p), nil
}

// Terminate stops after the single step.
func (c *CauchyPoint) Terminate(state *optimization.State) optimization.TerminationReason {
	if state.Iter >= 1 {
		return optimization.MaxItersReached
	}
	return optimization.NotTerminated
}
