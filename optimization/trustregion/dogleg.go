package trustregion

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SOLVR/optimization"
)

// Dogleg follows the path from the unconstrained steepest descent
// minimizer to the Newton point and intersects it with the trust
// region boundary. It computes its step in a single iteration.
type Dogleg struct {
	optimization.SolverDefaults

	radius float64
}

// NewDogleg returns a dogleg subproblem solver.
func NewDogleg() *Dogleg {
	return &Dogleg{radius: math.NaN()}
}

// SetRadius fixes the trust region radius for the next run.
func (d *Dogleg) SetRadius(radius float64) { d.radius = radius }

// Name identifies the solver.
func (d *Dogleg) Name() string { return "Dogleg" }

// Step computes the dogleg step.
func (d *Dogleg) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
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

	n := len(grad)

	// Newton point pb = -H⁻¹g
	var hinv mat.Dense
	if err := hinv.Inverse(h); err != nil {
		return nil, optimization.WrapError(err, "Hessian is not invertible").
			WithComponent(d.Name()).WithOperation("Step")
	}
	pbv := mat.NewVecDense(n, nil)
	pbv.MulVec(&hinv, mat.NewVecDense(n, grad))
	pb := make([]float64, n)
	for i := 0; i < n; i++ {
		pb[i] = -pbv.AtVec(i)
	}

	if floats.Norm(pb, 2) <= d.radius {
		return optimization.NewIterData().Param(pb), nil
	}

	// steepest descent minimizer pu = -(gᵀg)/(gᵀHg) g
	scale := -floats.Dot(grad, grad) / weightedDot(h, grad, grad)
	pu := make([]float64, n)
	for i, g := range grad {
		pu[i] = scale * g
	}

	utu := floats.Dot(pu, pu)
	btb := floats.Dot(pb, pb)
	utb := floats.Dot(pu, pb)

	delta := d.radius * d.radius
	t1 := 3*utb - btb - 2*utu
	t2 := math.Sqrt(utb*utb - 2*utb*delta + delta*btb - btb*utu + delta*utu)
	t3 := -2*utb + btb + utu

	tau := math.Max(-(t1+t2)/t3, -(t1-t2)/t3)
	if math.IsNaN(tau) || math.IsInf(tau, 0) {
		tau = (delta + btb - 2*utu) / (btb - utu)
	}

	pstar := make([]float64, n)
	switch {
	case tau >= 0 && tau < 1:
		for i := range pstar {
			pstar[i] = tau * pu[i]
		}
	case tau >= 1 && tau <= 2:
		for i := range pstar {
			pstar[i] = pu[i] + (tau-1)*(pb[i]-pu[i])
		}
	default:
		return nil, optimization.PotentialBugf("dogleg path parameter %v outside [0, 2]", tau).
			WithComponent(d.Name()).WithOperation("Step")
	}
	return optimization.NewIterData().Param(pstar), nil
}

// Terminate stops after the single step.
func (d *Dogleg) Terminate(state *optimization.State) optimization.TerminationReason {
	if state.Iter >= 1 {
		return optimization.MaxItersReached
	}
	return optimization.NotTerminated
}
