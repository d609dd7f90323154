// Package conjugategradient provides the linear conjugate gradient
// method for SPD systems and its nonlinear generalization for smooth
// unconstrained minimization.
package conjugategradient

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/SOLVR/optimization"
)

// CG solves A x = b for a symmetric positive definite operator A. The
// problem supplies A through the Operator capability; the right-hand
// side is fixed at construction. The reported cost is the residual
// norm.
type CG struct {
	optimization.SolverDefaults

	b []float64

	r     []float64
	p     []float64
	pPrev []float64
	rtr   float64
}

// NewCG returns a conjugate gradient solver for the right-hand side b.
func NewCG(b []float64) *CG {
	return &CG{b: slices.Clone(b)}
}

// Name identifies the solver.
func (c *CG) Name() string { return "ConjugateGradient" }

// Direction returns the current search direction.
func (c *CG) Direction() []float64 { return c.p }

// PrevDirection returns the search direction of the previous
// iteration.
func (c *CG) PrevDirection() []float64 { return c.pPrev }

// Residual returns the current residual.
func (c *CG) Residual() []float64 { return c.r }

// Init computes the initial residual and search direction.
func (c *CG) Init(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	ap, err := e.Apply(state.Param)
	if err != nil {
		return nil, err
	}

	n := len(c.b)
	c.r = make([]float64, n)
	c.p = make([]float64, n)
	for i := 0; i < n; i++ {
		c.r[i] = ap[i] - c.b[i]
		c.p[i] = -c.r[i]
	}
	c.pPrev = slices.Clone(c.p)
	c.rtr = floats.Dot(c.r, c.r)
	return nil, nil
}

// Step performs one conjugate gradient iteration.
func (c *CG) Step(e *optimization.Evaluator, state *optimization.State) (*optimization.IterData, error) {
	c.pPrev = slices.Clone(c.p)

	apk, err := e.Apply(c.p)
	if err != nil {
		return nil, err
	}

	alpha := c.rtr / floats.Dot(c.p, apk)

	newParam := slices.Clone(state.Param)
	floats.AddScaled(newParam, alpha, c.p)
	floats.AddScaled(c.r, alpha, apk)

	rtrNew := floats.Dot(c.r, c.r)
	beta := rtrNew / c.rtr
	c.rtr = rtrNew

	for i := range c.p {
		c.p[i] = -c.r[i] + beta*c.p[i]
	}

	return optimization.NewIterData().
		Param(newParam).
		Cost(math.Sqrt(rtrNew)).
		KV("alpha", alpha).
		KV("beta", beta), nil
}
