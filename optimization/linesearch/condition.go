// Package linesearch provides line search methods and their
// acceptance conditions for use as nested solvers.
package linesearch

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/SOLVR/optimization"
)

// Condition decides whether a trial step length is acceptable.
type Condition interface {
	// Evaluate reports whether the step is acceptable. curGrad may be
	// nil unless RequiresGradient returns true.
	Evaluate(curCost float64, curGrad []float64, initCost float64, initGrad, dir []float64, alpha float64) bool
	// RequiresGradient reports whether the condition needs the
	// gradient at the trial point.
	RequiresGradient() bool
}

// Armijo is the sufficient decrease condition.
type Armijo struct {
	c float64
}

// NewArmijo returns the Armijo condition with factor c in (0, 1).
func NewArmijo(c float64) (*Armijo, error) {
	if c <= 0 || c >= 1 {
		return nil, optimization.InvalidParameterf("c must be in (0, 1), got %v", c).
			WithComponent("Armijo")
	}
	return &Armijo{c: c}, nil
}

// Evaluate checks f(x + alpha*d) <= f(x) + c*alpha*gᵀd.
func (a *Armijo) Evaluate(curCost float64, _ []float64, initCost float64, initGrad, dir []float64, alpha float64) bool {
	return curCost <= initCost+a.c*alpha*floats.Dot(initGrad, dir)
}

// RequiresGradient returns false; only the cost at the trial point is
// needed.
func (a *Armijo) RequiresGradient() bool { return false }

// Wolfe combines sufficient decrease with a curvature condition.
type Wolfe struct {
	c1 float64
	c2 float64
}

// NewWolfe returns the Wolfe conditions with 0 < c1 < c2 < 1.
func NewWolfe(c1, c2 float64) (*Wolfe, error) {
	if c1 <= 0 || c1 >= 1 {
		return nil, optimization.InvalidParameterf("c1 must be in (0, 1), got %v", c1).
			WithComponent("Wolfe")
	}
	if c2 <= c1 || c2 >= 1 {
		return nil, optimization.InvalidParameterf("c2 must be in (c1, 1), got %v", c2).
			WithComponent("Wolfe")
	}
	return &Wolfe{c1: c1, c2: c2}, nil
}

// Evaluate checks the Armijo condition plus g(x+alpha*d)ᵀd >= c2*gᵀd.
func (w *Wolfe) Evaluate(curCost float64, curGrad []float64, initCost float64, initGrad, dir []float64, alpha float64) bool {
	d0 := floats.Dot(initGrad, dir)
	return curCost <= initCost+w.c1*alpha*d0 &&
		floats.Dot(curGrad, dir) >= w.c2*d0
}

// RequiresGradient returns true.
func (w *Wolfe) RequiresGradient() bool { return true }

// StrongWolfe tightens the Wolfe curvature condition to an absolute
// value bound.
type StrongWolfe struct {
	c1 float64
	c2 float64
}

// NewStrongWolfe returns the strong Wolfe conditions with
// 0 < c1 < c2 < 1.
func NewStrongWolfe(c1, c2 float64) (*StrongWolfe, error) {
	if c1 <= 0 || c1 >= 1 {
		return nil, optimization.InvalidParameterf("c1 must be in (0, 1), got %v", c1).
			WithComponent("StrongWolfe")
	}
	if c2 <= c1 || c2 >= 1 {
		return nil, optimization.InvalidParameterf("c2 must be in (c1, 1), got %v", c2).
			WithComponent("StrongWolfe")
	}
	return &StrongWolfe{c1: c1, c2: c2}, nil
}

// Evaluate checks the Armijo condition plus
// |g(x+alpha*d)ᵀd| <= c2*|gᵀd|.
func (w *StrongWolfe) Evaluate(curCost float64, curGrad []float64, initCost float64, initGrad, dir []float64, alpha float64) bool {
	d0 := floats.Dot(initGrad, dir)
	return curCost <= initCost+w.c1*alpha*d0 &&
		math.Abs(floats.Dot(curGrad, dir)) <= w.c2*math.Abs(d0)
}

// RequiresGradient returns true.
func (w *StrongWolfe) RequiresGradient() bool { return true }
