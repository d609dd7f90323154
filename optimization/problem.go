package optimization

import "gonum.org/v1/gonum/mat"

// A problem is any value implementing a subset of the capability
// interfaces below. Solvers request capabilities through an Evaluator;
// asking for one the problem lacks yields a NotImplemented error.

// CostFunction evaluates the scalar cost at a parameter vector.
type CostFunction interface {
	Cost(param []float64) (float64, error)
}

// GradientFunc evaluates the gradient of the cost at a parameter vector.
type GradientFunc interface {
	Gradient(param []float64) ([]float64, error)
}

// HessianFunc evaluates the Hessian of the cost at a parameter vector.
type HessianFunc interface {
	Hessian(param []float64) (*mat.Dense, error)
}

// JacobianFunc evaluates the Jacobian of a residual map at a parameter
// vector.
type JacobianFunc interface {
	Jacobian(param []float64) (*mat.Dense, error)
}

// Operator applies a linear or nonlinear operator to a parameter
// vector, for example the matrix-vector product of a linear system or
// the residual map of a least-squares problem.
type Operator interface {
	Apply(param []float64) ([]float64, error)
}

// Modifier produces a modified candidate from a parameter vector, with
// extent controlling the size of the modification.
type Modifier interface {
	Modify(param []float64, extent float64) ([]float64, error)
}
