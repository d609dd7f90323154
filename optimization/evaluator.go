package optimization

import "gonum.org/v1/gonum/mat"

// Evaluator wraps a problem and counts every evaluation made through
// it. Solvers never touch the problem directly; all evaluations go
// through the Evaluator so the driver can publish accurate counts.
//
// The wrapped problem can be moved out with Take for a nested driver
// run and handed back with Reclaim, which also folds the sub-run's
// counts into this Evaluator.
type Evaluator struct {
	problem interface{}

	// CostCount is the number of cost and operator evaluations.
	CostCount uint64
	// GradCount is the number of gradient evaluations.
	GradCount uint64
	// HessianCount is the number of Hessian evaluations.
	HessianCount uint64
	// JacobianCount is the number of Jacobian evaluations.
	JacobianCount uint64
	// ModifyCount is the number of candidate modifications.
	ModifyCount uint64
}

// NewEvaluator wraps the given problem.
func NewEvaluator(problem interface{}) *Evaluator {
	return &Evaluator{problem: problem}
}

// Cost evaluates the cost function.
func (e *Evaluator) Cost(param []float64) (float64, error) {
	if e.problem == nil {
		return 0, PotentialBugf("cost requested but problem was taken").WithOperation("Cost")
	}
	cf, ok := e.problem.(CostFunction)
	if !ok {
		return 0, NotImplementedError("CostFunction").WithOperation("Cost")
	}
	e.CostCount++
	return cf.Cost(param)
}

// Gradient evaluates the gradient.
func (e *Evaluator) Gradient(param []float64) ([]float64, error) {
	if e.problem == nil {
		return nil, PotentialBugf("gradient requested but problem was taken").WithOperation("Gradient")
	}
	gf, ok := e.problem.(GradientFunc)
	if !ok {
		return nil, NotImplementedError("GradientFunc").WithOperation("Gradient")
	}
	e.GradCount++
	return gf.Gradient(param)
}

// Hessian evaluates the Hessian.
func (e *Evaluator) Hessian(param []float64) (*mat.Dense, error) {
	if e.problem == nil {
		return nil, PotentialBugf("hessian requested but problem was taken").WithOperation("Hessian")
	}
	hf, ok := e.problem.(HessianFunc)
	if !ok {
		return nil, NotImplementedError("HessianFunc").WithOperation("Hessian")
	}
	e.HessianCount++
	return hf.Hessian(param)
}

// Jacobian evaluates the Jacobian.
func (e *Evaluator) Jacobian(param []float64) (*mat.Dense, error) {
	if e.problem == nil {
		return nil, PotentialBugf("jacobian requested but problem was taken").WithOperation("Jacobian")
	}
	jf, ok := e.problem.(JacobianFunc)
	if !ok {
		return nil, NotImplementedError("JacobianFunc").WithOperation("Jacobian")
	}
	e.JacobianCount++
	return jf.Jacobian(param)
}

// Apply applies the problem's operator. It counts as a cost
// evaluation because operator problems report cost through Apply.
func (e *Evaluator) Apply(param []float64) ([]float64, error) {
	if e.problem == nil {
		return nil, PotentialBugf("apply requested but problem was taken").WithOperation("Apply")
	}
	op, ok := e.problem.(Operator)
	if !ok {
		return nil, NotImplementedError("Operator").WithOperation("Apply")
	}
	e.CostCount++
	return op.Apply(param)
}

// Modify produces a modified candidate.
func (e *Evaluator) Modify(param []float64, extent float64) ([]float64, error) {
	if e.problem == nil {
		return nil, PotentialBugf("modify requested but problem was taken").WithOperation("Modify")
	}
	m, ok := e.problem.(Modifier)
	if !ok {
		return nil, NotImplementedError("Modifier").WithOperation("Modify")
	}
	e.ModifyCount++
	return m.Modify(param, extent)
}

// Take moves the problem out of the Evaluator, leaving it empty.
// Used by solvers that run a nested driver over the same problem.
func (e *Evaluator) Take() interface{} {
	p := e.problem
	e.problem = nil
	return p
}

// Restore hands a problem back to an emptied Evaluator.
func (e *Evaluator) Restore(problem interface{}) {
	e.problem = problem
}

// MergeCounts adds the evaluation counts of other to e.
func (e *Evaluator) MergeCounts(other *Evaluator) {
	e.CostCount += other.CostCount
	e.GradCount += other.GradCount
	e.HessianCount += other.HessianCount
	e.JacobianCount += other.JacobianCount
	e.ModifyCount += other.ModifyCount
}

// Reclaim takes the problem back from a nested run's Evaluator and
// merges its counts.
func (e *Evaluator) Reclaim(other *Evaluator) {
	e.problem = other.Take()
	e.MergeCounts(other)
}
